package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"encarwatch/internal/domain"
	"encarwatch/internal/pricing"
)

// FormatListingAlert renders one listing as an HTML Telegram message.
// Freshness markers escalate with how untouched the listing is.
func FormatListingAlert(l domain.Listing) (title, body string) {
	switch {
	case l.Views <= 10 && l.RegistrationDate == "":
		title = "🔥 방금 등록된 매물"
	case l.IsTrulyNew:
		title = "🆕 신규 매물"
	default:
		title = "📋 매물 업데이트"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", html.EscapeString(l.Title))
	if l.Year > 0 {
		fmt.Fprintf(&b, "연식: %d년\n", l.Year)
	}
	if l.Mileage > 0 {
		fmt.Fprintf(&b, "주행거리: %s km\n", groupDigits(l.Mileage))
	}

	if l.IsLease && l.LeaseTerms != nil {
		t := l.LeaseTerms
		fmt.Fprintf(&b, "⚠️ 리스/렌트 차량\n")
		fmt.Fprintf(&b, "표시가: %s\n", pricing.FormatManwon(l.Price))
		fmt.Fprintf(&b, "보증금 %s + 월 %s × %d개월",
			pricing.FormatManwon(t.Deposit), pricing.FormatManwon(t.MonthlyPayment), t.TermMonths)
		if t.FinalPayment > 0 {
			fmt.Fprintf(&b, " + 인수금 %s", pricing.FormatManwon(t.FinalPayment))
		}
		fmt.Fprintf(&b, "\n실구매가: <b>%s</b>\n", pricing.FormatManwon(t.TrueCost()))
	} else if l.IsLease {
		fmt.Fprintf(&b, "⚠️ 리스/렌트 추정 (조건 미확인)\n")
		fmt.Fprintf(&b, "표시가: %s\n", pricing.FormatManwon(l.Price))
	} else {
		fmt.Fprintf(&b, "가격: <b>%s</b>\n", pricing.FormatManwon(l.TruePrice))
	}

	if l.Views > 0 {
		fmt.Fprintf(&b, "조회수: %d\n", l.Views)
	}
	if l.RegistrationDate != "" {
		fmt.Fprintf(&b, "최초등록: %s\n", l.RegistrationDate)
	}
	fmt.Fprintf(&b, `<a href="%s">상세보기</a>`, l.DetailURL)

	return title, b.String()
}

// FormatCycleSummary renders one cycle report.
func FormatCycleSummary(r domain.CycleReport) (title, body string) {
	title = fmt.Sprintf("📊 %s 스캔 완료", cycleLabel(r.Type))

	var b strings.Builder
	fmt.Fprintf(&b, "확인: %d건", r.Scanned)
	if r.NewFound > 0 {
		fmt.Fprintf(&b, " / 신규: %d건", r.NewFound)
	}
	if r.Closed > 0 {
		fmt.Fprintf(&b, " / 판매완료: %d건", r.Closed)
	}
	if r.Errors > 0 {
		fmt.Fprintf(&b, " / 오류: %d건", r.Errors)
	}
	fmt.Fprintf(&b, "\n소요시간: %s", r.Duration().Round(time.Second))
	if r.Notes != "" {
		fmt.Fprintf(&b, "\n%s", html.EscapeString(r.Notes))
	}
	return title, b.String()
}

// FormatDailySummary renders the morning roll-up of store stats.
func FormatDailySummary(st domain.StoreStats, reports []domain.CycleReport) (title, body string) {
	title = "🌅 일일 요약"

	var scanned, newFound, closed int
	for _, r := range reports {
		scanned += r.Scanned
		newFound += r.NewFound
		closed += r.Closed
	}

	var b strings.Builder
	fmt.Fprintf(&b, "추적 중: %d건 (활성 %d / 종료 %d)\n", st.Total, st.Active, st.Closed)
	fmt.Fprintf(&b, "리스/렌트: %d건\n", st.Leases)
	fmt.Fprintf(&b, "지난 24시간: 확인 %d건, 신규 %d건, 판매완료 %d건", scanned, newFound, closed)
	return title, b.String()
}

func cycleLabel(t domain.CycleType) string {
	switch t {
	case domain.CyclePopulation:
		return "초기 수집"
	case domain.CycleRegular:
		return "정기"
	case domain.CycleQuick:
		return "빠른"
	case domain.CycleClosure:
		return "판매완료"
	case domain.CycleCleanup:
		return "정리"
	default:
		return string(t)
	}
}

func groupDigits(n int) string {
	s := fmt.Sprint(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
