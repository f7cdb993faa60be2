package pricing

import (
	"testing"

	"encarwatch/internal/domain"
)

func TestExtractLeaseTermsFull(t *testing.T) {
	text := `리스 승계 안내
보증금: 1,801만원
월납입금: 165만원
계약기간: 26개월`

	ext, isLease := ExtractLeaseTerms(text)
	if !isLease {
		t.Fatal("expected lease vocabulary to be detected")
	}
	if !ext.Complete() {
		t.Fatalf("expected complete extraction, got %+v", ext)
	}
	if ext.Terms.Deposit != 1801 {
		t.Errorf("deposit = %v, want 1801", ext.Terms.Deposit)
	}
	if ext.Terms.MonthlyPayment != 165 {
		t.Errorf("monthly = %v, want 165", ext.Terms.MonthlyPayment)
	}
	if ext.Terms.TermMonths != 26 {
		t.Errorf("term = %v, want 26", ext.Terms.TermMonths)
	}
	if ext.Terms.TrueCost() != 6091 {
		t.Errorf("true cost = %v, want 6091", ext.Terms.TrueCost())
	}
}

func TestExtractLeaseTermsPartial(t *testing.T) {
	text := "렌트 차량입니다. 월렌트비 120만원, 기타 조건은 문의 바랍니다."

	ext, isLease := ExtractLeaseTerms(text)
	if !isLease {
		t.Fatal("expected lease vocabulary to be detected")
	}
	if ext.Complete() {
		t.Error("extraction should be incomplete without deposit and term")
	}
	if !ext.FoundMonthly || ext.Terms.MonthlyPayment != 120 {
		t.Errorf("monthly = %v (found=%v), want 120", ext.Terms.MonthlyPayment, ext.FoundMonthly)
	}
}

func TestExtractLeaseTermsNonLease(t *testing.T) {
	text := "무사고 1인 소유 차량입니다. 정기 점검 완료."
	if _, isLease := ExtractLeaseTerms(text); isLease {
		t.Error("plain sale text should not be flagged as lease")
	}
}

func TestExtractLeaseTermsDecimalRescale(t *testing.T) {
	// Figures quoted as millions of won with a decimal point.
	ext, _ := ExtractLeaseTerms("리스 월납입금: 1.65 보증금: 18.01")
	if !ext.FoundMonthly || ext.Terms.MonthlyPayment != 165 {
		t.Errorf("decimal monthly rescale = %v (found=%v), want 165", ext.Terms.MonthlyPayment, ext.FoundMonthly)
	}
	if !ext.FoundDeposit || ext.Terms.Deposit != 1801 {
		t.Errorf("decimal deposit rescale = %v (found=%v), want 1801", ext.Terms.Deposit, ext.FoundDeposit)
	}
}

func TestExtractLeaseTermsImplausible(t *testing.T) {
	// A phone-number-sized figure after the label must be rejected.
	ext, isLease := ExtractLeaseTerms("리스 문의 월납입금 01012345678")
	if !isLease {
		t.Fatal("vocabulary should still be detected")
	}
	if ext.FoundMonthly {
		t.Errorf("implausible monthly accepted: %v", ext.Terms.MonthlyPayment)
	}
}

func TestExtractLeaseTermsRawWon(t *testing.T) {
	ext, _ := ExtractLeaseTerms("리스 월납입금: 1,650,000원 계약기간: 36개월")
	if !ext.FoundMonthly || ext.Terms.MonthlyPayment != 165 {
		t.Errorf("raw won monthly = %v (found=%v), want 165", ext.Terms.MonthlyPayment, ext.FoundMonthly)
	}
	if !ext.FoundTerm || ext.Terms.TermMonths != 36 {
		t.Errorf("term = %v (found=%v), want 36", ext.Terms.TermMonths, ext.FoundTerm)
	}
}

func TestExtractLeaseTermsTermBounds(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"리스 계약기간: 12개월", true},
		{"리스 계약기간: 60개월", true},
		{"리스 계약기간: 11개월", false},
		{"리스 계약기간: 61개월", false},
	}
	for _, tt := range tests {
		ext, _ := ExtractLeaseTerms(tt.text)
		if ext.FoundTerm != tt.want {
			t.Errorf("%q: FoundTerm = %v, want %v", tt.text, ext.FoundTerm, tt.want)
		}
	}
}

func TestIsLeaseByTitle(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"벤츠 GLE400d 쿠페 리스승계", true},
		{"GLE450 렌트 차량", true},
		{"벤츠 GLE300d 4MATIC 쿠페", false},
	}
	for _, tt := range tests {
		if got := IsLeaseByTitle(tt.title); got != tt.want {
			t.Errorf("IsLeaseByTitle(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestIsLeaseByHeuristics(t *testing.T) {
	const year = 2026

	tests := []struct {
		name string
		l    domain.Listing
		want bool
	}{
		{
			name: "lease title wins regardless of price",
			l:    domain.Listing{Title: "벤츠 GLE450 리스승계", Year: 2020, Price: 4321},
			want: true,
		},
		{
			name: "recent year round price in mid band",
			l:    domain.Listing{Title: "벤츠 GLE450 쿠페", Year: 2025, Price: 6500},
			want: true,
		},
		{
			name: "recent year price ending 77",
			l:    domain.Listing{Title: "벤츠 GLE450 쿠페", Year: 2024, Price: 5977},
			want: true,
		},
		{
			name: "round price but old car",
			l:    domain.Listing{Title: "벤츠 GLE450 쿠페", Year: 2020, Price: 6500},
			want: false,
		},
		{
			name: "recent year ordinary price ending",
			l:    domain.Listing{Title: "벤츠 GLE450 쿠페", Year: 2025, Price: 6493},
			want: false,
		},
		{
			name: "round price above the band",
			l:    domain.Listing{Title: "벤츠 GLE450 쿠페", Year: 2025, Price: 11500},
			want: false,
		},
		{
			name: "zero price",
			l:    domain.Listing{Title: "벤츠 GLE450 쿠페", Year: 2025},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLeaseByHeuristics(tt.l, year); got != tt.want {
				t.Errorf("isLeaseByHeuristics() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractLeaseTermsMarkupSeparated(t *testing.T) {
	// Rendered pages often put markup between a field label and its
	// amount, defeating the label-adjacent patterns.
	text := `리스 승계
보증금</th><td class="value">1,801만원</td>
월리스료</th><td class="value">165만원</td>
총 26개월 약정`

	ext, isLease := ExtractLeaseTerms(text)
	if !isLease {
		t.Fatal("expected lease vocabulary to be detected")
	}
	if !ext.Complete() {
		t.Fatalf("expected complete extraction, got %+v", ext)
	}
	if ext.Terms.Deposit != 1801 {
		t.Errorf("deposit = %v, want 1801", ext.Terms.Deposit)
	}
	if ext.Terms.MonthlyPayment != 165 {
		t.Errorf("monthly = %v, want 165", ext.Terms.MonthlyPayment)
	}
	if ext.Terms.TermMonths != 26 {
		t.Errorf("term = %v, want 26", ext.Terms.TermMonths)
	}
	if ext.Terms.TrueCost() != 6091 {
		t.Errorf("true cost = %v, want 6091", ext.Terms.TrueCost())
	}
}

func TestExtractLeaseTermsIgnoresUnitlessNearby(t *testing.T) {
	// A date after 월 carries no price unit and must not be taken as a
	// monthly payment.
	ext, isLease := ExtractLeaseTerms("리스 차량, 3월 12일 등록")
	if !isLease {
		t.Fatal("vocabulary should still be detected")
	}
	if ext.FoundMonthly {
		t.Errorf("date fragment accepted as monthly: %v", ext.Terms.MonthlyPayment)
	}
}
