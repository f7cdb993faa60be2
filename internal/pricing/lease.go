package pricing

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"encarwatch/internal/domain"
)

// leaseVocabulary marks a page or title as describing a lease or rental
// contract. Extraction only runs when at least one word is present.
var leaseVocabulary = []string{
	"리스", "렌트", "월세", "월납입금", "보증금", "계약금",
}

// Label-anchored extraction patterns. Each captures the first number
// following a known field label, tolerating a short run of separator
// characters between label and amount.
var (
	depositRe = regexp.MustCompile(`(?:보증금|선수금|계약금)\s*[:：]?\s*([0-9][0-9,\.]*)\s*(만원|원)?`)
	monthlyRe = regexp.MustCompile(`(?:월납입금|월리스료|월렌트비|월\s*납입)\s*[:：]?\s*([0-9][0-9,\.]*)\s*(만원|원)?`)
	termRe    = regexp.MustCompile(`(?:계약기간|리스기간|렌트기간)\s*[:：]?\s*([0-9]{1,3})\s*개월`)
	finalRe   = regexp.MustCompile(`(?:만기인수금|잔존가치|인수금)\s*[:：]?\s*([0-9][0-9,\.]*)\s*(만원|원)?`)
)

// Fallback tier for pages where markup separates a field label from
// its amount. The first number inside a bounded window after a keyword
// is taken, subject to the same plausibility gates as a labeled match.
var (
	amountRe     = regexp.MustCompile(`([0-9][0-9,\.]*)\s*(만원|원)?`)
	bareTermRe   = regexp.MustCompile(`([0-9]{1,3})\s*개월`)
	depositWords = []string{"보증금", "선수금", "계약금"}
	monthlyWords = []string{"월납입금", "월리스료", "월렌트비", "월 납입", "월"}
	finalWords   = []string{"만기인수금", "잔존가치", "인수금"}
)

// proximityWindow bounds, in bytes, how far past a keyword the fallback
// looks for an amount.
const proximityWindow = 80

// LeaseExtraction is the result of scanning detail-page text for lease
// contract fields. Found* flags distinguish a genuine zero from an
// absent field.
type LeaseExtraction struct {
	Terms        domain.LeaseTerms
	FoundDeposit bool
	FoundMonthly bool
	FoundTerm    bool
	FoundFinal   bool
}

// Complete reports whether enough fields were found to compute a
// meaningful true cost.
func (e LeaseExtraction) Complete() bool {
	return e.FoundDeposit && e.FoundMonthly && e.FoundTerm
}

// HasLeaseVocabulary reports whether the text mentions lease or rental
// contract terms at all.
func HasLeaseVocabulary(text string) bool {
	for _, w := range leaseVocabulary {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// ExtractLeaseTerms scans detail-page text for lease contract fields.
// Label-adjacent matches win; when markup separates a label from its
// amount, the nearest unit-suffixed number within a short window is
// taken instead.
// The second return is false when the text carries no lease vocabulary;
// vocabulary without extractable fields still returns true with a
// partial (possibly empty) extraction.
func ExtractLeaseTerms(text string) (LeaseExtraction, bool) {
	var out LeaseExtraction
	if !HasLeaseVocabulary(text) {
		return out, false
	}

	v, ok := matchAmount(depositRe, text)
	if !ok {
		v, ok = nearAmount(text, depositWords)
	}
	if ok {
		if dep, ok := normalizeDeposit(v); ok {
			out.Terms.Deposit = dep
			out.FoundDeposit = true
		}
	}

	v, ok = matchAmount(monthlyRe, text)
	if !ok {
		v, ok = nearAmount(text, monthlyWords)
	}
	if ok {
		if mon, ok := normalizeMonthly(v); ok {
			out.Terms.MonthlyPayment = mon
			out.FoundMonthly = true
		}
	}

	m := termRe.FindStringSubmatch(text)
	if m == nil {
		m = bareTermRe.FindStringSubmatch(text)
	}
	if m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 12 && n <= 60 {
			out.Terms.TermMonths = n
			out.FoundTerm = true
		}
	}

	v, ok = matchAmount(finalRe, text)
	if !ok {
		v, ok = nearAmount(text, finalWords)
	}
	if ok {
		if fin, ok := normalizeDeposit(v); ok {
			out.Terms.FinalPayment = fin
			out.FoundFinal = true
		}
	}
	return out, true
}

// matchAmount returns the first captured amount of re in text, already
// converted from a raw 원 suffix to 만원 when present.
func matchAmount(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if m[2] == "원" {
		f /= wonPerManwon
	}
	return f, true
}

// nearAmount finds the first unit-suffixed number within a bounded
// window after any of the keywords. Requiring the 만원 or 원 unit keeps
// dates and counters near a bare keyword out.
func nearAmount(text string, keywords []string) (float64, bool) {
	for _, kw := range keywords {
		idx := strings.Index(text, kw)
		if idx < 0 {
			continue
		}
		start := idx + len(kw)
		end := start + proximityWindow
		if end > len(text) {
			end = len(text)
		}
		m := amountRe.FindStringSubmatch(text[start:end])
		if m == nil || m[2] == "" {
			continue
		}
		raw := strings.ReplaceAll(m[1], ",", "")
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if m[2] == "원" {
			f /= wonPerManwon
		}
		return f, true
	}
	return 0, false
}

// normalizeMonthly coerces a captured monthly payment into a plausible
// 만원 figure. Decimal figures below 50 are taken as millions of won and
// rescaled; implausible magnitudes are rejected.
func normalizeMonthly(v float64) (float64, bool) {
	switch {
	case v >= 30 && v <= 1000:
		return v, true
	case v >= 0.5 && v < 50:
		return v * 100, true
	case v >= 300_000 && v <= 10_000_000:
		return v / wonPerManwon, true
	default:
		return 0, false
	}
}

// normalizeDeposit coerces a captured deposit or final payment into a
// plausible 만원 figure.
func normalizeDeposit(v float64) (float64, bool) {
	switch {
	case v >= 100 && v <= 50_000:
		return v, true
	case v >= 10 && v < 100:
		return v * 100, true
	case v > 1_000_000:
		return v / wonPerManwon, true
	default:
		return 0, false
	}
}

// IsLeaseByTitle flags listings whose title alone advertises a lease or
// rental contract. Used on bare API observations before the detail page
// has been rendered.
func IsLeaseByTitle(title string) bool {
	for _, w := range []string{"리스", "렌트", "승계"} {
		if strings.Contains(title, w) {
			return true
		}
	}
	return false
}

// IsLeaseByHeuristics flags likely lease listings from API fields alone,
// before the detail page confirms or corrects the call. Dealers posting
// lease takeovers tend to list a recent-year car at a round or 77-ending
// figure well under the market band, so a suspicious price ending on a
// recent car in the mid band is treated as a lease until enrichment says
// otherwise.
func IsLeaseByHeuristics(l domain.Listing) bool {
	return isLeaseByHeuristics(l, time.Now().Year())
}

func isLeaseByHeuristics(l domain.Listing, currentYear int) bool {
	if IsLeaseByTitle(l.Title) {
		return true
	}

	price := int(l.Price)
	if price <= 0 {
		return false
	}
	ending := price % 100
	if ending != 0 && ending != 77 {
		return false
	}
	recentYear := l.Year >= currentYear-2
	midBand := l.Price >= 2000 && l.Price <= 9000
	return recentYear && midBand
}
