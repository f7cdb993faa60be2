// Package pricing normalizes the marketplace's mixed price encodings into
// canonical units (만원, ten-thousand won) and computes the true cost of
// lease and rental contracts.
package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"encarwatch/internal/domain"
)

// wonPerManwon converts raw won amounts to canonical 만원.
const wonPerManwon = 10_000

// ParsePrice normalizes a price value into 만원. Accepted inputs:
//
//	float64 / int     taken as already canonical
//	"1,234"           canonical with grouping
//	"12,340,000원"    raw won, divided by 10,000
//	"1234만원"        canonical with unit suffix
//
// Parsing a canonical value again returns the same value.
func ParsePrice(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return parsePriceString(x)
	case nil:
		return 0, &domain.ParseError{Field: "price", Value: "<nil>", Err: errEmpty}
	default:
		return 0, &domain.ParseError{Field: "price", Value: fmt.Sprint(v), Err: errUnsupportedType}
	}
}

var (
	errEmpty           = fmt.Errorf("empty value")
	errUnsupportedType = fmt.Errorf("unsupported type")
)

func parsePriceString(s string) (float64, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &domain.ParseError{Field: "price", Value: orig, Err: errEmpty}
	}

	rawWon := false
	switch {
	case strings.HasSuffix(s, "만원"):
		s = strings.TrimSuffix(s, "만원")
	case strings.HasSuffix(s, "원"):
		s = strings.TrimSuffix(s, "원")
		rawWon = true
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &domain.ParseError{Field: "price", Value: orig, Err: err}
	}
	if rawWon {
		f /= wonPerManwon
	}
	return f, nil
}

// LeaseTrueCost is the full outlay of a lease contract in 만원: the
// deposit plus every monthly payment over the term plus the final
// payment. A non-lease listing's true cost is its listed price.
func LeaseTrueCost(deposit, monthly float64, termMonths int, finalPayment float64) float64 {
	return deposit + monthly*float64(termMonths) + finalPayment
}

// TrueCost resolves a listing's effective price: lease listings get the
// contract true cost, everything else keeps the nominal price.
func TrueCost(l domain.Listing) float64 {
	if l.IsLease && l.LeaseTerms != nil {
		return l.LeaseTerms.TrueCost()
	}
	return l.Price
}

// FormatManwon renders a canonical amount for human-readable output,
// e.g. 6091 → "6,091만원".
func FormatManwon(v float64) string {
	n := int64(v + 0.5)
	s := strconv.FormatInt(n, 10)
	if len(s) > 3 {
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
		s = b.String()
	}
	return s + "만원"
}
