package acquire

import (
	"fmt"
	"net/url"
	"strings"
)

// FilterSpec describes the vehicle search the monitor tracks. Zero
// values drop the corresponding range clause; manufacturer and model
// group always anchor the query so it never degenerates to a full
// marketplace scan.
type FilterSpec struct {
	Manufacturer string
	ModelGroup   string
	YearMin      int
	YearMax      int
	PriceMax     float64 // 만원
	MileageMax   int     // km
}

// BuildQuery renders the marketplace's filter expression DSL. Year
// bounds expand to the YYYY00..YYYY99 month-suffixed form the API
// expects.
func BuildQuery(spec FilterSpec) string {
	var b strings.Builder

	b.WriteString("(And.Hidden.N._.")
	b.WriteString("(C.CarType.N._.(C.Manufacturer.")
	b.WriteString(spec.Manufacturer)
	b.WriteString("._.ModelGroup.")
	b.WriteString(spec.ModelGroup)
	b.WriteString(".))")

	if spec.YearMin > 0 || spec.YearMax > 0 {
		lo, hi := "", ""
		if spec.YearMin > 0 {
			lo = fmt.Sprintf("%d00", spec.YearMin)
		}
		if spec.YearMax > 0 {
			hi = fmt.Sprintf("%d99", spec.YearMax)
		}
		fmt.Fprintf(&b, "_.Year.range(%s..%s).", lo, hi)
	}
	if spec.PriceMax > 0 {
		fmt.Fprintf(&b, "_.Price.range(..%d).", int(spec.PriceMax))
	}
	if spec.MileageMax > 0 {
		fmt.Fprintf(&b, "_.Mileage.range(..%d).", spec.MileageMax)
	}

	b.WriteString(")")
	return b.String()
}

// SearchURL assembles the full premium search endpoint URL for one page
// of results, sorted by modification date.
func SearchURL(apiHost string, spec FilterSpec, offset, limit int) string {
	q := url.Values{}
	q.Set("count", "true")
	q.Set("q", BuildQuery(spec))
	q.Set("sr", fmt.Sprintf("|ModifiedDate|%d|%d", offset, limit))
	return apiHost + "/search/car/list/premium?" + q.Encode()
}
