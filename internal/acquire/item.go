package acquire

import (
	"encoding/json"
	"strings"
	"time"

	"encarwatch/internal/domain"
	"encarwatch/internal/pricing"
)

// searchResponse mirrors the premium search endpoint's payload shape.
type searchResponse struct {
	Count         int       `json:"Count"`
	SearchResults []RawItem `json:"SearchResults"`
}

// RawItem is one vehicle as the search API reports it. Numeric fields
// arrive as JSON numbers; Id is decoded as json.Number to keep the
// identity exact.
type RawItem struct {
	ID           json.Number `json:"Id"`
	Manufacturer string      `json:"Manufacturer"`
	Model        string      `json:"Model"`
	Badge        string      `json:"Badge"`
	BadgeDetail  string      `json:"BadgeDetail"`
	Year         float64     `json:"Year"`
	Mileage      float64     `json:"Mileage"`
	Price        float64     `json:"Price"`
	FuelType     string      `json:"FuelType"`
	SellType     string      `json:"SellType"`
	OfficeCity   string      `json:"OfficeCityState"`
	ModifiedDate string      `json:"ModifiedDate"`
}

// coupeMarkers flag the body style the monitor cares most about.
var coupeMarkers = []string{"쿠페", "coupe", "Coupe", "COUPE"}

// ToListing converts a raw search result into a domain listing. A
// malformed price degrades to zero with the error returned so the
// caller can log it; the item itself is still usable.
func (r RawItem) ToListing(detailURLBase string, now time.Time) (domain.Listing, error) {
	title := strings.TrimSpace(strings.Join(nonEmpty(r.Manufacturer, r.Model, r.Badge, r.BadgeDetail), " "))

	l := domain.Listing{
		CarID:       r.ID.String(),
		Title:       title,
		Model:       r.Model,
		Badge:       strings.TrimSpace(r.Badge + " " + r.BadgeDetail),
		Year:        normalizeYear(r.Year),
		Mileage:     int(r.Mileage),
		DetailURL:   detailURLBase + r.ID.String(),
		IsCoupe:     containsAny(r.Model+" "+r.Badge+" "+r.BadgeDetail, coupeMarkers),
		LastUpdated: now,
	}

	// Lease detection from the search payload alone: the sell type
	// field or lease vocabulary in the title. The detail page refines
	// this later with real contract figures.
	l.IsLease = containsAny(r.SellType, []string{"리스", "렌트"}) || pricing.IsLeaseByTitle(title)

	price, err := pricing.ParsePrice(r.Price)
	if err != nil {
		l.Price = 0
		l.TruePrice = 0
		return l, err
	}
	l.Price = price
	l.TruePrice = price
	return l, nil
}

func normalizeYear(y float64) int {
	n := int(y)
	// The API reports YYYYMM for the model year.
	if n > 9999 {
		n /= 100
	}
	return n
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
