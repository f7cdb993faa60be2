package acquire

import (
	"encoding/json"
	"testing"
	"time"
)

func TestToListing(t *testing.T) {
	var resp searchResponse
	if err := json.Unmarshal([]byte(samplePayload), &resp); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	now := time.Now()

	l, err := resp.SearchResults[0].ToListing("https://fem.encar.com/cars/detail/", now)
	if err != nil {
		t.Fatalf("ToListing: %v", err)
	}
	if l.CarID != "38991111" {
		t.Errorf("car id = %q, want 38991111", l.CarID)
	}
	if l.Year != 2021 {
		t.Errorf("year = %d, want 2021 (YYYYMM normalized)", l.Year)
	}
	if !l.IsCoupe {
		t.Error("쿠페 badge should flag coupe")
	}
	if l.Price != 8290 || l.TruePrice != 8290 {
		t.Errorf("price = %v/%v, want 8290", l.Price, l.TruePrice)
	}
	if l.DetailURL != "https://fem.encar.com/cars/detail/38991111" {
		t.Errorf("detail url = %q", l.DetailURL)
	}
	if l.IsLease {
		t.Error("plain sale flagged as lease")
	}
}

func TestToListingLeaseSellType(t *testing.T) {
	raw := RawItem{
		ID:           json.Number("123"),
		Manufacturer: "벤츠",
		Model:        "GLE-클래스",
		SellType:     "리스",
		Price:        165,
		Year:         2023,
	}
	l, err := raw.ToListing("https://fem.encar.com/cars/detail/", time.Now())
	if err != nil {
		t.Fatalf("ToListing: %v", err)
	}
	if !l.IsLease {
		t.Error("리스 sell type should flag lease")
	}
	if l.Year != 2023 {
		t.Errorf("plain year = %d, want 2023", l.Year)
	}
}
