package pricing

import (
	"math"
	"testing"

	"encarwatch/internal/domain"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    float64
		wantErr bool
	}{
		{"canonical float", 1801.0, 1801, false},
		{"canonical int", 6091, 6091, false},
		{"raw won string", "18,010,000원", 1801, false},
		{"manwon suffix", "1,801만원", 1801, false},
		{"bare numeric string", "6091", 6091, false},
		{"grouped string", "12,000", 12000, false},
		{"empty string", "", 0, true},
		{"garbage", "판매완료", 0, true},
		{"nil", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePrice(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ParsePrice(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePriceIdempotent(t *testing.T) {
	first, err := ParsePrice("18,010,000원")
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	second, err := ParsePrice(first)
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if first != second {
		t.Errorf("re-parsing canonical value changed it: %v != %v", first, second)
	}
}

func TestLeaseTrueCost(t *testing.T) {
	got := LeaseTrueCost(1801, 165, 26, 0)
	if got != 6091 {
		t.Errorf("LeaseTrueCost(1801, 165, 26, 0) = %v, want 6091", got)
	}
	withFinal := LeaseTrueCost(1000, 100, 12, 500)
	if withFinal != 2700 {
		t.Errorf("LeaseTrueCost with final payment = %v, want 2700", withFinal)
	}
}

func TestTrueCostNonLease(t *testing.T) {
	l := domain.Listing{Price: 8900, IsLease: false}
	if got := TrueCost(l); got != 8900 {
		t.Errorf("non-lease TrueCost = %v, want listed price 8900", got)
	}
}

func TestTrueCostLease(t *testing.T) {
	l := domain.Listing{
		Price:   165,
		IsLease: true,
		LeaseTerms: &domain.LeaseTerms{
			Deposit:        1801,
			MonthlyPayment: 165,
			TermMonths:     26,
		},
	}
	if got := TrueCost(l); got != 6091 {
		t.Errorf("lease TrueCost = %v, want 6091", got)
	}
}

func TestFormatManwon(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{6091, "6,091만원"},
		{165, "165만원"},
		{12000, "12,000만원"},
		{1234567, "1,234,567만원"},
	}
	for _, tt := range tests {
		if got := FormatManwon(tt.in); got != tt.want {
			t.Errorf("FormatManwon(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
