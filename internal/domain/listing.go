package domain

import "time"

// ClosureReason explains why a listing was marked closed.
type ClosureReason string

const (
	ClosureConfirmedMessage ClosureReason = "confirmed-message"
	ClosureErrorPage        ClosureReason = "error-page"
	ClosureErrorElement     ClosureReason = "error-element"
	ClosureRedirectError    ClosureReason = "redirect-error"
	ClosureHTTP404          ClosureReason = "http-404"
	ClosureNoResponse       ClosureReason = "no-response"
)

// LeaseTerms holds the components of a lease or rental contract.
// All monetary fields are in canonical units (만원).
type LeaseTerms struct {
	Deposit        float64
	MonthlyPayment float64
	TermMonths     int
	FinalPayment   float64
}

// TotalMonthlyCost is the sum of all monthly payments over the term.
func (t LeaseTerms) TotalMonthlyCost() float64 {
	return t.MonthlyPayment * float64(t.TermMonths)
}

// TrueCost is the full outlay of the contract: deposit plus every
// monthly payment plus the final payment.
func (t LeaseTerms) TrueCost() float64 {
	return t.Deposit + t.TotalMonthlyCost() + t.FinalPayment
}

// Listing represents one vehicle advertisement tracked by the monitor.
// CarID is the marketplace identity; a listing is active until closure
// is detected, after which IsClosed never reverts.
type Listing struct {
	CarID     string
	Title     string
	Model     string
	Badge     string
	Year      int
	Mileage   int
	DetailURL string

	// Price is the advertised figure in 만원 (canonical units).
	// TruePrice equals Price for plain sales and the lease TrueCost
	// for lease or rental listings.
	Price      float64
	TruePrice  float64
	IsLease    bool
	LeaseTerms *LeaseTerms

	// Browser-sourced enrichment. Views of zero together with an empty
	// RegistrationDate means the detail page was never rendered.
	Views                 int
	RegistrationDate      string // YYYY/MM/DD
	DaysSinceRegistration int

	IsCoupe    bool
	IsTrulyNew bool

	FirstSeen   time.Time
	LastUpdated time.Time

	IsClosed          bool
	ClosureDetectedAt *time.Time
	ClosureReason     ClosureReason
}

// HasBrowserData reports whether the listing carries detail-page
// enrichment that a bare API observation would erase.
func (l Listing) HasBrowserData() bool {
	return l.Views > 0 || l.RegistrationDate != ""
}
