package domain

import "time"

// CycleType identifies a monitoring cycle kind.
type CycleType string

const (
	CyclePopulation CycleType = "population"
	CycleRegular    CycleType = "regular"
	CycleQuick      CycleType = "quick"
	CycleClosure    CycleType = "closure"
	CycleCleanup    CycleType = "cleanup"
)

// CycleReport summarizes one completed monitoring cycle.
type CycleReport struct {
	ID         string
	Type       CycleType
	StartedAt  time.Time
	FinishedAt time.Time
	Scanned    int
	NewFound   int
	Updated    int
	Closed     int
	Errors     int
	Notes      string
}

// Duration is the wall time the cycle took.
func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// StoreStats is an aggregate snapshot of the listing store.
type StoreStats struct {
	Total       int64
	Active      int64
	Closed      int64
	Leases      int64
	TrulyNew    int64
	ByClosure   map[ClosureReason]int64
	OldestFirst time.Time
	NewestFirst time.Time
}
