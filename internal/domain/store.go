package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// UpsertResult reports what an observation did to the store.
type UpsertResult struct {
	Created  bool
	TrulyNew bool
}

// ListingStore persists tracked listings.
type ListingStore interface {
	// UpsertObservation inserts a first observation or updates an
	// existing row. Updates never touch FirstSeen, never revert
	// IsClosed, and preserve browser-sourced Views and
	// RegistrationDate when the observation carries neither.
	UpsertObservation(ctx context.Context, l Listing) (UpsertResult, error)
	GetByCarID(ctx context.Context, carID string) (Listing, error)
	ListActive(ctx context.Context, opts ListOpts) ([]Listing, error)
	// ListActiveOlderThan returns active listings first seen before
	// the cutoff, oldest first.
	ListActiveOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Listing, error)
	// MarkClosed performs the one-way active to closed transition.
	// Closing an already closed listing is a no-op.
	MarkClosed(ctx context.Context, carID string, reason ClosureReason, at time.Time) error
	// ConsumeTrulyNew returns coupe listings flagged truly-new whose
	// first observation falls inside the window, clearing the flag on
	// every returned row. Closed listings are never returned.
	ConsumeTrulyNew(ctx context.Context, window time.Duration) ([]Listing, error)
	// UpdateEnrichment writes browser-sourced detail fields.
	UpdateEnrichment(ctx context.Context, l Listing) error
	Count(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (StoreStats, error)
	// DeleteStale removes listings last updated before the cutoff that
	// are high-view and not truly-new.
	DeleteStale(ctx context.Context, cutoff time.Time, minViews int) (int64, error)
}

// MonitorLogStore persists cycle reports.
type MonitorLogStore interface {
	Insert(ctx context.Context, r CycleReport) error
	Last(ctx context.Context, t CycleType) (CycleReport, error)
	ListSince(ctx context.Context, since time.Time) ([]CycleReport, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
