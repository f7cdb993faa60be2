package closure

import (
	"context"
	"log/slog"
	"time"

	"encarwatch/internal/domain"
)

// PageRenderer is the browser surface the scanner needs.
type PageRenderer interface {
	Snapshot(ctx context.Context, url string) (*domain.PageSnapshot, error)
}

// ListingSource is the slice of the listing store the scanner touches.
type ListingSource interface {
	ListActiveOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Listing, error)
	MarkClosed(ctx context.Context, carID string, reason domain.ClosureReason, at time.Time) error
}

// Options bounds one scan pass.
type Options struct {
	MinAgeDays    int
	BatchSize     int
	InterItemWait time.Duration
}

// Scanner walks aged active listings and closes the ones that are gone.
type Scanner struct {
	opts     Options
	store    ListingSource
	renderer PageRenderer
	logger   *slog.Logger
}

// NewScanner builds a closure scanner.
func NewScanner(opts Options, store ListingSource, renderer PageRenderer, logger *slog.Logger) *Scanner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 25
	}
	return &Scanner{
		opts:     opts,
		store:    store,
		renderer: renderer,
		logger:   logger.With(slog.String("component", "closure")),
	}
}

// Result summarizes one scan pass.
type Result struct {
	Scanned int
	Closed  []domain.Listing
	Errors  int
}

// Scan checks one batch of aged active listings. Per-listing failures
// are counted and skipped; the pass itself only fails when the store is
// unreachable. Already-closed listings never re-enter the batch, so a
// second pass over the same population is a no-op.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	cutoff := time.Now().AddDate(0, 0, -s.opts.MinAgeDays)
	listings, err := s.store.ListActiveOlderThan(ctx, cutoff, s.opts.BatchSize)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i, l := range listings {
		if err := ctx.Err(); err != nil {
			return res, domain.ErrContextDone
		}
		if i > 0 && s.opts.InterItemWait > 0 {
			select {
			case <-ctx.Done():
				return res, domain.ErrContextDone
			case <-time.After(s.opts.InterItemWait):
			}
		}

		res.Scanned++
		reason, closed, err := s.check(ctx, l)
		if err != nil {
			res.Errors++
			s.logger.Warn("scan failed",
				slog.String("car_id", l.CarID),
				slog.String("error", err.Error()))
			continue
		}
		if !closed {
			continue
		}

		now := time.Now()
		if err := s.store.MarkClosed(ctx, l.CarID, reason, now); err != nil {
			res.Errors++
			s.logger.Error("mark closed failed",
				slog.String("car_id", l.CarID),
				slog.String("error", err.Error()))
			continue
		}
		l.IsClosed = true
		l.ClosureReason = reason
		l.ClosureDetectedAt = &now
		res.Closed = append(res.Closed, l)
		s.logger.Info("listing closed",
			slog.String("car_id", l.CarID),
			slog.String("reason", string(reason)))
	}
	return res, nil
}

// check renders one detail page and evaluates it. A navigation that
// completes without any document response closes the listing; every
// render failure, timeouts included, is a scan error and the listing
// stays active. A slow page is not evidence the listing is gone.
func (s *Scanner) check(ctx context.Context, l domain.Listing) (domain.ClosureReason, bool, error) {
	snap, err := s.renderer.Snapshot(ctx, l.DetailURL)
	if err != nil {
		return "", false, &domain.ClosureScanError{CarID: l.CarID, Err: err}
	}
	if snap.StatusCode == 0 && snap.Content == "" {
		return domain.ClosureNoResponse, true, nil
	}
	reason, closed := Evaluate(snap)
	return reason, closed, nil
}
