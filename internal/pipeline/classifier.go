// Package pipeline classifies acquired listings and schedules the
// monitoring cycles that keep the store current.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"encarwatch/internal/acquire"
	"encarwatch/internal/domain"
	"encarwatch/internal/pricing"
)

// ObservationStore is the slice of the listing store the classifier
// writes through.
type ObservationStore interface {
	UpsertObservation(ctx context.Context, l domain.Listing) (domain.UpsertResult, error)
}

// Rules hold the truly-new thresholds. A listing counts as truly new
// when its registration is at most seven days old and views are under
// NewMaxViews, when it carries no registration date yet and views are
// under ImmediateAlertViews, or when registration is within
// NewMaxAgeDays. Anything older is never truly new.
type Rules struct {
	NewMaxAgeDays       int
	NewMaxViews         int
	ImmediateAlertViews int
}

// Classifier turns raw search results into stored observations.
type Classifier struct {
	store         ObservationStore
	rules         Rules
	detailURLBase string
	logger        *slog.Logger
	now           func() time.Time
}

// NewClassifier builds a classifier writing through the given store.
func NewClassifier(store ObservationStore, rules Rules, detailURLBase string, logger *slog.Logger) *Classifier {
	return &Classifier{
		store:         store,
		rules:         rules,
		detailURLBase: detailURLBase,
		logger:        logger.With(slog.String("component", "classifier")),
		now:           time.Now,
	}
}

// Outcome reports what one observation did to the store.
type Outcome struct {
	Listing  domain.Listing
	Created  bool
	TrulyNew bool
	// Degraded is set when the price could not be parsed and the
	// listing was stored with a zero price.
	Degraded bool
}

// Classify normalizes one raw item and upserts it, evaluating the
// truly-new rules for first observations. A malformed price degrades to
// zero and is logged, never aborting the observation.
func (c *Classifier) Classify(ctx context.Context, item acquire.RawItem) (Outcome, error) {
	return c.classify(ctx, item, false)
}

// ClassifyBaseline stores an observation without ever flagging it truly
// new. Used during initial population, where everything on the market
// is old news.
func (c *Classifier) ClassifyBaseline(ctx context.Context, item acquire.RawItem) (Outcome, error) {
	return c.classify(ctx, item, true)
}

func (c *Classifier) classify(ctx context.Context, item acquire.RawItem, baseline bool) (Outcome, error) {
	now := c.now()

	l, err := item.ToListing(c.detailURLBase, now)
	var out Outcome
	if err != nil {
		var perr *domain.ParseError
		if !errors.As(err, &perr) {
			return out, err
		}
		out.Degraded = true
		c.logger.Warn("price parse failed, storing with zero price",
			slog.String("car_id", l.CarID),
			slog.String("error", err.Error()),
		)
	}

	if !l.IsLease && pricing.IsLeaseByHeuristics(l) {
		l.IsLease = true
	}
	l.TruePrice = pricing.TrueCost(l)
	l.FirstSeen = now

	if !baseline {
		l.IsTrulyNew = c.isTrulyNew(l)
	}

	res, err := c.store.UpsertObservation(ctx, l)
	if err != nil {
		return out, err
	}

	out.Listing = l
	out.Created = res.Created
	out.TrulyNew = res.Created && res.TrulyNew
	return out, nil
}

// isTrulyNew applies the freshness rules to a first observation.
func (c *Classifier) isTrulyNew(l domain.Listing) bool {
	if l.RegistrationDate == "" {
		return l.Views <= c.rules.ImmediateAlertViews
	}

	days := l.DaysSinceRegistration
	if days == 0 {
		days = RegistrationAgeDays(l.RegistrationDate, c.now())
	}
	if days >= 0 && days <= 7 && l.Views <= c.rules.NewMaxViews {
		return true
	}
	return days >= 0 && days <= c.rules.NewMaxAgeDays
}

// RegistrationAgeDays computes whole days since a YYYY/MM/DD
// registration date. Unparseable input returns -1.
func RegistrationAgeDays(regDate string, now time.Time) int {
	t, err := time.Parse("2006/01/02", regDate)
	if err != nil {
		return -1
	}
	return int(now.Sub(t).Hours() / 24)
}
