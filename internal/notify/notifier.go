// Package notify delivers listing alerts and cycle summaries. Delivery
// is strictly best-effort: failures are logged and reported to the
// caller, but nothing is retried or queued, and a full rate-limit
// window simply drops the message.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"encarwatch/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders behind a
// sliding-window rate limit.
type Notifier struct {
	senders []Sender
	limiter domain.RateLimiter
	limit   int
	window  time.Duration
	logger  *slog.Logger
}

const rateLimitKey = "notify"

// NewNotifier creates a Notifier. limiter may be nil to disable
// throttling entirely.
func NewNotifier(senders []Sender, limiter domain.RateLimiter, limit int, window time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		limiter: limiter,
		limit:   limit,
		window:  window,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends one message to every sender. When the rate limit window
// is exhausted the message is dropped, not queued: a stale alert about
// a fast-moving listing is worth less than nothing.
func (n *Notifier) Notify(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	if n.limiter != nil {
		allowed, err := n.limiter.Allow(ctx, rateLimitKey, n.limit, n.window)
		if err != nil {
			// A broken limiter must not silence the channel.
			n.logger.WarnContext(ctx, "rate limiter unavailable, sending anyway",
				slog.String("error", err.Error()))
		} else if !allowed {
			n.logger.WarnContext(ctx, "notification dropped, rate limit exhausted",
				slog.String("title", title))
			return domain.ErrRateLimited
		}
	}

	return n.dispatch(ctx, title, message)
}

// dispatch fans out to all senders concurrently. Errors from individual
// senders are collected and returned as a combined error; a single
// sender failure does not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	results := make([]string, len(n.senders))
	var g errgroup.Group
	for i, s := range n.senders {
		i, s := i, s
		g.Go(func() error {
			if err := s.Send(ctx, title, message); err != nil {
				n.logger.ErrorContext(ctx, "sender failed",
					slog.String("sender", s.Name()),
					slog.String("error", err.Error()),
				)
				results[i] = fmt.Sprintf("%s: %v", s.Name(), err)
				return nil
			}
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
			return nil
		})
	}
	_ = g.Wait()

	var errs []string
	for _, r := range results {
		if r != "" {
			errs = append(errs, r)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
