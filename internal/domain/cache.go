package domain

import (
	"context"
	"time"
)

// RateLimiter caps how often a keyed event may happen inside a rolling
// window. Callers that hit the cap drop the event rather than queue it.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SessionCache mirrors the harvested acquisition session so a restart
// can reuse it instead of launching a browser.
type SessionCache interface {
	SetSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context) (*Session, error)
	InvalidateSession(ctx context.Context) error
}
