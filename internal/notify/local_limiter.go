package notify

import (
	"context"
	"sync"
	"time"

	"encarwatch/internal/domain"
)

// LocalLimiter is an in-process sliding window rate limiter used when
// Redis is not configured. State is lost on restart, which for a
// notification cap is acceptable.
type LocalLimiter struct {
	mu    sync.Mutex
	sends map[string][]time.Time
}

// NewLocalLimiter creates an in-memory limiter.
func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{sends: make(map[string][]time.Time)}
}

// Allow reports whether another event fits in the rolling window,
// counting it if so.
func (l *LocalLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-window)

	kept := l.sends[key][:0]
	for _, t := range l.sends[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.sends[key] = kept

	if len(kept) >= limit {
		return false, nil
	}
	l.sends[key] = append(kept, now)
	return true, nil
}

// Compile-time interface check.
var _ domain.RateLimiter = (*LocalLimiter)(nil)
