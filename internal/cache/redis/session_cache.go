package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"encarwatch/internal/domain"
)

const sessionKey = "acquire:session"

// SessionCache mirrors the browser-harvested session in Redis so a
// process restart can reuse it instead of launching a browser. The key
// expires with the session TTL, so a stale mirror can never outlive the
// session it holds.
type SessionCache struct {
	rdb *redis.Client
}

// NewSessionCache creates a SessionCache backed by the given Client.
func NewSessionCache(c *Client) *SessionCache {
	return &SessionCache{rdb: c.Underlying()}
}

// SetSession stores the session with an expiry matching its remaining TTL.
func (s *SessionCache) SetSession(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis: marshal session: %w", err)
	}
	ttl := sess.TTL - time.Since(sess.CreatedAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, sessionKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set session: %w", err)
	}
	return nil
}

// GetSession retrieves the mirrored session, or domain.ErrNotFound.
func (s *SessionCache) GetSession(ctx context.Context) (*domain.Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("redis: unmarshal session: %w", err)
	}
	return &sess, nil
}

// InvalidateSession drops the mirrored session.
func (s *SessionCache) InvalidateSession(ctx context.Context) error {
	if err := s.rdb.Del(ctx, sessionKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate session: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SessionCache = (*SessionCache)(nil)
