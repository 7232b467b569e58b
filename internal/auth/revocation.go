package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations records, per user, the instant before which issued tokens are
// no longer honoured. Markers only need to outlive the token TTL.
type Revocations interface {
	MarkRevoked(ctx context.Context, userID string, at time.Time) error
	RevokedAt(ctx context.Context, userID string) (time.Time, bool, error)
}

// MemoryRevocations keeps markers in process memory. Suitable for a single
// instance; markers are lost on restart.
type MemoryRevocations struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryMarker
}

type memoryMarker struct {
	at        time.Time
	expiresAt time.Time
}

func NewMemoryRevocations(ttl time.Duration) *MemoryRevocations {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &MemoryRevocations{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryMarker),
	}
}

func (m *MemoryRevocations) MarkRevoked(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, id)
		}
	}
	m.entries[userID] = memoryMarker{at: at.Truncate(time.Second), expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryRevocations) RevokedAt(_ context.Context, userID string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[userID]
	if !ok || m.now().After(e.expiresAt) {
		return time.Time{}, false, nil
	}
	return e.at, true, nil
}

// RedisRevocations stores markers as unix seconds under "<prefix><userID>"
// with the token TTL as expiry, so every instance sees the same markers.
type RedisRevocations struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisRevocations(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisRevocations {
	if prefix == "" {
		prefix = "forecast:revoked:"
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &RedisRevocations{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRevocations) MarkRevoked(ctx context.Context, userID string, at time.Time) error {
	if err := r.client.Set(ctx, r.prefix+userID, at.Unix(), r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}
	return nil
}

func (r *RedisRevocations) RevokedAt(ctx context.Context, userID string) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: malformed marker for %s", ErrRevocationUnavailable, userID)
	}
	return time.Unix(secs, 0), true, nil
}
