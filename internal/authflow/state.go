package authflow

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"jobtrack/internal/common/errors"
	"jobtrack/internal/redis"
)

// stateTTL bounds how long a consent round trip may take.
const stateTTL = 10 * time.Minute

// StateStore issues and consumes anti-CSRF state tokens. A token binds a
// pending authorization to an identity, expires after stateTTL, and is
// consumed exactly once, so a replayed callback fails.
type StateStore interface {
	// Issue creates a new state token bound to identity.
	Issue(ctx context.Context, identity string) (string, error)

	// Consume looks up and invalidates a state token, returning the bound
	// identity. Unknown, expired, and already-consumed tokens all return a
	// state_mismatch error.
	Consume(ctx context.Context, state string) (string, error)
}

// newStateToken returns a 32-byte random token, URL-safe encoded.
func newStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.InternalError("failed to generate state token", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MemoryStateStore keeps pending states in process memory. Suitable for a
// single instance; multi-instance deployments use RedisStateStore.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]stateEntry
}

type stateEntry struct {
	identity string
	expires  time.Time
}

// NewMemoryStateStore creates an in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string]stateEntry),
	}
}

func (s *MemoryStateStore) Issue(ctx context.Context, identity string) (string, error) {
	state, err := newStateToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.states[state] = stateEntry{
		identity: identity,
		expires:  time.Now().Add(stateTTL),
	}
	s.mu.Unlock()

	return state, nil
}

func (s *MemoryStateStore) Consume(ctx context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.states[state]
	if !ok {
		return "", errors.StateMismatchError("unknown or already used state token")
	}
	delete(s.states, state)

	if time.Now().After(entry.expires) {
		return "", errors.StateMismatchError("state token has expired")
	}

	return entry.identity, nil
}

// Sweep removes expired entries. Called periodically by the cron scheduler
// so abandoned consent attempts do not accumulate.
func (s *MemoryStateStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for state, entry := range s.states {
		if now.After(entry.expires) {
			delete(s.states, state)
			removed++
		}
	}
	return removed
}

// RedisStateStore keeps pending states in Redis. Expiry is enforced by the
// key TTL and single-use by the atomic GetDel.
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore creates a Redis-backed state store.
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) Issue(ctx context.Context, identity string) (string, error) {
	state, err := newStateToken()
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, "oauth_state:"+state, identity, stateTTL); err != nil {
		return "", errors.InternalError("failed to persist state token", err)
	}

	return state, nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	identity, err := s.client.GetDel(ctx, "oauth_state:"+state)
	if err != nil {
		if redis.IsNotFound(err) {
			return "", errors.StateMismatchError("unknown, expired, or already used state token")
		}
		return "", errors.InternalError("failed to consume state token", err)
	}
	return identity, nil
}
