// Package locks provides per-key mutual exclusion for credential refresh.
// Two implementations are available: an in-process keyed mutex for single
// instance deployments, and a Redis-backed lock for multi-instance ones.
//
// Example usage:
//
//	manager := locks.NewKeyedMutex()
//
//	release, err := manager.Acquire(ctx, "refresh:default")
//	if err != nil {
//		return err
//	}
//	defer release()
//
//	// Only one goroutine per key reaches this point at a time
package locks

import (
	"context"
	"sync"
	"time"
)

// Manager serializes work per key. Acquire blocks until the key's lock is
// held or the context is cancelled; the returned Release must be called
// exactly once.
type Manager interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Release frees a lock obtained from Acquire.
type Release func()

// KeyedMutex is an in-process Manager backed by one mutex per key.
// Entries are reference-counted and removed when the last holder releases,
// so the map does not grow with the number of distinct keys ever seen.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*mutexEntry
}

type mutexEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an in-process per-key lock manager.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*mutexEntry),
	}
}

// Acquire locks the mutex for key, waiting in a goroutine so the caller's
// context can interrupt the wait.
func (k *KeyedMutex) Acquire(ctx context.Context, key string) (Release, error) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &mutexEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	locked := make(chan struct{})
	go func() {
		entry.mu.Lock()
		close(locked)
	}()

	select {
	case <-locked:
		return func() {
			entry.mu.Unlock()
			k.drop(key, entry)
		}, nil
	case <-ctx.Done():
		// The goroutine will eventually lock; unlock and drop once it does
		go func() {
			<-locked
			entry.mu.Unlock()
			k.drop(key, entry)
		}()
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) drop(key string, entry *mutexEntry) {
	k.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}

// RedisLockClient defines the operations RedisManager needs from Redis.
type RedisLockClient interface {
	AcquireLock(ctx context.Context, key string, expiration time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// RedisManager is a Manager backed by Redis SetNX, for deployments running
// more than one instance against the same credential store.
type RedisManager struct {
	redis      RedisLockClient
	expiration time.Duration
	retryEvery time.Duration
}

// NewRedisManager creates a Redis-backed per-key lock manager. The lock
// expiration bounds how long a crashed holder can block other instances.
func NewRedisManager(client RedisLockClient) *RedisManager {
	return &RedisManager{
		redis:      client,
		expiration: 30 * time.Second,
		retryEvery: 50 * time.Millisecond,
	}
}

// Acquire polls SetNX until the lock is obtained or the context ends.
func (r *RedisManager) Acquire(ctx context.Context, key string) (Release, error) {
	for {
		acquired, err := r.redis.AcquireLock(ctx, key, r.expiration)
		if err != nil {
			return nil, err
		}
		if acquired {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = r.redis.ReleaseLock(releaseCtx, key)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retryEvery):
		}
	}
}
