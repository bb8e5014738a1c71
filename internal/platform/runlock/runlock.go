// Package runlock provides a best-effort lease that keeps overlapping
// enforcement invocations from running concurrently. It is advisory: every
// mutation behind it is independently safe under concurrency via store-level
// constraints, so losing the lease (Redis down, TTL expiry mid-run) degrades
// to at-most duplicate work, never incorrect state.
package runlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only while it still holds this
// acquisition's token, so a holder whose TTL lapsed mid-run cannot free a
// lease someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock acquires and releases a named lease in Redis.
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

// New builds a lock around an existing Redis client. A nil client yields a
// nil Lock, which Acquire treats as "always available".
func New(client *redis.Client, key string, ttl time.Duration) *Lock {
	if client == nil {
		return nil
	}
	return &Lock{client: client, key: key, ttl: ttl}
}

// Acquire attempts to take the lease under a fresh token. Returns false when
// another holder has it. Redis errors are returned so callers can decide
// whether to proceed without overlap protection.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	if l == nil {
		return true, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.token = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees the lease if this holder's token is still on it. Safe to
// call on a nil Lock, after TTL expiry, or without a prior Acquire.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}
