package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a window check. RetryAfter is the whole number
// of seconds until the current window expires; always > 0 when denied.
type Decision struct {
	Allowed    bool
	RetryAfter int
}

// Limiter is a fixed-window request gate keyed by a caller-supplied
// identity+route key. It is advisory: counter state may be lost on restart,
// which briefly relaxes abuse protection but never double-charges anyone.
// The quota ledger is the durable backstop.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

const keyPrefix = "ratelimit:"

// RedisLimiter counts events in non-sliding time buckets using INCR with a
// first-write EXPIRE. Shared across processes.
type RedisLimiter struct {
	rdb redis.Cmdable
}

func NewRedisLimiter(rdb redis.Cmdable) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	k := keyPrefix + key

	pipe := l.rdb.Pipeline()
	countCmd := pipe.Incr(ctx, k)
	// NX: only the write that creates the counter sets the window expiry
	pipe.ExpireNX(ctx, k, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	if countCmd.Val() <= int64(limit) {
		return Decision{Allowed: true}, nil
	}

	ttl, err := l.rdb.TTL(ctx, k).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return Decision{RetryAfter: ceilSeconds(ttl)}, nil
}

// MemoryLimiter is the single-process fallback with the same contract, used
// when Redis is disabled and in tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*windowState
	now     func() time.Time
}

type windowState struct {
	start time.Time
	count int
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*windowState),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Check(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket := now.Truncate(window)

	w, ok := l.windows[key]
	if !ok || !w.start.Equal(bucket) {
		w = &windowState{start: bucket}
		l.windows[key] = w
	}

	w.count++
	if w.count <= limit {
		return Decision{Allowed: true}, nil
	}

	remaining := w.start.Add(window).Sub(now)
	return Decision{RetryAfter: ceilSeconds(remaining)}, nil
}

func ceilSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}
