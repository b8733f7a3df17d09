package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	return s, redis.NewClient(&redis.Options{Addr: s.Addr()})
}

func TestRedisLimiter_UnderLimit(t *testing.T) {
	_, rdb := setupMiniredis(t)
	l := NewRedisLimiter(rdb)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		dec, err := l.Check(ctx, "user-1:quick", 10, time.Minute)
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "request %d should be allowed", i+1)
	}
}

func TestRedisLimiter_OverLimit(t *testing.T) {
	_, rdb := setupMiniredis(t)
	l := NewRedisLimiter(rdb)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		dec, err := l.Check(ctx, "user-1:quick", 10, time.Minute)
		require.NoError(t, err)
		require.True(t, dec.Allowed)
	}

	dec, err := l.Check(ctx, "user-1:quick", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Greater(t, dec.RetryAfter, 0)
	assert.LessOrEqual(t, dec.RetryAfter, 60)
}

func TestRedisLimiter_WindowRollover(t *testing.T) {
	s, rdb := setupMiniredis(t)
	l := NewRedisLimiter(rdb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Check(ctx, "user-1:quick", 3, time.Minute)
		require.NoError(t, err)
	}
	dec, err := l.Check(ctx, "user-1:quick", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	// The counter expires with the window; a fresh window starts clean.
	s.FastForward(61 * time.Second)

	dec, err = l.Check(ctx, "user-1:quick", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestRedisLimiter_IndependentKeys(t *testing.T) {
	_, rdb := setupMiniredis(t)
	l := NewRedisLimiter(rdb)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		dec, err := l.Check(ctx, "user-1:quick", 2, time.Minute)
		require.NoError(t, err)
		require.True(t, dec.Allowed)
	}
	dec, err := l.Check(ctx, "user-1:quick", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)

	// Same user, different class: separate window.
	dec, err = l.Check(ctx, "user-1:deep", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	// Different user entirely.
	dec, err = l.Check(ctx, "user-2:quick", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		dec, err := l.Check(ctx, "user-1:quick", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
	}

	dec, err := l.Check(ctx, "user-1:quick", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	// 30s into the minute bucket, so 30s remain.
	assert.Equal(t, 30, dec.RetryAfter)

	// Advance past the window boundary; counter resets.
	now = now.Add(31 * time.Second)
	dec, err = l.Check(ctx, "user-1:quick", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestMemoryLimiter_RetryAfterNeverZero(t *testing.T) {
	// A denial at the very end of the window still reports at least 1s.
	now := time.Date(2026, 3, 1, 12, 0, 59, int(900*time.Millisecond), time.UTC)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := l.Check(ctx, "k", 1, time.Minute)
	require.NoError(t, err)

	dec, err := l.Check(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	assert.GreaterOrEqual(t, dec.RetryAfter, 1)
}
