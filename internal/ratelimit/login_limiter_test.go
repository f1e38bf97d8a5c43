package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-service/internal/config"
)

func newTestLimiter(t *testing.T, attempts, windowSeconds int) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewLoginLimiter(client, config.RateLimitConfig{
		LoginAttempts:      attempts,
		LoginWindowSeconds: windowSeconds,
	}, zap.NewNop())
	return limiter, mr
}

func TestLoginLimiter_BlocksAfterBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, 60)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"), "attempt %d", i+1)
	}
	assert.False(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))
	assert.False(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))
}

func TestLoginLimiter_KeyedByEmailAndAddress(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, 60)
	ctx := context.Background()

	require.True(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))
	require.False(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))

	// A different caller or address has its own budget.
	assert.True(t, limiter.Allow(ctx, "other@example.com", "10.0.0.1"))
	assert.True(t, limiter.Allow(ctx, "user@example.com", "10.0.0.2"))
}

func TestLoginLimiter_WindowReset(t *testing.T) {
	limiter, mr := newTestLimiter(t, 2, 60)
	ctx := context.Background()

	require.True(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))
	require.True(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))
	require.False(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))

	mr.FastForward(61 * time.Second)

	assert.True(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))
}

func TestLoginLimiter_FailsOpenOnStoreError(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, 60)
	ctx := context.Background()

	require.True(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))
	mr.Close()

	// Counter is unreachable; availability wins over lockout.
	assert.True(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))
}

func TestLoginLimiter_DisabledWithoutClient(t *testing.T) {
	limiter := NewLoginLimiter(nil, config.RateLimitConfig{LoginAttempts: 1}, zap.NewNop())
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))
	assert.True(t, limiter.Allow(ctx, "user@example.com", "10.0.0.1"))

	var nilLimiter *LoginLimiter
	assert.True(t, nilLimiter.Allow(ctx, "user@example.com", "10.0.0.1"))
}

func TestLoginLimiter_DefaultAttempts(t *testing.T) {
	limiter := NewLoginLimiter(nil, config.RateLimitConfig{}, zap.NewNop())
	assert.Equal(t, 10, limiter.attempts)
}
