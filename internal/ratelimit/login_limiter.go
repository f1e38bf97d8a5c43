// Package ratelimit bounds authentication attempts per caller.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-service/internal/config"
)

const loginKeyPrefix = "ratelimit:login:"

// LoginLimiter is a fixed-window counter keyed by email and remote address.
// It fails open when Redis is unreachable: availability wins over lockout, and
// the failure is logged.
type LoginLimiter struct {
	client   *redis.Client
	attempts int
	window   time.Duration
	logger   *zap.Logger
}

// NewLoginLimiter builds the limiter; a nil client disables limiting.
func NewLoginLimiter(client *redis.Client, cfg config.RateLimitConfig, logger *zap.Logger) *LoginLimiter {
	attempts := cfg.LoginAttempts
	if attempts <= 0 {
		attempts = 10
	}
	return &LoginLimiter{
		client:   client,
		attempts: attempts,
		window:   cfg.LoginWindow(),
		logger:   logger,
	}
}

// Allow records one attempt and reports whether the caller is still within the
// window budget.
func (l *LoginLimiter) Allow(ctx context.Context, email, remoteAddr string) bool {
	if l == nil || l.client == nil {
		return true
	}

	key := fmt.Sprintf("%s%s:%s", loginKeyPrefix, email, remoteAddr)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("login rate limiter unavailable, failing open", zap.Error(err))
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("login rate limiter expire failed", zap.Error(err))
		}
	}
	return count <= int64(l.attempts)
}
