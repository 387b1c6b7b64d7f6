package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrRateLimited      = errors.New("too many login attempts")
	errRedisUnavailable = errors.New("login limiter redis unavailable")
)

// LoginLimiter counts login attempts per email and per client IP in fixed Redis windows.
type LoginLimiter struct {
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginLimiter builds a limiter. A nil client or maxAttempts <= 0 disables it.
func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginLimiter{redis: client, maxAttempts: maxAttempts, window: window, logger: logger}
}

// Allow records an attempt and returns ErrRateLimited once either key is over budget.
// Redis failures are logged and the attempt is allowed.
func (l *LoginLimiter) Allow(ctx context.Context, email, ip string) error {
	if l == nil || l.redis == nil || l.maxAttempts <= 0 {
		return nil
	}

	keys := []string{emailKey(email)}
	if ip != "" {
		keys = append(keys, ipKey(ip))
	}

	for _, key := range keys {
		if err := l.enforceKey(ctx, key); err != nil {
			if errors.Is(err, errRedisUnavailable) {
				l.logger.Warn("login limiter unavailable; allowing attempt", zap.Error(err))
				return nil
			}
			return err
		}
	}
	return nil
}

// Reset clears the per-email counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	if l == nil || l.redis == nil || l.maxAttempts <= 0 {
		return
	}
	if err := l.redis.Del(ctx, emailKey(email)).Err(); err != nil {
		l.logger.Warn("login limiter reset failed", zap.Error(err))
	}
}

func (l *LoginLimiter) enforceKey(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", errRedisUnavailable, err)
		}
	}

	if count > int64(l.maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func emailKey(email string) string {
	return "login:email:" + strings.ToLower(strings.TrimSpace(email))
}

func ipKey(ip string) string {
	return "login:ip:" + ip
}
