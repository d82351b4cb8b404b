package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

// RateLimiter is a fixed-window counter shared across replicas through
// redis. One key gets RateLimit requests per RateWindow.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(cfg config.WebhookSettings) *RateLimiter {
	cfg = cfg.WithDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RateLimiter{client: client, limit: cfg.RateLimit, window: cfg.RateWindow}
}

// Allow reports whether the key is still inside its window budget. Errors
// mean redis is unreachable; the caller decides whether to fail open.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	counterKey := "webhook:rate:" + key

	count, err := l.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate counter %s: %w", counterKey, err)
	}
	if count == 1 {
		// First hit in this window owns the expiry.
		if err := l.client.Expire(ctx, counterKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate window on %s: %w", counterKey, err)
		}
	}
	return count <= int64(l.limit), nil
}

func (l *RateLimiter) Close() error {
	return l.client.Close()
}
