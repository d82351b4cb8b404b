package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

func testRateLimiter(t *testing.T, limit int, window time.Duration) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	limiter := NewRateLimiter(config.WebhookSettings{
		RedisAddr:  mr.Addr(),
		RateLimit:  limit,
		RateWindow: window,
	})
	t.Cleanup(func() { limiter.Close() })
	return limiter, mr
}

func TestRateLimiter_AllowsWithinBudget(t *testing.T) {
	limiter, _ := testRateLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "facebook:10.0.0.1")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestRateLimiter_BlocksOverBudget(t *testing.T) {
	limiter, _ := testRateLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "twitter:10.0.0.1")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "twitter:10.0.0.1")
	assert.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _ := testRateLimiter(t, 1, time.Minute)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "reddit:10.0.0.1")
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "reddit:10.0.0.2")
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	limiter, mr := testRateLimiter(t, 1, time.Second)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "linkedin:10.0.0.1")
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "linkedin:10.0.0.1")
	assert.NoError(t, err)
	assert.False(t, allowed)

	mr.FastForward(2 * time.Second)

	allowed, err = limiter.Allow(ctx, "linkedin:10.0.0.1")
	assert.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_RedisDown(t *testing.T) {
	limiter, mr := testRateLimiter(t, 1, time.Minute)
	mr.Close()

	allowed, err := limiter.Allow(context.Background(), "facebook:10.0.0.1")
	assert.Error(t, err)
	assert.False(t, allowed)
}
