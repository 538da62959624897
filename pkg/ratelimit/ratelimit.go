package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	extratelimit "github.com/vnmchuo/ratelimiter"
)

// Limiter is a thin wrapper around github.com/vnmchuo/ratelimiter, bucketing
// requests per hashed API key.
type Limiter struct {
	store extratelimit.Limiter
}

func NewLimiter(rdb *redis.Client, requestsPerMinute int64) *Limiter {
	store := extratelimit.NewRedisStore(rdb,
		extratelimit.WithLimit(int(requestsPerMinute)),
		extratelimit.WithWindow(time.Minute),
	)
	return &Limiter{store: store}
}

func NewTestLimiter(store extratelimit.Limiter) *Limiter {
	return &Limiter{store: store}
}

// Allow consumes one request from keyHash's bucket.
func (l *Limiter) Allow(ctx context.Context, keyHash string) (bool, error) {
	res, err := l.store.Allow(ctx, "ratelimit:key:"+keyHash)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}
