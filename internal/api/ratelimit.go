package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"notifier/internal/config"
	"notifier/internal/types"
)

// rateLimitKeyPrefix namespaces rate limit counters so they can coexist with
// other keys in a shared Redis.
const rateLimitKeyPrefix = "ratelimit:"

// RedisRateLimitStore implements types.RateLimitStore with a fixed-window
// counter per client key. The counter and its expiry are updated atomically
// in a single pipelined transaction, so concurrent requests cannot create an
// orphaned counter without a TTL.
type RedisRateLimitStore struct {
	client *redis.Client
	limit  int
	window time.Duration
}

var _ types.RateLimitStore = (*RedisRateLimitStore)(nil)

// NewRedisRateLimitStore connects to Redis and verifies connectivity with a
// ping.
func NewRedisRateLimitStore(ctx context.Context, redisURL string, cfg config.RateLimitConfig) (*RedisRateLimitStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisRateLimitStore{
		client: client,
		limit:  cfg.RequestsPerWindow,
		window: cfg.Window,
	}, nil
}

// IncrementAndCheck implements types.RateLimitStore.
func (s *RedisRateLimitStore) IncrementAndCheck(ctx context.Context, key string) (types.RateLimitInfo, bool, error) {
	redisKey := rateLimitKeyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// NX: only set the expiry when the key has none, i.e. on the first
	// request of a window.
	pipe.ExpireNX(ctx, redisKey, s.window)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return types.RateLimitInfo{}, false, fmt.Errorf("incrementing rate limit counter: %w", err)
	}

	count := int(incr.Val())
	remaining := s.limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetAt := time.Now().UTC().Add(s.window)
	if d := ttl.Val(); d > 0 {
		resetAt = time.Now().UTC().Add(d)
	}

	info := types.RateLimitInfo{
		Limit:     s.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	return info, count <= s.limit, nil
}

// Ping reports Redis connectivity, for use as a health probe.
func (s *RedisRateLimitStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (s *RedisRateLimitStore) Close() error {
	return s.client.Close()
}
