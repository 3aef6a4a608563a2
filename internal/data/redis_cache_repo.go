package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache key prefixes. Payment marks dedup at-least-once confirmation
// callbacks; report entries cache review output for identical inputs.
const (
	paymentConfirmKeyPrefix = "reviewer:payment_confirmed:"
	reportCacheKeyPrefix    = "reviewer:report:"
)

// RedisCacheRepo implements the CacheRepository interface using Redis.
type RedisCacheRepo struct {
	client redis.UniversalClient
}

// NewRedisCacheRepo creates a new RedisCacheRepo with the given Redis client.
func NewRedisCacheRepo(client redis.UniversalClient) *RedisCacheRepo {
	return &RedisCacheRepo{client: client}
}

// Set stores a value in Redis with the given key and TTL.
func (r *RedisCacheRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	return r.client.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a value from Redis by key. A missing key returns (nil, nil).
func (r *RedisCacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return []byte(result), nil
}

// Delete removes a key from Redis.
func (r *RedisCacheRepo) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("key cannot be empty")
	}

	result, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}

	return result > 0, nil
}

// MarkPaymentConfirmed records that a confirmation callback for the payment
// was already consumed. Returns true on the first mark, false for
// duplicates. A best-effort complement to the in-process dispatch guard:
// it survives restarts, the guard does not.
func (r *RedisCacheRepo) MarkPaymentConfirmed(
	ctx context.Context,
	paymentID string,
	ttl time.Duration,
) (bool, error) {
	if paymentID == "" {
		return false, errors.New("payment id cannot be empty")
	}

	first, err := r.client.SetNX(ctx, paymentConfirmKeyPrefix+paymentID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return first, nil
}

// ReportCacheKey builds the cache key for a review report by input hash.
func ReportCacheKey(inputHash string) string {
	return reportCacheKeyPrefix + inputHash
}
