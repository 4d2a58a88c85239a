package persist

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long cached session location state lives in Redis.
// A session that stays idle past this simply re-resolves on next use.
const DefaultTTL = 90 * 24 * time.Hour

// RedisKV is a Redis-backed implementation of KV.
type RedisKV struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKV creates a Redis-backed key-value store.
// A non-positive ttl falls back to DefaultTTL.
func NewRedisKV(client *redis.Client, ttl time.Duration) *RedisKV {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisKV{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the stored value for key, or ErrNotFound.
func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// Set stores value under key with the configured TTL.
func (s *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, s.ttl).Err()
}

// Delete removes key. Deleting a missing key is not an error.
func (s *RedisKV) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
