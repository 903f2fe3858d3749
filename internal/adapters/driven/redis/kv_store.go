package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/integra/internal/core/domain"
	"github.com/custodia-labs/integra/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KVStore = (*KVStore)(nil)

// KVStore implements driven.KVStore using Redis.
// Expiration is native (SET with TTL), so Cleanup is a no-op.
type KVStore struct {
	client *redis.Client
}

// NewKVStore creates a new Redis-backed KVStore.
func NewKVStore(client *redis.Client) *KVStore {
	return &KVStore{client: client}
}

// Set stores value under key with an optional TTL.
func (s *KVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Get returns the stored value, or domain.ErrNotFound for absent keys.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// GetDel atomically reads and removes the key (GETDEL).
func (s *KVStore) GetDel(ctx context.Context, key string) (string, error) {
	value, err := s.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getdel %s: %w", key, err)
	}
	return value, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// Cleanup is a no-op: Redis expires keys natively.
func (s *KVStore) Cleanup(ctx context.Context) error {
	return nil
}

// Ping checks if the Redis backend is healthy.
func (s *KVStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
