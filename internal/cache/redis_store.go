package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client the store needs
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisStore keeps entries in redis as JSON. Keys outlive their TTL by the
// retention window so an expired entry can still be served after a failed
// reload.
type RedisStore[T any] struct {
	client    RedisClient
	prefix    string
	retention time.Duration
}

// NewRedisStore creates a store whose keys are namespaced under prefix
func NewRedisStore[T any](client RedisClient, prefix string, retention time.Duration) *RedisStore[T] {
	return &RedisStore[T]{
		client:    client,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *RedisStore[T]) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore[T]) Load(ctx context.Context, key string) (Entry[T], bool, error) {
	var entry Entry[T]

	data, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return entry, false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return entry, true, nil
}

func (s *RedisStore[T]) Save(ctx context.Context, key string, entry Entry[T]) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	expiration := s.retention
	if expiration > 0 {
		if untilExpiry := time.Until(entry.ExpiresAt); untilExpiry > expiration {
			expiration = untilExpiry
		}
	}

	return s.client.Set(ctx, s.key(key), data, expiration).Err()
}

func (s *RedisStore[T]) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.key(key)
	}
	return s.client.Del(ctx, full...).Err()
}

func (s *RedisStore[T]) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+":*", 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", s.prefix, err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
