package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records in redis with per-window TTLs, so stale entries
// evict themselves and limiter state survives process restarts.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore constructs a store over an existing redis client. The
// namespace scopes key scans so Flush cannot touch unrelated data.
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "ratelimit"
	}
	return &RedisStore{client: client, namespace: namespace}
}

// Get returns the record for key, if present.
func (s *RedisStore) Get(ctx context.Context, key string) (Record, bool, error) {
	payload, err := s.client.Get(ctx, s.scoped(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("rate limit record read: %w", err)
	}

	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return Record{}, false, fmt.Errorf("rate limit record decode: %w", err)
	}
	return record, true, nil
}

// Put stores the record for key with the supplied ttl.
func (s *RedisStore) Put(ctx context.Context, key string, record Record, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("rate limit record encode: %w", err)
	}
	if err := s.client.Set(ctx, s.scoped(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("rate limit record write: %w", err)
	}
	return nil
}

// Delete removes the record for key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.scoped(key)).Err(); err != nil {
		return fmt.Errorf("rate limit record delete: %w", err)
	}
	return nil
}

// Flush removes every record in this store's namespace.
func (s *RedisStore) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.namespace+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("rate limit flush: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("rate limit scan: %w", err)
	}
	return nil
}

func (s *RedisStore) scoped(key string) string {
	return s.namespace + ":" + key
}
