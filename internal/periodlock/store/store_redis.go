package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"carbonledger/internal/periodlock"
	"carbonledger/internal/platform/redis"
)

const (
	lockKeyPrefix = "periodlock:"
	lockIndexKey  = "periodlock:index"
)

// RedisStore keeps period lock state in Redis so multiple gateway replicas
// observe the same lock decisions. Entries never expire; a lock stands until
// an operator reopens the period.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, period string) (*periodlock.Lock, error) {
	raw, err := s.client.Get(ctx, lockKeyPrefix+period).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get period lock: %w", err)
	}

	var lock periodlock.Lock
	if err := json.Unmarshal(raw, &lock); err != nil {
		return nil, fmt.Errorf("unmarshal period lock: %w", err)
	}
	return &lock, nil
}

func (s *RedisStore) Set(ctx context.Context, lock periodlock.Lock) error {
	raw, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("marshal period lock: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, lockKeyPrefix+lock.Period, raw, 0)
	pipe.SAdd(ctx, lockIndexKey, lock.Period)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set period lock: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]periodlock.Lock, error) {
	periods, err := s.client.SMembers(ctx, lockIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list period locks: %w", err)
	}
	if len(periods) == 0 {
		return []periodlock.Lock{}, nil
	}

	keys := make([]string, len(periods))
	for i, p := range periods {
		keys[i] = lockKeyPrefix + p
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget period locks: %w", err)
	}

	out := make([]periodlock.Lock, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // index entry without a value, skip
		}
		var lock periodlock.Lock
		if err := json.Unmarshal([]byte(raw), &lock); err != nil {
			return nil, fmt.Errorf("unmarshal period lock: %w", err)
		}
		out = append(out, lock)
	}
	sortLocks(out)
	return out, nil
}
