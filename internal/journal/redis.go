// SPDX-License-Identifier: MIT

package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisRecordsKey = "nerve:journal:records"
	redisOrderKey   = "nerve:journal:order"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	MaxRecords int
}

// RedisStore keeps records in a hash keyed by record key, with a sorted set
// scored by sequence for ordering.
type RedisStore struct {
	client *redis.Client
	max    int
}

// OpenRedisStore connects and verifies the server is reachable.
func OpenRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisStore(client, cfg.MaxRecords), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, maxRecords int) *RedisStore {
	return &RedisStore{client: client, max: maxRecords}
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: encode: %w", err)
	}
	key := rec.key()
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, redisRecordsKey, key, data)
		p.ZAdd(ctx, redisOrderKey, redis.Z{Score: float64(rec.Sequence), Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save: %w", err)
	}
	if s.max > 0 {
		return s.trim(ctx)
	}
	return nil
}

func (s *RedisStore) trim(ctx context.Context) error {
	n, err := s.client.ZCard(ctx, redisOrderKey).Result()
	if err != nil {
		return fmt.Errorf("redis: trim: %w", err)
	}
	excess := n - int64(s.max)
	if excess <= 0 {
		return nil
	}
	stale, err := s.client.ZRange(ctx, redisOrderKey, 0, excess-1).Result()
	if err != nil {
		return fmt.Errorf("redis: trim: %w", err)
	}
	members := make([]any, len(stale))
	for i, k := range stale {
		members[i] = k
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, redisRecordsKey, stale...)
		p.ZRem(ctx, redisOrderKey, members...)
		return nil
	})
	return err
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	keys, err := s.client.ZRevRange(ctx, redisOrderKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: range: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.client.HMGet(ctx, redisRecordsKey, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get: %w", err)
	}
	out := make([]Record, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("redis: decode: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, redisRecordsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: count: %w", err)
	}
	return int(n), nil
}

// HealthCheck checks if Redis is available.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
