package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rctrack/internal/dashboard/models"
	"rctrack/pkg/platform/sentinel"
)

const (
	keyPrefix = "rctrack:stats:"
	genPrefix = "rctrack:stats-gen:"

	minGenTTL = time.Hour
)

var (
	// ErrCacheMiss is returned by Get when no fresh value is cached.
	ErrCacheMiss = sentinel.ErrNotFound
	// ErrStaleVersion is returned by SetIfVersion when the key was invalidated
	// after the caller read its version.
	ErrStaleVersion = errors.New("stats invalidated since version was read")
)

// RedisCache shares computed stats between instances. Values are JSON with a TTL,
// so a missed invalidation heals itself after one TTL. Each key carries a
// generation counter that Invalidate bumps; writes computed under an older
// generation are dropped.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	genTTL time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	genTTL := 10 * ttl
	if genTTL < minGenTTL {
		genTTL = minGenTTL
	}
	return &RedisCache{client: client, ttl: ttl, genTTL: genTTL}
}

func (c *RedisCache) Get(ctx context.Context, key string) (models.Stats, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Stats{}, ErrCacheMiss
	}
	if err != nil {
		return models.Stats{}, fmt.Errorf("get stats %s: %w", key, err)
	}
	var s models.Stats
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Stats{}, fmt.Errorf("decode stats %s: %w", key, sentinel.ErrInvalidState)
	}
	return s, nil
}

func (c *RedisCache) Version(ctx context.Context, key string) (uint64, error) {
	v, err := readGen(ctx, c.client, key)
	if err != nil {
		return 0, fmt.Errorf("read stats version %s: %w", key, err)
	}
	return v, nil
}

// SetIfVersion stores s only while the generation of key still equals version.
// The check and the write run in one WATCH/MULTI transaction.
func (c *RedisCache) SetIfVersion(ctx context.Context, key string, version uint64, s models.Stats) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGen(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != version {
			return ErrStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keyPrefix+key, raw, c.ttl)
			return nil
		})
		return err
	}, genPrefix+key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleVersion), errors.Is(err, redis.TxFailedErr):
		return ErrStaleVersion
	default:
		return fmt.Errorf("set stats %s: %w", key, err)
	}
}

// Invalidate bumps the generation of every key and drops its value atomically.
func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Incr(ctx, genPrefix+k)
			pipe.Expire(ctx, genPrefix+k, c.genTTL)
			pipe.Del(ctx, keyPrefix+k)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate stats: %w", err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGen(ctx context.Context, r getter, key string) (uint64, error) {
	v, err := r.Get(ctx, genPrefix+key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}
