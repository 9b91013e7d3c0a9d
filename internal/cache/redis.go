package cache

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/titan-aas/titan-aas/pkg/metrics"
)

// RedisCache implements Cache against a go-redis/v8 client, pipelining
// the bytes+etag pair fetch into a single round trip and using SCAN
// (never KEYS, to avoid blocking the server) for pattern-based deletes.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an already-configured *redis.Client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) GetPair(ctx context.Context, kind EntityKind, idB64 string) (Pair, bool, error) {
	pipe := c.client.Pipeline()
	bytesCmd := pipe.Get(ctx, bytesKey(kind, idB64))
	etagCmd := pipe.Get(ctx, etagKey(kind, idB64))
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return Pair{}, false, fmt.Errorf("cache: get pair: %w", err)
	}

	bytesVal, err := bytesCmd.Bytes()
	if err == redis.Nil {
		metrics.RecordCacheOp(string(kind), "miss")
		return Pair{}, false, nil
	}
	if err != nil {
		return Pair{}, false, fmt.Errorf("cache: read bytes: %w", err)
	}
	etagVal, err := etagCmd.Result()
	if err == redis.Nil {
		metrics.RecordCacheOp(string(kind), "miss")
		return Pair{}, false, nil
	}
	if err != nil {
		return Pair{}, false, fmt.Errorf("cache: read etag: %w", err)
	}
	metrics.RecordCacheOp(string(kind), "hit")
	return Pair{Bytes: bytesVal, ETag: etagVal}, true, nil
}

func (c *RedisCache) SetPair(ctx context.Context, kind EntityKind, idB64 string, pair Pair) error {
	pipe := c.client.Pipeline()
	pipe.Set(ctx, bytesKey(kind, idB64), pair.Bytes, EntityTTL)
	pipe.Set(ctx, etagKey(kind, idB64), pair.ETag, EntityTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: set pair: %w", err)
	}
	metrics.RecordCacheOp(string(kind), "write")
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, kind EntityKind, idB64 string) error {
	if err := c.client.Del(ctx, bytesKey(kind, idB64), etagKey(kind, idB64)).Err(); err != nil {
		return fmt.Errorf("cache: delete pair: %w", err)
	}
	return nil
}

func (c *RedisCache) GetElementValue(ctx context.Context, smIDB64, idShortPath string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, elementValueKey(smIDB64, idShortPath)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get element value: %w", err)
	}
	return val, true, nil
}

func (c *RedisCache) SetElementValue(ctx context.Context, smIDB64, idShortPath string, value []byte) error {
	if err := c.client.Set(ctx, elementValueKey(smIDB64, idShortPath), value, ElementValueTTL).Err(); err != nil {
		return fmt.Errorf("cache: set element value: %w", err)
	}
	return nil
}

func (c *RedisCache) DeleteElementValue(ctx context.Context, smIDB64, idShortPath string) error {
	if err := c.client.Del(ctx, elementValueKey(smIDB64, idShortPath)).Err(); err != nil {
		return fmt.Errorf("cache: delete element value: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateSubmodelElements(ctx context.Context, smIDB64 string) error {
	pattern := elementValuePattern(smIDB64)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan element values: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: delete element values: %w", err)
	}
	return nil
}
