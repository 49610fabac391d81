package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "pen-inventory:"
	variantPrefix = keyPrefix + "variant:"
	summaryPrefix = keyPrefix + "summary:"
	generationKey = keyPrefix + "generation"
)

// Cache is a cache-aside JSON store over redis. A nil *Cache is valid and
// behaves as an always-empty cache, so callers never branch on configuration.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

// Connect opens a client and verifies it answers PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func VariantKey(id uuid.UUID) string {
	return variantPrefix + id.String()
}

func SummaryKey(path string) string {
	return summaryPrefix + path
}

// GetJSON loads key into dest. ok is false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Generation is bumped by every invalidation. Read it before loading from the
// database and pass it to SetJSONIfGeneration so a fill that raced with a
// write is dropped instead of cached.
func (c *Cache) Generation(ctx context.Context) (int64, error) {
	if c == nil {
		return 0, nil
	}
	return generation(ctx, c.client)
}

// SetJSONIfGeneration stores value only while the generation still equals gen.
// stored is false when an invalidation happened in between.
func (c *Cache) SetJSONIfGeneration(ctx context.Context, key string, gen int64, value interface{}) (stored bool, err error) {
	if c == nil {
		return false, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx)
		if err != nil || current != gen {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		stored = err == nil
		return err
	}, generationKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, g getter) (int64, error) {
	n, err := g.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *Cache) bumpGeneration(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// InvalidateVariants drops the given variant entries and every cached summary.
func (c *Cache) InvalidateVariants(ctx context.Context, ids ...uuid.UUID) error {
	if c == nil {
		return nil
	}
	if err := c.bumpGeneration(ctx); err != nil {
		return err
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, VariantKey(id))
	}
	if err := c.Delete(ctx, keys...); err != nil {
		return err
	}
	return c.deletePrefix(ctx, summaryPrefix)
}

// InvalidateCatalog drops every cached variant and summary.
func (c *Cache) InvalidateCatalog(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.bumpGeneration(ctx); err != nil {
		return err
	}
	if err := c.deletePrefix(ctx, variantPrefix); err != nil {
		return err
	}
	return c.deletePrefix(ctx, summaryPrefix)
}

// deletePrefix walks the keyspace with SCAN, never KEYS, to avoid blocking redis.
func (c *Cache) deletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
