// Package cache memoizes read queries in Redis.
//
// Every scope carries a generation counter that is part of the entry key. Invalidate bumps the
// counter with INCR, so entries written before a mutation are never read again and expire on
// their own TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Scope groups entries invalidated together.
type Scope string

const (
	ScopeClients   Scope = "clients"
	ScopeOperators Scope = "operators"
	ScopeActivity  Scope = "activity"
)

// Cache is the read-memoization contract used by services.
type Cache interface {
	Generation(ctx context.Context, scope Scope) (int64, error)
	GetAt(ctx context.Context, scope Scope, gen int64, key string, dst any) (bool, error)
	SetAt(ctx context.Context, scope Scope, gen int64, key string, value any) error
	Invalidate(ctx context.Context, scope Scope) error
}

// RedisCache stores JSON-encoded values under a key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache builds a cache. A zero ttl defaults to one minute.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if prefix == "" {
		prefix = "crm"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) generationKey(scope Scope) string {
	return fmt.Sprintf("%s:gen:%s", c.prefix, scope)
}

// Generation returns the current generation of scope. A scope never invalidated is at 0.
func (c *RedisCache) Generation(ctx context.Context, scope Scope) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey(scope)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) entryKey(scope Scope, gen int64, key string) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.prefix, scope, strconv.FormatInt(gen, 10), key)
}

// GetAt decodes the entry stored under generation gen into dst and reports whether it was present.
func (c *RedisCache) GetAt(ctx context.Context, scope Scope, gen int64, key string, dst any) (bool, error) {
	entry := c.entryKey(scope, gen, key)
	raw, err := c.client.Get(ctx, entry).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", entry, err)
	}
	return true, nil
}

// SetAt stores value under generation gen. Values written for a generation that has since been
// invalidated are never read.
func (c *RedisCache) SetAt(ctx context.Context, scope Scope, gen int64, key string, value any) error {
	entry := c.entryKey(scope, gen, key)
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", entry, err)
	}
	return c.client.Set(ctx, entry, raw, c.ttl).Err()
}

// Get reads key under the current generation of scope.
func (c *RedisCache) Get(ctx context.Context, scope Scope, key string, dst any) (bool, error) {
	gen, err := c.Generation(ctx, scope)
	if err != nil {
		return false, err
	}
	return c.GetAt(ctx, scope, gen, key, dst)
}

// Set stores value under the current generation of scope.
func (c *RedisCache) Set(ctx context.Context, scope Scope, key string, value any) error {
	gen, err := c.Generation(ctx, scope)
	if err != nil {
		return err
	}
	return c.SetAt(ctx, scope, gen, key, value)
}

// Invalidate makes every existing entry of scope unreachable.
func (c *RedisCache) Invalidate(ctx context.Context, scope Scope) error {
	return c.client.Incr(ctx, c.generationKey(scope)).Err()
}

// Remember returns the cached value for (scope, key) or loads and stores it.
// The generation is resolved once, before load, so a load that races an Invalidate is stored under
// the superseded generation. Cache failures are logged and fall through to load.
func Remember[T any](ctx context.Context, c Cache, logger *zap.Logger, scope Scope, key string, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}

	gen, err := c.Generation(ctx, scope)
	if err != nil {
		logger.Warn("cache read failed", zap.String("scope", string(scope)), zap.String("key", key), zap.Error(err))
		return load(ctx)
	}

	var cached T
	hit, err := c.GetAt(ctx, scope, gen, key, &cached)
	if err != nil {
		logger.Warn("cache read failed", zap.String("scope", string(scope)), zap.String("key", key), zap.Error(err))
	} else if hit {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if err := c.SetAt(ctx, scope, gen, key, value); err != nil {
		logger.Warn("cache write failed", zap.String("scope", string(scope)), zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
