package querycache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/NicholasBallas/idr-intelligence-platform/pkg/logger"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/redis"
)

// Cache memoizes expensive filtered aggregate views. Entries live in Redis
// under a generation-scoped key; Invalidate bumps the generation, which
// retires every cached view at once (coarse invalidation — ingestion is a
// rare bulk operation). A singleflight group guarantees at most one
// computation per key is in flight; concurrent callers share its result.
type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

// New creates a query cache. prefix namespaces the Redis keys; ttl bounds how
// long entries from retired generations linger.
func New(rdb *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Cache) generationKey() string {
	return c.prefix + ":generation"
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. Redis being unreachable degrades to computing directly — readers
// never fail because the cache is down. A caller whose context is cancelled
// stops waiting; the shared computation itself is not cancelled.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	log := logger.WithContext(ctx)

	generation, err := c.rdb.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		log.Warn("Query cache unavailable, computing directly", zap.Error(err))
		generation = 0
	}

	fullKey := fmt.Sprintf("%s:%d:%s", c.prefix, generation, key)

	cached, err := c.rdb.Get(ctx, fullKey).Bytes()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, goredis.Nil) {
		log.Warn("Query cache read failed", zap.String("key", fullKey), zap.Error(err))
	}

	// Detach the computation from this caller's context so an early
	// abandoner does not cancel the result other callers are waiting on.
	computeCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(fullKey, func() (interface{}, error) {
		value, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}
		if setErr := c.rdb.Set(computeCtx, fullKey, value, c.ttl).Err(); setErr != nil {
			log.Warn("Query cache write failed", zap.String("key", fullKey), zap.Error(setErr))
		}
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate retires every cached view by bumping the generation counter.
// Called after each successful ingestion batch.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}
