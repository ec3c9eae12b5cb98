// Package redis caches batch windows in Redis in front of a slower store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/content-progress/internal/contentstate"
	"github.com/JakeFAU/content-progress/internal/metrics"
)

// Client is the subset of *goredis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Ping(ctx context.Context) *goredis.StatusCmd
	Close() error
}

// Options configures a BatchCache.
type Options struct {
	KeyPrefix string
	TTL       time.Duration
}

// BatchCache is a read-through contentstate.BatchStore. Redis failures fall
// back to the inner store; concurrent misses for one batch share a lookup.
type BatchCache struct {
	client Client
	inner  contentstate.BatchStore
	prefix string
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewClient dials Redis at addr.
func NewClient(addr, password string, db int) *goredis.Client {
	opts, err := goredis.ParseURL(addr)
	if err != nil {
		opts = &goredis.Options{Addr: addr}
	}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}
	return goredis.NewClient(opts)
}

// NewBatchCache wraps inner with a Redis cache.
func NewBatchCache(client Client, inner contentstate.BatchStore, opts Options, logger *zap.Logger) *BatchCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	return &BatchCache{
		client: client,
		inner:  inner,
		prefix: opts.KeyPrefix,
		ttl:    opts.TTL,
		logger: logger.Named("batch_cache"),
	}
}

// Lookup returns the cached window, loading it from the inner store on a miss.
func (c *BatchCache) Lookup(ctx context.Context, batchID string) (contentstate.Window, error) {
	key := c.prefix + batchID
	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var w contentstate.Window
		if uerr := json.Unmarshal([]byte(raw), &w); uerr == nil {
			metrics.ObserveBatchCache("hit")
			return w, nil
		}
		c.logger.Warn("discarding undecodable cached window", zap.String("batch_id", batchID))
		metrics.ObserveBatchCache("miss")
	case errors.Is(err, goredis.Nil):
		metrics.ObserveBatchCache("miss")
	default:
		c.logger.Warn("batch cache read failed", zap.String("batch_id", batchID), zap.Error(err))
		metrics.ObserveBatchCache("error")
	}

	v, err, _ := c.group.Do(batchID, func() (any, error) {
		w, lerr := c.inner.Lookup(ctx, batchID)
		if lerr != nil {
			return contentstate.Window{}, lerr
		}
		c.store(ctx, key, w)
		return w, nil
	})
	if err != nil {
		return contentstate.Window{}, fmt.Errorf("batch lookup: %w", err)
	}
	return v.(contentstate.Window), nil
}

// Ping checks Redis connectivity.
func (c *BatchCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *BatchCache) Close() error {
	return c.client.Close()
}

func (c *BatchCache) store(ctx context.Context, key string, w contentstate.Window) {
	b, err := json.Marshal(w)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.logger.Warn("batch cache write failed", zap.String("key", key), zap.Error(err))
	}
}
