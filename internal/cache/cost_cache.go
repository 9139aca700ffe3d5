package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"precifica/internal/config"
	"precifica/internal/costing"
	applog "precifica/internal/log"
)

const keyPrefix = "precifica:cost:"

// CostCache stores computed product costs in Redis so list endpoints avoid
// re-walking recipe trees on every request. All methods are safe on a nil
// receiver, which is how the cache behaves when no REDIS_URL is configured.
type CostCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis when a cache URL is configured. An empty URL returns
// a nil cache, which disables caching without branching at call sites.
func New(ctx context.Context, cfg config.CacheConfig) (*CostCache, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	applog.Info(ctx, "cost cache connected", "ttl", ttl.String())
	return &CostCache{client: client, ttl: ttl}, nil
}

// Enabled reports whether a Redis backend is attached.
func (c *CostCache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetProductCost returns a cached cost breakdown when present.
func (c *CostCache) GetProductCost(ctx context.Context, productID uint) (costing.Cost, bool) {
	if !c.Enabled() {
		return costing.Cost{}, false
	}

	raw, err := c.client.Get(ctx, costKey(productID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			applog.Warn(ctx, "cost cache read failed", "productID", productID, "error", err)
		}
		return costing.Cost{}, false
	}

	var cost costing.Cost
	if err := json.Unmarshal([]byte(raw), &cost); err != nil {
		applog.Warn(ctx, "cost cache entry corrupt", "productID", productID, "error", err)
		return costing.Cost{}, false
	}
	return cost, true
}

// SetProductCost stores a cost breakdown with the configured TTL. Failures
// are logged and swallowed: the cache is an optimization, never a
// correctness dependency.
func (c *CostCache) SetProductCost(ctx context.Context, cost costing.Cost) {
	if !c.Enabled() {
		return
	}

	raw, err := json.Marshal(cost)
	if err != nil {
		applog.Warn(ctx, "cost cache marshal failed", "productID", cost.ProductID, "error", err)
		return
	}
	if err := c.client.Set(ctx, costKey(cost.ProductID), raw, c.ttl).Err(); err != nil {
		applog.Warn(ctx, "cost cache write failed", "productID", cost.ProductID, "error", err)
	}
}

// Invalidate drops cached entries for the listed products.
func (c *CostCache) Invalidate(ctx context.Context, productIDs ...uint) {
	if !c.Enabled() || len(productIDs) == 0 {
		return
	}

	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, costKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		applog.Warn(ctx, "cost cache invalidation failed", "error", err)
	}
}

// InvalidateAll drops every cached cost entry. Used when fixed costs or the
// work configuration change, which moves every product's cost at once.
func (c *CostCache) InvalidateAll(ctx context.Context) {
	if !c.Enabled() {
		return
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		applog.Warn(ctx, "cost cache scan failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		applog.Warn(ctx, "cost cache flush failed", "error", err)
	}
}

// Close releases the underlying Redis connection.
func (c *CostCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

func costKey(productID uint) string {
	return fmt.Sprintf("%s%d", keyPrefix, productID)
}
