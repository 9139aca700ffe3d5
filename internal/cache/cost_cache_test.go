package cache

import (
	"context"
	"testing"

	"precifica/internal/config"
	"precifica/internal/costing"
)

func TestNewWithoutURLDisablesCache(t *testing.T) {
	t.Parallel()

	c, err := New(context.Background(), config.CacheConfig{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if c.Enabled() {
		t.Fatal("expected cache to be disabled without a URL")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var c *CostCache

	if _, ok := c.GetProductCost(ctx, 1); ok {
		t.Fatal("nil cache should never report a hit")
	}
	c.SetProductCost(ctx, costing.Cost{ProductID: 1})
	c.Invalidate(ctx, 1, 2)
	c.InvalidateAll(ctx)
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil cache returned error: %v", err)
	}
}

func TestNewRejectsMalformedURL(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), config.CacheConfig{URL: "://bad"}); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}
