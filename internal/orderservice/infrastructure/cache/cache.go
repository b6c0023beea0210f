// Package cache adapts the platform read-through cache (SPEC_FULL.md
// §4.13) to the Order aggregate.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/stepangreenberg/order-processor/internal/orderservice/domain"
	platformcache "github.com/stepangreenberg/order-processor/internal/platform/cache"
)

const ttl = 30 * time.Second

type OrderCache struct {
	client *platformcache.Client
}

func New(client *platformcache.Client) *OrderCache {
	return &OrderCache{client: client}
}

func key(orderID string) string { return fmt.Sprintf("order:%s", orderID) }

func (c *OrderCache) Get(ctx context.Context, orderID string) (*domain.Order, bool) {
	var o domain.Order
	found, err := c.client.Get(ctx, key(orderID), &o)
	if err != nil || !found {
		return nil, false
	}
	return &o, true
}

func (c *OrderCache) Set(ctx context.Context, o *domain.Order) {
	_ = c.client.Set(ctx, key(o.OrderID), o, ttl)
}

// Invalidate implements application.Cache.
func (c *OrderCache) Invalidate(ctx context.Context, orderID string) {
	_ = c.client.Delete(ctx, key(orderID))
}
