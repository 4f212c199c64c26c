package printing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheTTL      = 10 * time.Minute
	defaultCacheCapacity = 200
)

// RenderCache keeps rendered PDFs in memory. Keys embed the document
// revision, so an edited document never hits a stale entry.
type RenderCache struct {
	items *ttlcache.Cache[string, *RenderResult]
	group singleflight.Group
}

// NewRenderCache creates a cache and starts its expiry loop. Close stops it.
func NewRenderCache(ttl time.Duration, capacity uint64) *RenderCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if capacity == 0 {
		capacity = defaultCacheCapacity
	}

	items := ttlcache.New[string, *RenderResult](
		ttlcache.WithTTL[string, *RenderResult](ttl),
		ttlcache.WithCapacity[string, *RenderResult](capacity),
		ttlcache.WithDisableTouchOnHit[string, *RenderResult](),
	)
	go items.Start()

	return &RenderCache{items: items}
}

// RenderKey identifies one revision of a document
func RenderKey(docType DocType, id uuid.UUID, updatedAt time.Time) string {
	return fmt.Sprintf("%s:%s:%d", docType, id, updatedAt.UnixNano())
}

// Get returns a cached result
func (c *RenderCache) Get(key string) (*RenderResult, bool) {
	item := c.items.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// GetOrRender returns the cached result or runs render once per key, sharing
// the outcome with concurrent callers. Failures are not cached.
func (c *RenderCache) GetOrRender(ctx context.Context, key string, render func(context.Context) (*RenderResult, error)) (*RenderResult, bool, error) {
	if result, ok := c.Get(key); ok {
		return result, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if result, ok := c.Get(key); ok {
			return result, nil
		}
		result, err := render(ctx)
		if err != nil {
			return nil, err
		}
		c.items.Set(key, result, ttlcache.DefaultTTL)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*RenderResult), false, nil
}

// Len returns the number of cached documents
func (c *RenderCache) Len() int {
	return c.items.Len()
}

// Metrics exposes hit and miss counters
func (c *RenderCache) Metrics() ttlcache.Metrics {
	return c.items.Metrics()
}

// Purge drops every entry
func (c *RenderCache) Purge() {
	c.items.DeleteAll()
}

// Close stops the expiry loop
func (c *RenderCache) Close() {
	c.items.Stop()
}
