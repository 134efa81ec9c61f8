// Package cache provides the read-through catalog cache injected into the
// workflows, with optional PostgreSQL LISTEN/NOTIFY invalidation.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/catalog"
)

// Kinds of cached entries, also used as NOTIFY payloads.
const (
	KindSKU          = "sku"
	KindChannel      = "channel"
	KindSeason       = "season"
	KindMovementType = "movement_type"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// CatalogCache is a TTL read-through cache in front of a catalog.Reader.
// Misses and errors are never cached.
type CatalogCache struct {
	next catalog.Reader
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]entry

	statsMu sync.Mutex
	hits    int64
	misses  int64
}

var _ catalog.Reader = (*CatalogCache)(nil)

// NewCatalogCache wraps next. A non-positive ttl disables expiry.
func NewCatalogCache(next catalog.Reader, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

func (c *CatalogCache) SKUByID(ctx context.Context, skuID id.ID) (*entity.SKU, error) {
	return cached(c, KindSKU+":id:"+skuID.String(), func() (*entity.SKU, error) {
		return c.next.SKUByID(ctx, skuID)
	})
}

func (c *CatalogCache) SKUByCode(ctx context.Context, code string) (*entity.SKU, error) {
	code = entity.NormalizeCode(code)
	return cached(c, KindSKU+":code:"+code, func() (*entity.SKU, error) {
		return c.next.SKUByCode(ctx, code)
	})
}

func (c *CatalogCache) ActiveSKUs(ctx context.Context) ([]entity.SKU, error) {
	skus, err := cached(c, KindSKU+":active", func() (*[]entity.SKU, error) {
		list, err := c.next.ActiveSKUs(ctx)
		if err != nil {
			return nil, err
		}
		return &list, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]entity.SKU(nil), (*skus)...), nil
}

func (c *CatalogCache) ChannelByID(ctx context.Context, channelID id.ID) (*entity.Channel, error) {
	return cached(c, KindChannel+":id:"+channelID.String(), func() (*entity.Channel, error) {
		return c.next.ChannelByID(ctx, channelID)
	})
}

func (c *CatalogCache) ChannelByCode(ctx context.Context, code string) (*entity.Channel, error) {
	code = entity.NormalizeCode(code)
	return cached(c, KindChannel+":code:"+code, func() (*entity.Channel, error) {
		return c.next.ChannelByCode(ctx, code)
	})
}

func (c *CatalogCache) SeasonByID(ctx context.Context, seasonID id.ID) (*entity.Season, error) {
	return cached(c, KindSeason+":id:"+seasonID.String(), func() (*entity.Season, error) {
		return c.next.SeasonByID(ctx, seasonID)
	})
}

func (c *CatalogCache) ActiveSeasons(ctx context.Context) ([]entity.Season, error) {
	seasons, err := cached(c, KindSeason+":active", func() (*[]entity.Season, error) {
		list, err := c.next.ActiveSeasons(ctx)
		if err != nil {
			return nil, err
		}
		return &list, nil
	})
	if err != nil {
		return nil, err
	}
	// Copy so callers cannot mutate cache state.
	return append([]entity.Season(nil), (*seasons)...), nil
}

func (c *CatalogCache) MovementTypeByCode(ctx context.Context, code string) (*entity.MovementType, error) {
	code = entity.NormalizeCode(code)
	return cached(c, KindMovementType+":code:"+code, func() (*entity.MovementType, error) {
		return c.next.MovementTypeByCode(ctx, code)
	})
}

// cached returns a copy of the cached value under key, loading it on a miss.
func cached[T any](c *CatalogCache, key string, load func() (*T, error)) (*T, error) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && (c.ttl <= 0 || now.Before(e.expiresAt)) {
		c.count(true)
		v := *(e.value.(*T))
		return &v, nil
	}

	c.count(false)
	v, err := load()
	if err != nil {
		return nil, err
	}

	stored := *v
	c.mu.Lock()
	c.entries[key] = entry{value: &stored, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
	return v, nil
}

func (c *CatalogCache) count(hit bool) {
	c.statsMu.Lock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.statsMu.Unlock()
}

// Invalidate drops every entry of kind, or everything when kind is empty or unknown.
func (c *CatalogCache) Invalidate(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch kind {
	case KindSKU, KindChannel, KindSeason, KindMovementType:
		prefix := kind + ":"
		for k := range c.entries {
			if strings.HasPrefix(k, prefix) {
				delete(c.entries, k)
			}
		}
	default:
		c.entries = make(map[string]entry)
	}
}

// Stats describes cache usage.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// GetStats returns current cache statistics.
func (c *CatalogCache) GetStats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return Stats{Entries: n, Hits: c.hits, Misses: c.misses}
}
