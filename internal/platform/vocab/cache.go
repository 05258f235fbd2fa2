// Package vocab provides a read-through cache for the small reference
// vocabularies used during resource assembly (name use, phone use, NUCC
// taxonomy display names, other-identifier types). The tables are tiny and
// change only when reference data is reloaded, so each cache holds the whole
// table and refreshes it as a unit.
package vocab

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL bounds how stale a cached vocabulary may get.
const DefaultTTL = 5 * time.Minute

// Loader fetches the full id-to-display-name mapping for one vocabulary.
type Loader interface {
	Load(ctx context.Context) (map[string]string, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (map[string]string, error)

func (f LoaderFunc) Load(ctx context.Context) (map[string]string, error) { return f(ctx) }

// Cache is a lazily populated, TTL-bounded vocabulary cache safe for
// concurrent readers. A miss or expired snapshot triggers a full reload; a
// racing reload simply loads twice, which is harmless for these tables.
type Cache struct {
	loader Loader
	ttl    time.Duration

	mu       sync.RWMutex
	entries  map[string]string
	loadedAt time.Time
}

func NewCache(loader Loader, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{loader: loader, ttl: ttl}
}

// Lookup resolves a code to its display name, reloading the vocabulary when
// the snapshot is missing or stale.
func (c *Cache) Lookup(ctx context.Context, code string) (string, bool, error) {
	c.mu.RLock()
	entries, fresh := c.entries, time.Since(c.loadedAt) < c.ttl
	c.mu.RUnlock()

	if entries != nil && fresh {
		if display, ok := entries[code]; ok {
			return display, true, nil
		}
		return "", false, nil
	}

	entries, err := c.reload(ctx)
	if err != nil {
		return "", false, err
	}
	display, ok := entries[code]
	return display, ok, nil
}

// DisplayOr resolves a code, returning the fallback on a miss or a load
// failure. Assemblers use this so a vocabulary hiccup degrades the display
// text instead of failing the whole resource.
func (c *Cache) DisplayOr(ctx context.Context, code, fallback string) string {
	display, ok, err := c.Lookup(ctx, code)
	if err != nil || !ok {
		return fallback
	}
	return display
}

func (c *Cache) reload(ctx context.Context) (map[string]string, error) {
	entries, err := c.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries = entries
	c.loadedAt = time.Now()
	c.mu.Unlock()

	return entries, nil
}

// Set bundles the vocabularies needed by the resource assemblers; built once
// at startup and passed by reference, never a package global.
type Set struct {
	NameUse     *Cache
	PhoneUse    *Cache
	Nucc        *Cache
	OtherIDType *Cache
}
