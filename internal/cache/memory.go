package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryCache is an in-process TTL cache. Touch-on-hit is disabled so an
// entry's lifetime is measured from the moment it was written, not last read.
type MemoryCache struct {
	items *ttlcache.Cache[string, []byte]
}

func NewMemory(defaultTTL time.Duration) *MemoryCache {
	items := ttlcache.New(
		ttlcache.WithTTL[string, []byte](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go items.Start()
	return &MemoryCache{items: items}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item := m.items.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	m.items.Set(key, value, ttl)
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

func (m *MemoryCache) Stop() {
	m.items.Stop()
}
