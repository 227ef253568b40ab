package geodata

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/water-budget-service/internal/domain"
	"github.com/couchcryptid/water-budget-service/internal/observability"
)

// CachedProvider wraps an InputProvider with an in-memory LRU cache keyed on
// the location and the acquisition windows in effect.
type CachedProvider struct {
	inner   domain.InputProvider
	cache   *lruCache[domain.EnvironmentalInputs]
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner domain.InputProvider, maxEntries int, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache[domain.EnvironmentalInputs](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedProvider) FetchInputs(ctx context.Context, loc domain.Location) (domain.EnvironmentalInputs, error) {
	key := cacheKey(loc, domain.CurrentWindows())
	if env, ok := c.cache.get(key); ok {
		c.metrics.GeodataCache.WithLabelValues("hit").Inc()
		return env, nil
	}
	c.metrics.GeodataCache.WithLabelValues("miss").Inc()

	env, err := c.inner.FetchInputs(ctx, loc)
	if err != nil {
		return env, err
	}
	// Only cache complete results so a cloudy composite can be retried later.
	if env.Complete() {
		c.cache.put(key, env)
	}
	return env, nil
}

// cacheKey rounds to 4 decimals (about 11 m), finer than any input raster.
// The window starts roll the key over when a new season's data applies.
func cacheKey(loc domain.Location, w domain.AcquisitionWindows) string {
	return fmt.Sprintf("%.4f,%.4f|%s|%s",
		loc.Lat, loc.Lon,
		w.Greenness.Start.Format(dateLayout),
		w.Rainfall.Start.Format(dateLayout),
	)
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) unlink(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
