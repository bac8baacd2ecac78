// Package closure memoizes the auxiliary registry entries a provider pulls
// in as a side effect of producing a patched variant the first time it is
// requested. Repeat substitutions of the same name read the memo instead of
// re-running discovery.
package closure

import (
	"sort"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/regswap/internal/log"
)

// Closure maps auxiliary registry keys to the values captured during the
// discovery pass for one target name.
type Closure map[string]any

// Keys returns the closure's registry keys in sorted order.
func (c Closure) Keys() []string {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Cache is a process-lifetime memo of discovered closures keyed by target
// name. Entries never expire and are never evicted; the domain of names is
// small and static in practice. Flush exists for test isolation.
type Cache struct {
	cache *gocache.Cache
}

// NewCache creates an empty closure cache.
func NewCache() *Cache {
	return &Cache{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves the closure recorded for name.
func (c *Cache) Get(name string) (Closure, bool) {
	value, found := c.cache.Get(name)
	if !found {
		return nil, false
	}

	cl, ok := value.(Closure)
	if !ok {
		log.Error(log.CatCache, "wrong type assertion when getting closure", "name", name)
		return nil, false
	}

	log.Debug(log.CatCache, "closure cache hit", "name", name, "keys", len(cl))
	return cl, true
}

// Put stores the discovered closure for name. Callers populate a name only
// once, on first discovery; a repeat Put overwrites the earlier entry and
// logs it.
func (c *Cache) Put(name string, cl Closure) {
	if _, exists := c.cache.Get(name); exists {
		log.Warn(log.CatCache, "closure already recorded, overwriting", "name", name)
	}
	c.cache.Set(name, cl, gocache.NoExpiration)
	log.Debug(log.CatCache, "closure recorded", "name", name, "keys", len(cl))
}

// Flush removes every recorded closure. Intended for test isolation.
func (c *Cache) Flush() {
	c.cache.Flush()
}
