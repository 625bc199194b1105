package semantic

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const maxCachedIndexes = 32

type cacheKey struct {
	packageName string
	rootPath    string
}

// Cache holds built semantic indexes, bounded to maxCachedIndexes entries
// keyed by (package name, root path) so repeated lookups for the same
// on-disk package skip the tree-sitter walk and TF-IDF recomputation.
type Cache struct {
	mu    sync.Mutex
	inner *lru.Cache[cacheKey, *Index]
}

// NewCache creates a bounded semantic index cache.
func NewCache() *Cache {
	inner, err := lru.New[cacheKey, *Index](maxCachedIndexes)
	if err != nil {
		panic(err)
	}
	return &Cache{inner: inner}
}

// GetOrBuild returns the cached index for (packageName, packageRoot),
// building and caching it on first access.
func (c *Cache) GetOrBuild(packageName, packageRoot string) (*Index, error) {
	key := cacheKey{packageName: packageName, rootPath: packageRoot}

	c.mu.Lock()
	if idx, ok := c.inner.Get(key); ok {
		c.mu.Unlock()
		return idx, nil
	}
	c.mu.Unlock()

	idx, err := Build(packageName, packageRoot)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.inner.Add(key, idx)
	c.mu.Unlock()

	return idx, nil
}

// Invalidate drops the cached index for (packageName, packageRoot), if any.
func (c *Cache) Invalidate(packageName, packageRoot string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Remove(cacheKey{packageName: packageName, rootPath: packageRoot})
}

// Len reports the number of indexes currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}
