package importresolve

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/polydocs-mcp/internal/docmodel"
)

const (
	cacheCapacity = 512
	cacheTTL      = 300 * time.Second
)

type cacheEntry struct {
	result   docmodel.ImportResolutionResult
	insertedAt time.Time
}

// Cache is a bounded, TTL'd store of import resolution results, keyed by
// language/package/context/import-line, so repeated lookups for the same
// statement skip the filesystem scan.
type Cache struct {
	mu    sync.Mutex
	inner *lru.Cache[string, cacheEntry]
	now   func() time.Time
}

// NewCache creates an import resolution cache with the standard capacity
// and TTL.
func NewCache() *Cache {
	inner, err := lru.New[string, cacheEntry](cacheCapacity)
	if err != nil {
		panic(err)
	}
	return &Cache{inner: inner, now: time.Now}
}

func cacheKey(lang docmodel.Ecosystem, pkg, context, line string) string {
	if context == "" {
		context = "<default>"
	}
	return string(lang) + "::" + pkg + "::" + context + "::" + trimLine(line)
}

func trimLine(line string) string {
	for len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
		line = line[1:]
	}
	for len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
		line = line[:len(line)-1]
	}
	return line
}

// Get returns a cached result, or false if absent or expired.
func (c *Cache) Get(lang docmodel.Ecosystem, pkg, context, line string) (docmodel.ImportResolutionResult, bool) {
	key := cacheKey(lang, pkg, context, line)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.inner.Get(key)
	if !ok {
		return docmodel.ImportResolutionResult{}, false
	}
	if c.now().Sub(entry.insertedAt) > cacheTTL {
		c.inner.Remove(key)
		return docmodel.ImportResolutionResult{}, false
	}
	return entry.result, true
}

// Put stores a resolution result, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *Cache) Put(lang docmodel.Ecosystem, pkg, context, line string, result docmodel.ImportResolutionResult) {
	key := cacheKey(lang, pkg, context, line)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(key, cacheEntry{result: result, insertedAt: c.now()})
}

// InvalidatePackage drops every cached entry for lang/pkg, regardless of
// context or import line. Used when a file watcher reports a change inside
// a resolved package root, so stale resolutions don't outlive the TTL.
func (c *Cache) InvalidatePackage(lang docmodel.Ecosystem, pkg string) {
	prefix := string(lang) + "::" + pkg + "::"

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.inner.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.inner.Remove(key)
		}
	}
}
