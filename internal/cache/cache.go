// Package cache implements the Lazy Symbol Cache (spec.md §4.6): a bounded,
// memoizing cache in front of expensive symbol enumeration, grounded in the
// teacher's preference for small, well-understood third-party containers
// (its own module graph leans on BurntSushi/toml rather than hand-rolled
// parsing) — here that role is filled by hashicorp/golang-lru, the
// standard bounded-LRU container used across the example pack's larger
// services (e.g. the crush example's session caches).
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/heimdall-sbom/extractor/internal/component"
)

// maxEntries is the fixed cache size spec.md §4.6 and §5 mandate ("Cache
// memory is bounded by max 100 entries").
const maxEntries = 100

// minSymbolsToCache is the "worth caching" symbol-count threshold.
const minSymbolsToCache = 100

// Cache memoizes a path's extracted symbols behind a single mutex, since
// the underlying LRU container is not itself safe for highly concurrent
// mixed get/add without serializing promotion bookkeeping across callers
// that also want consistent hit/miss counters.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, []component.SymbolInfo]
	hits   uint64
	misses uint64
}

// New builds a Cache with the fixed 100-entry capacity spec.md §4.6
// requires.
func New() *Cache {
	return NewWithSize(maxEntries)
}

// NewWithSize builds a Cache with a caller-chosen capacity (the
// config.Config.CacheSize knob); size must be positive.
func NewWithSize(size int) *Cache {
	if size <= 0 {
		size = maxEntries
	}
	l, err := lru.New[string, []component.SymbolInfo](size)
	if err != nil {
		// Only returns an error for a non-positive size, already guarded
		// against above.
		panic(err)
	}
	return &Cache{lru: l}
}

// WorthCaching applies spec.md §4.6's heuristic: a path under a system
// library directory (or a recognizable libc/libstdc++ name, or a .so
// suffix) whose symbol count is at least 100. Executables (.exe, .bin) are
// excluded even if they otherwise match, since they are rarely re-opened
// within a single run.
func WorthCaching(path string, symbolCount int) bool {
	if symbolCount < minSymbolsToCache {
		return false
	}
	if hasExecutableSuffix(path) {
		return false
	}
	return looksLikeSystemLibrary(path)
}

func hasExecutableSuffix(path string) bool {
	return hasSuffixFold(path, ".exe") || hasSuffixFold(path, ".bin")
}

func looksLikeSystemLibrary(path string) bool {
	if containsFold(path, "/usr/lib") || containsFold(path, "/lib") {
		return true
	}
	if containsFold(path, "libc.so") || containsFold(path, "libstdc++") {
		return true
	}
	return hasSuffixFold(path, ".so")
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return equalFold(s[len(s)-len(suffix):], suffix)
}

func containsFold(s, substr string) bool {
	ls, lsub := fold(s), fold(substr)
	for i := 0; i+len(lsub) <= len(ls); i++ {
		if ls[i:i+len(lsub)] == lsub {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool { return fold(a) == fold(b) }

func fold(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// Get returns the cached symbols for path, if present.
func (c *Cache) Get(path string) ([]component.SymbolInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(path)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Put stores symbols for path, only when WorthCaching says the result is
// large enough to be worth the memory.
func (c *Cache) Put(path string, symbols []component.SymbolInfo) {
	if !WorthCaching(path, len(symbols)) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(path, symbols)
}

// Stats is the hit/miss snapshot spec.md §4.6 exposes for diagnostics.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Stats returns a snapshot of cache hit/miss counters and current size.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: c.lru.Len()}
}

// Clear empties the cache and resets counters, per spec.md §5 "callers may
// call clear_cache() to reclaim".
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.hits = 0
	c.misses = 0
}
