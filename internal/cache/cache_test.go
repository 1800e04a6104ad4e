package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdall-sbom/extractor/internal/component"
)

func manySymbols(n int) []component.SymbolInfo {
	out := make([]component.SymbolInfo, n)
	for i := range out {
		out[i] = component.SymbolInfo{Name: "sym"}
	}
	return out
}

func TestWorthCachingRequiresSystemLibraryAndSymbolCount(t *testing.T) {
	assert.True(t, WorthCaching("/usr/lib/libfoo.so", 150))
	assert.False(t, WorthCaching("/usr/lib/libfoo.so", 10))
	assert.False(t, WorthCaching("/home/user/app.bin", 150))
	assert.False(t, WorthCaching("/usr/lib/app.exe", 150))
}

func TestPutSkipsResultsNotWorthCaching(t *testing.T) {
	c := NewWithSize(10)
	c.Put("/home/user/app", manySymbols(200))

	_, ok := c.Get("/home/user/app")
	assert.False(t, ok)
}

func TestGetPutRoundTrip(t *testing.T) {
	c := NewWithSize(10)
	syms := manySymbols(150)
	c.Put("/usr/lib/libfoo.so", syms)

	got, ok := c.Get("/usr/lib/libfoo.so")
	require.True(t, ok)
	assert.Len(t, got, 150)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, 1, stats.Entries)
}

func TestClearResetsCounters(t *testing.T) {
	c := NewWithSize(10)
	c.Put("/usr/lib/libfoo.so", manySymbols(150))
	c.Get("/usr/lib/libfoo.so")
	c.Get("/usr/lib/missing.so")

	c.Clear()
	stats := c.Stats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(0), stats.Misses)
	assert.Equal(t, 0, stats.Entries)
}

func TestNewWithSizeGuardsNonPositive(t *testing.T) {
	c := NewWithSize(0)
	c.Put("/usr/lib/libfoo.so", manySymbols(150))
	_, ok := c.Get("/usr/lib/libfoo.so")
	assert.True(t, ok)
}
