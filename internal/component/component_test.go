package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPropertyPreservesInsertionOrder(t *testing.T) {
	c := New("/bin/foo")
	c.SetProperty("b", "2")
	c.SetProperty("a", "1")
	c.SetProperty("b", "2-updated")

	require.Equal(t, []string{"b", "a"}, c.PropertyKeys())
	v, ok := c.Property("b")
	require.True(t, ok)
	assert.Equal(t, "2-updated", v)
}

func TestAddSymbolDedupesByNameAndAddress(t *testing.T) {
	c := New("/bin/foo")
	c.AddSymbol(SymbolInfo{Name: "main", Address: 0x1000})
	c.AddSymbol(SymbolInfo{Name: "main", Address: 0x1000})
	c.AddSymbol(SymbolInfo{Name: "main", Address: 0x2000})

	assert.Len(t, c.Symbols, 2)
}

func TestAddSectionDedupesByName(t *testing.T) {
	c := New("/bin/foo")
	c.AddSection(SectionInfo{Name: ".text", Size: 100})
	c.AddSection(SectionInfo{Name: ".text", Size: 200})

	require.Len(t, c.Sections, 1)
	assert.Equal(t, uint64(100), c.Sections[0].Size)
}

func TestAddDependencyIgnoresEmptyAndDuplicates(t *testing.T) {
	c := New("/bin/foo")
	c.AddDependency("")
	c.AddDependency("libc.so")
	c.AddDependency("libc.so")

	assert.Equal(t, []string{"libc.so"}, c.Dependencies)
}

func TestFileTypeString(t *testing.T) {
	cases := map[FileType]string{
		FileTypeExecutable:    "Executable",
		FileTypeSharedLibrary: "SharedLibrary",
		FileTypeStaticLibrary: "StaticLibrary",
		FileTypeObject:        "Object",
		FileTypeSource:        "Source",
		FileTypeUnknown:       "Unknown",
	}
	for ft, want := range cases {
		assert.Equal(t, want, ft.String())
	}
}

func TestLastError(t *testing.T) {
	c := New("/bin/foo")
	assert.Equal(t, "", c.LastError())
	c.SetLastError("boom")
	assert.Equal(t, "boom", c.LastError())
}
