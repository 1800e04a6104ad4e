package factory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdall-sbom/extractor/internal/ada"
	"github.com/heimdall-sbom/extractor/internal/component"
	"github.com/heimdall-sbom/extractor/internal/extractors"
)

type stubExtractor struct {
	extractors.Base
	name     string
	priority int
}

func (s *stubExtractor) FormatName() string    { return s.name }
func (s *stubExtractor) Priority() int         { return s.priority }
func (s *stubExtractor) CanHandle(string) bool { return true }

func (s *stubExtractor) ExtractSymbols(string) ([]component.SymbolInfo, error)   { return nil, nil }
func (s *stubExtractor) ExtractSections(string) ([]component.SectionInfo, error) { return nil, nil }
func (s *stubExtractor) ExtractVersion(string) (string, error)                   { return "", nil }
func (s *stubExtractor) ExtractDependencies(string) ([]string, error)           { return nil, nil }

func TestNewRegistersBuiltins(t *testing.T) {
	f := New()
	names := make(map[string]bool)
	for _, e := range f.AvailableExtractors() {
		names[e.FormatName()] = true
	}
	for _, want := range []string{"ELF", "Mach-O", "PE", "Archive", "DWARF", "Ada"} {
		assert.True(t, names[want], "expected %s to be registered", want)
	}
}

func TestAvailableExtractorsSortedByPriority(t *testing.T) {
	f := New()
	all := f.AvailableExtractors()
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Priority(), all[i].Priority())
	}
}

func TestRegisterRefusesDuplicateFormat(t *testing.T) {
	f := New()
	err := f.Register(&stubExtractor{name: "ELF", priority: 1})
	assert.Error(t, err)
}

func TestRegisterAcceptsNewFormat(t *testing.T) {
	f := New()
	require.NoError(t, f.Register(&stubExtractor{name: "Custom", priority: 5}))

	e, ok := f.ForFormat("Custom")
	require.True(t, ok)
	assert.Equal(t, "Custom", e.FormatName())
}

func TestSetExcludeRuntimePackagesPropagatesToAda(t *testing.T) {
	f := New()
	f.SetExcludeRuntimePackages(true)

	e, ok := f.ForFormat("Ada")
	require.True(t, ok)
	ae, ok := e.(*ada.Extractor)
	require.True(t, ok)
	assert.True(t, ae.ExcludeRuntimePackages)
}

func TestDetectAndBuildMatchesELFMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x7F, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, 0o644))

	f := New()
	_, matched := f.DetectAndBuild(path)
	require.NotEmpty(t, matched)
	assert.Equal(t, "ELF", matched[0].FormatName())
}
