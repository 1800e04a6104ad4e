package ada

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleALI = `V "GNAT Lib v11"
P ZX
A -O2
A -fstack-protector-strong
W ada.text_io%s ada-text_io.ads ada-text_io.ali
W myapp.widgets%s myapp-widgets.ads myapp-widgets.ali
D system.ads
U myapp.widgets%b myapp-widgets.adb
F -fstack-protector-strong
F -O2
`

func writeALI(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIsRuntimePackage(t *testing.T) {
	assert.True(t, IsRuntimePackage("ada"))
	assert.True(t, IsRuntimePackage("ada.strings"))
	assert.True(t, IsRuntimePackage("system.tasking"))
	assert.False(t, IsRuntimePackage("myapp.widgets"))
	assert.False(t, IsRuntimePackage("myapp"))
}

func TestParsePackageExtractsDependenciesAndFunctions(t *testing.T) {
	dir := t.TempDir()
	path := writeALI(t, dir, "myapp-widgets.ali", sampleALI)

	pkg, err := ParsePackage(path)
	require.NoError(t, err)

	assert.Equal(t, "myapp-widgets", pkg.Name)
	assert.False(t, pkg.IsRuntime)
	assert.Contains(t, pkg.Dependencies, "ada.text_io")
	assert.Contains(t, pkg.Dependencies, "myapp.widgets")
	assert.Contains(t, pkg.Dependencies, "system.ads")
	assert.Contains(t, pkg.Functions, "myapp.widgets%b")
}

func TestParsePackageRejectsNonALIContent(t *testing.T) {
	dir := t.TempDir()
	path := writeALI(t, dir, "notreal.ali", "not an ali file at all\n")

	_, err := ParsePackage(path)
	assert.Error(t, err)
}

func TestParseBuildInfoCollectsSecurityAndOptimizationFlags(t *testing.T) {
	dir := t.TempDir()
	path := writeALI(t, dir, "myapp-widgets.ali", sampleALI)

	bi, err := ParseBuildInfo(path)
	require.NoError(t, err)

	assert.Equal(t, `"GNAT Lib v11"`, bi.CompilerVersion)
	assert.Contains(t, bi.SecurityFlags, "-fstack-protector-strong")
	assert.Contains(t, bi.OptimizationFlags, "-O2")
}

func TestExtractorCanHandle(t *testing.T) {
	e := &Extractor{}
	assert.True(t, e.CanHandle("/tmp/foo.ali"))
	assert.True(t, e.CanHandle("/tmp/foo.ALI"))
	assert.False(t, e.CanHandle("/tmp/foo.ads"))
}

func TestExtractDependenciesExcludesRuntimeWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	path := writeALI(t, dir, "myapp-widgets.ali", sampleALI)

	e := &Extractor{ExcludeRuntimePackages: true}
	deps, err := e.ExtractDependencies(path)
	require.NoError(t, err)

	assert.NotContains(t, deps, "ada.text_io")
	assert.Contains(t, deps, "myapp.widgets")
}

func TestFindALIFilesScansRecursively(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeALI(t, dir, "a.ali", sampleALI)
	writeALI(t, sub, "b.ali", sampleALI)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("x"), 0o644))

	found := FindALIFiles(dir)
	assert.Len(t, found, 2)
}

func TestExtractSourceFilesTakesLiteralNameFromFirstWithClause(t *testing.T) {
	dir := t.TempDir()
	path := writeALI(t, dir, "myapp-widgets.ali", sampleALI)

	e := &Extractor{}
	srcs, err := e.ExtractSourceFiles(path)
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	assert.Equal(t, "ada-text_io.ads", srcs[0])
}

func TestExtractSourceFilesDoesNotRequireFileToExistOnDisk(t *testing.T) {
	dir := t.TempDir()
	path := writeALI(t, dir, "main.ali", "V \"GNAT Lib v11\"\nW my_package%b main.adb main.ali\n")

	e := &Extractor{}
	srcs, err := e.ExtractSourceFiles(path)
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	assert.Equal(t, "main.adb", srcs[0])
}
