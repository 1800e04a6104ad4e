package aggregator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdall-sbom/extractor/internal/component"
)

const sampleALI = `V "GNAT Lib v11"
W myapp.widgets%s myapp-widgets.ads myapp-widgets.ali
U myapp.widgets%b myapp-widgets.adb
F -O2
`

func TestExtractMetadataFailsOnMissingFile(t *testing.T) {
	a := New()
	c := component.New(filepath.Join(t.TempDir(), "nope"))
	ok := a.ExtractMetadata(c)

	assert.False(t, ok)
	assert.NotEmpty(t, c.LastError())
	assert.False(t, c.Processed)
}

func TestExtractMetadataRejectsEmptyPath(t *testing.T) {
	a := New()
	c := component.New("")
	ok := a.ExtractMetadata(c)

	assert.False(t, ok)
}

func TestExtractMetadataRunsFullPipelineOnAdaALI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "myapp-widgets.ali")
	require.NoError(t, os.WriteFile(path, []byte(sampleALI), 0o644))

	a := New()
	c := component.New(path)
	ok := a.ExtractMetadata(c)

	require.True(t, ok)
	assert.True(t, c.Processed)
	assert.NotZero(t, c.FileSize)
	assert.Contains(t, c.Functions, "myapp.widgets%b")
	assert.Equal(t, `"GNAT Lib v11"`, c.Version)
	assert.Equal(t, "GNAT", c.PackageManager)

	_, hasVersionEvidence := c.Property("evidence_extractor_version")
	assert.True(t, hasVersionEvidence)
}

func TestExtractMetadataBatchedReportsJoinedErrors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "myapp-widgets.ali")
	require.NoError(t, os.WriteFile(good, []byte(sampleALI), 0o644))
	bad := filepath.Join(dir, "missing.ali")

	a := New()
	out, allOK, err := a.ExtractMetadataBatched([]string{good, bad})

	assert.False(t, allOK)
	require.Len(t, out, 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}

func TestExtractMetadataIsSafeForConcurrentDisjointPaths(t *testing.T) {
	dir := t.TempDir()
	a := New()

	const n = 8
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		paths[i] = filepath.Join(dir, "pkg"+string(rune('a'+i))+".ali")
		require.NoError(t, os.WriteFile(paths[i], []byte(sampleALI), 0o644))
	}

	done := make(chan bool, n)
	for _, p := range paths {
		go func(p string) {
			c := component.New(p)
			done <- a.ExtractMetadata(c)
		}(p)
	}
	for i := 0; i < n; i++ {
		assert.True(t, <-done)
	}
}
