package format

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestDetectELF(t *testing.T) {
	path := writeTemp(t, "a.bin", []byte{0x7F, 'E', 'L', 'F', 2, 1, 1, 0})
	require.Equal(t, ELF, Detect(path))
}

func TestDetectArchiveMagic(t *testing.T) {
	path := writeTemp(t, "a.bin", []byte("!<arch>\n"))
	require.Equal(t, Archive, Detect(path))
}

func TestDetectPEViaDOSHeader(t *testing.T) {
	path := writeTemp(t, "a.bin", []byte{'M', 'Z', 0, 0})
	require.Equal(t, PE, Detect(path))
}

func TestDetectUnknownForUnreadableFile(t *testing.T) {
	require.Equal(t, Unknown, Detect(filepath.Join(t.TempDir(), "does-not-exist")))
}

func TestResolveAmbiguityPrefersJavaForClassExtension(t *testing.T) {
	magic := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	path := writeTemp(t, "a.class", magic)
	require.Equal(t, Java, Detect(path))
}

func TestResolveAmbiguityDefaultsToMachOFat(t *testing.T) {
	magic := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	path := writeTemp(t, "a.bin", magic)
	require.Equal(t, MachO, Detect(path))
}

func TestExtensionFallbackRequiresMagicConsistency(t *testing.T) {
	// Too short to carry Mach-O magic: the Mach-O extractor's own
	// CanHandle would reject this file, so Detect must not claim it either
	// (spec.md §8 "detect(path)!=Unknown => create_extractor(path)
	// .can_handle(path)==true").
	path := writeTemp(t, "a.dylib", []byte{0x00})
	require.Equal(t, Unknown, Detect(path))
}

func TestExtensionFallbackAcceptsConsistentMagic(t *testing.T) {
	path := writeTemp(t, "a.dylib", []byte{0xFE, 0xED, 0xFA, 0xCE, 0, 0, 0, 0})
	require.Equal(t, MachO, Detect(path))
}

func TestExtensionFallbackTrustsFormatsWithNoWiredExtractor(t *testing.T) {
	// Java has no wired extractor in this engine to disagree with, so the
	// extension alone is enough even without class-file magic.
	path := writeTemp(t, "a.jar", []byte{0x00})
	require.Equal(t, Java, Detect(path))
}
