package component

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// mimeTable backs DetermineMIMEType (spec.md §6).
var mimeTable = map[string]string{
	".so":     "application/x-sharedlib",
	".exe":    "application/x-executable",
	".dylib":  "application/x-mach-binary",
	".dll":    "application/x-msdownload",
	".a":      "application/x-archive",
}

// DetermineMIMEType maps a file extension to a MIME type, defaulting to
// application/octet-stream for anything not in the fixed table.
func DetermineMIMEType(extension string) string {
	if mt, ok := mimeTable[strings.ToLower(extension)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// DetermineComponentScope classifies a component by path heuristics —
// "application", "library", "test", or "example" — the way the original
// Heimdall extractor's MetadataHelpers does, supplementing spec.md's
// exposed-but-unspecified getter.
func DetermineComponentScope(filePath string, fileType FileType) string {
	lower := strings.ToLower(filePath)
	switch {
	case strings.Contains(lower, "/test/") || strings.Contains(lower, "_test.") ||
		strings.Contains(lower, "/tests/"):
		return "test"
	case strings.Contains(lower, "/example") || strings.Contains(lower, "/demo"):
		return "example"
	case fileType == FileTypeSharedLibrary || fileType == FileTypeStaticLibrary:
		return "library"
	default:
		return "application"
	}
}

// GenerateComponentDescription produces a one-line human-readable summary
// of a component, mirroring what the original extractor emits for
// descriptive SBOM fields.
func GenerateComponentDescription(c *Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", c.FileType.String())
	if c.Name != "" {
		fmt.Fprintf(&b, " %q", c.Name)
	}
	if c.Version != "" {
		fmt.Fprintf(&b, " version %s", c.Version)
	}
	fmt.Fprintf(&b, ", %s", humanize.Bytes(c.FileSize))
	if n := len(c.Symbols); n > 0 {
		fmt.Fprintf(&b, ", %d symbols", n)
	}
	if n := len(c.Dependencies); n > 0 {
		fmt.Fprintf(&b, ", %d dependencies", n)
	}
	if c.ContainsDebugInfo {
		b.WriteString(", contains debug info")
	}
	return b.String()
}

// InferFileTypeFromExtension implements spec.md §4.8 step 9's fallback:
// when a binary extractor could not classify the file type, fall back to
// the extension table.
func InferFileTypeFromExtension(extension string) FileType {
	switch strings.ToLower(extension) {
	case ".so", ".dylib", ".dll":
		return FileTypeSharedLibrary
	case ".exe", ".app":
		return FileTypeExecutable
	case ".a":
		return FileTypeStaticLibrary
	default:
		return FileTypeUnknown
	}
}
