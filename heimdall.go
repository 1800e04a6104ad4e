// Package extractor is the top-level facade over the binary-format
// extraction engine: format detection, the ELF/Mach-O/PE/Archive and DWARF
// extractors, the lazy symbol cache, and the component aggregator, exposed
// as the single MetadataExtractor interface spec.md §6 names.
package extractor

import (
	"github.com/heimdall-sbom/extractor/internal/aggregator"
	"github.com/heimdall-sbom/extractor/internal/cache"
	"github.com/heimdall-sbom/extractor/internal/component"
	"github.com/heimdall-sbom/extractor/internal/config"
	"github.com/heimdall-sbom/extractor/internal/detect"
	"github.com/heimdall-sbom/extractor/internal/diag"
	"github.com/heimdall-sbom/extractor/internal/format"
)

// supportedFormats is the fixed list spec.md §6 requires
// supported_formats() to return.
var supportedFormats = []string{"ELF", "Mach-O", "PE", "Archive"}

// MetadataExtractor is the exposed facade (spec.md §6 "Exposed
// interfaces"). It is not a singleton: construct one with New per desired
// configuration (spec.md §9).
type MetadataExtractor struct {
	agg  *aggregator.Aggregator
	diag *diag.Writer
}

// New builds a MetadataExtractor with default configuration (see
// config.Default): debug-info extraction on, a 0.7 confidence threshold, a
// 100-entry symbol cache, verbose/suppress-warnings off.
func New() *MetadataExtractor {
	return NewWithConfig(config.Default())
}

// NewWithConfig builds a MetadataExtractor from an explicit Config, e.g.
// one loaded via config.Load.
func NewWithConfig(cfg config.Config) *MetadataExtractor {
	agg := aggregator.New()
	agg.ExtractDebugInfo = cfg.ExtractDebugInfo
	agg.ConfidenceThreshold = cfg.ConfidenceThreshold
	agg.Cache = cache.NewWithSize(cfg.CacheSize)
	agg.Factory.SetExcludeRuntimePackages(cfg.ExcludeRuntimePkgs)

	w := diag.New(nil)
	w.SetVerbose(cfg.Verbose)
	w.SetSuppressWarnings(cfg.SuppressWarnings)

	return &MetadataExtractor{agg: agg, diag: w}
}

// WithCollaborators swaps in external package-manager/license/version
// detectors (spec.md §6 "Consumed interfaces"), returning the same
// instance for chaining.
func (m *MetadataExtractor) WithCollaborators(c detect.Collaborators) *MetadataExtractor {
	m.agg.Collaborators = c
	return m
}

// ExtractMetadata populates c (which must carry FilePath) by running the
// full aggregator pipeline, returning the success flag of its primary
// binary extraction step.
func (m *MetadataExtractor) ExtractMetadata(c *component.Info) bool {
	ok := m.agg.ExtractMetadata(c)
	if !ok && c.LastError() != "" {
		m.diag.Warnf("extraction failed for %s: %s", c.FilePath, c.LastError())
	}
	return ok
}

// ExtractMetadataBatched runs ExtractMetadata across paths, returning the
// successfully extracted components, whether every path succeeded, and a
// joined error describing every failure (nil if none).
func (m *MetadataExtractor) ExtractMetadataBatched(paths []string) ([]*component.Info, bool, error) {
	return m.agg.ExtractMetadataBatched(paths)
}

// CanProcessFile reports whether any registered extractor recognizes path.
func (m *MetadataExtractor) CanProcessFile(path string) bool {
	_, matched := m.agg.Factory.DetectAndBuild(path)
	return len(matched) > 0
}

// SupportedFormats returns the fixed format-name list spec.md §6 names.
func (m *MetadataExtractor) SupportedFormats() []string {
	out := make([]string, len(supportedFormats))
	copy(out, supportedFormats)
	return out
}

// DetectFormat exposes the Format Detector directly, for callers that want
// the detected container without running the full pipeline.
func (m *MetadataExtractor) DetectFormat(path string) format.Format {
	return format.Detect(path)
}

// GenerateComponentDescription produces a one-line human-readable summary
// of c.
func (m *MetadataExtractor) GenerateComponentDescription(c *component.Info) string {
	return component.GenerateComponentDescription(c)
}

// DetermineComponentScope classifies path (with its fileType) as
// application/library/test/example.
func (m *MetadataExtractor) DetermineComponentScope(path string, fileType component.FileType) string {
	return component.DetermineComponentScope(path, fileType)
}

// DetermineMIMEType maps a file extension to a MIME type.
func (m *MetadataExtractor) DetermineMIMEType(extension string) string {
	return component.DetermineMIMEType(extension)
}

// SetVerbose propagates verbosity to the diagnostic writer.
func (m *MetadataExtractor) SetVerbose(v bool) { m.diag.SetVerbose(v) }

// SetExtractDebugInfo toggles whether the aggregator runs debug extraction
// (pipeline step 3).
func (m *MetadataExtractor) SetExtractDebugInfo(v bool) { m.agg.ExtractDebugInfo = v }

// SetSuppressWarnings propagates warning suppression to the diagnostic
// writer.
func (m *MetadataExtractor) SetSuppressWarnings(v bool) { m.diag.SetSuppressWarnings(v) }

// SetConfidenceThreshold propagates the manifest-detection confidence
// threshold (spec.md §4.8 step 5) to the aggregator.
func (m *MetadataExtractor) SetConfidenceThreshold(v float64) { m.agg.ConfidenceThreshold = v }

// ClearCache reclaims the lazy symbol cache (spec.md §5 "callers may call
// clear_cache() to reclaim").
func (m *MetadataExtractor) ClearCache() { m.agg.Cache.Clear() }
