// Package aggregator implements the Component Aggregator (spec.md §4.8):
// the pipeline that takes a partially-filled component.Info (at minimum its
// file path) and populates every other field by orchestrating format
// detection, the format-specific and DWARF extractors, the lazy symbol
// cache, and the external package-manager/license/version collaborators.
//
// Grounded in the teacher's top-level orchestration in
// src/holo-build/generate.go, which walks a single package definition
// through a sequence of independent, order-sensitive steps (build, then
// verify, then package) tolerating failure at each step the way this
// pipeline's stages proceed "regardless of prior-stage success unless
// otherwise noted".
package aggregator

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/heimdall-sbom/extractor/internal/cache"
	"github.com/heimdall-sbom/extractor/internal/component"
	"github.com/heimdall-sbom/extractor/internal/detect"
	"github.com/heimdall-sbom/extractor/internal/dwarf"
	"github.com/heimdall-sbom/extractor/internal/errs"
	"github.com/heimdall-sbom/extractor/internal/extractors"
	"github.com/heimdall-sbom/extractor/internal/extractors/macho"
	"github.com/heimdall-sbom/extractor/internal/factory"
	"github.com/heimdall-sbom/extractor/internal/pathutil"
)

// supplierTable backs Package enrichment's package_manager → supplier
// mapping, spec.md §4.8 step 7.
var supplierTable = map[string]string{
	"rpm":                      "Red Hat Package Manager",
	"deb":                      "Debian Package Manager",
	"conan":                    "Conan Center",
	"vcpkg":                    "vcpkg",
	"spack":                    "Spack",
	"heimdall-sbom executable": "Heimdall Project",
}

// extractorVersion is the evidence_extractor_version property value.
const extractorVersion = "heimdall-sbom-extractor/1.0"

// Aggregator orchestrates the full extraction pipeline. It is not a
// singleton: callers construct one per desired configuration, per spec.md
// §9 "Singletons" guidance.
type Aggregator struct {
	Factory             *factory.Factory
	Cache               *cache.Cache
	Collaborators       detect.Collaborators
	ExtractDebugInfo    bool
	ConfidenceThreshold float64
	nowUnix             func() int64
}

// New builds an Aggregator with a fresh factory, a fresh lazy symbol cache,
// the default external collaborators (detect.DefaultCollaborators), and the
// spec's default confidence threshold (0.7).
func New() *Aggregator {
	return &Aggregator{
		Factory:             factory.New(),
		Cache:               cache.New(),
		Collaborators:       detect.DefaultCollaborators(),
		ExtractDebugInfo:    true,
		ConfidenceThreshold: 0.7,
		nowUnix:             func() int64 { return time.Now().Unix() },
	}
}

// ExtractMetadata runs the full pipeline against c, which must already
// carry FilePath. It returns the success flag of step 2 (primary binary
// extraction), not the overall pipeline's — "mirroring the pre-refactor
// behavior" spec.md §4.8 calls for.
func (a *Aggregator) ExtractMetadata(c *component.Info) bool {
	// Step 1: existence check.
	if c.FilePath == "" || !pathutil.Exists(c.FilePath) {
		c.SetLastError(fmt.Sprintf("file does not exist: %s", c.FilePath))
		return false
	}

	c.FileSize = pathutil.Size(c.FilePath)

	primary, debugExtractor, primaryOK := a.extractPrimary(c)

	if a.ExtractDebugInfo {
		a.extractDebugFacts(c, primary, debugExtractor)
	}

	a.detectPackageManagerFromPath(c)
	a.detectFromManifest(c)

	if macho.IsMachO(c.FilePath) {
		a.enrichMachO(c)
	}
	a.enrichELF(c)

	a.enrichPackage(c)
	a.attachEvidence(c)
	a.postProcess(c)

	if !a.validate(c) {
		return false
	}

	c.Processed = true
	return primaryOK
}

// extractPrimary is pipeline step 2. It returns the chosen primary and
// debug extractors alongside the success flag, rather than storing them on
// the Aggregator, since spec.md §5 allows multiple ExtractMetadata calls
// to run concurrently on disjoint paths against the same Aggregator.
func (a *Aggregator) extractPrimary(c *component.Info) (extractors.BinaryExtractor, extractors.BinaryExtractor, bool) {
	_, matched := a.Factory.DetectAndBuild(c.FilePath)

	var primary extractors.BinaryExtractor
	var debugExtractor extractors.BinaryExtractor
	for _, e := range matched {
		if _, isDwarf := e.(*dwarf.Extractor); isDwarf {
			if debugExtractor == nil {
				debugExtractor = e
			}
			continue
		}
		if primary == nil {
			primary = e
		}
	}
	if debugExtractor == nil {
		if d, ok := a.Factory.ForFormat("DWARF"); ok {
			debugExtractor = d
		}
	}

	if primary == nil {
		c.SetLastError("no extractor could handle file: " + c.FilePath)
		return nil, debugExtractor, false
	}

	ok := true

	if syms, err := a.symbolsWithCache(c.FilePath, primary); err == nil && len(syms) > 0 {
		for _, s := range syms {
			c.AddSymbol(s)
		}
	} else if err != nil {
		c.SetLastError(err.Error())
		ok = false
	}

	if sections, err := primary.ExtractSections(c.FilePath); err == nil {
		for _, s := range sections {
			c.AddSection(s)
		}
	}

	if ft, ok := fileTyper(primary); ok {
		if typ, err := ft(c.FilePath); err == nil {
			c.FileType = typ
		}
	}

	if version, err := primary.ExtractVersion(c.FilePath); err == nil && version != "" {
		if !(strings.HasPrefix(version, "ELF") && c.FileType == component.FileTypeExecutable) {
			c.Version = version
		}
	}

	if deps, err := primary.ExtractDependencies(c.FilePath); err == nil {
		for _, d := range deps {
			c.AddDependency(d)
		}
	}

	return primary, debugExtractor, ok
}

// dedupeExtractors returns the non-nil extractors among candidates, in
// order, skipping one that is identical (by interface value) to one
// already included.
func dedupeExtractors(candidates ...extractors.BinaryExtractor) []extractors.BinaryExtractor {
	var out []extractors.BinaryExtractor
	for _, c := range candidates {
		if c == nil {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen == c {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// fileTyper adapts the ELF/Mach-O/PE extractors' shared but
// not-interface-mandated FileType(path) method, which only applies to
// format-specific extractors (the Archive and DWARF extractors have no
// single FileType classification).
func fileTyper(e extractors.BinaryExtractor) (func(string) (component.FileType, error), bool) {
	type typed interface {
		FileType(string) (component.FileType, error)
	}
	t, ok := e.(typed)
	if !ok {
		return nil, false
	}
	return t.FileType, true
}

// symbolsWithCache consults the lazy symbol cache before calling the
// extractor, and stores a fresh result back, per spec.md §4.6.
func (a *Aggregator) symbolsWithCache(path string, e extractors.BinaryExtractor) ([]component.SymbolInfo, error) {
	if cached, ok := a.Cache.Get(path); ok {
		out := make([]component.SymbolInfo, len(cached))
		copy(out, cached)
		return out, nil
	}
	syms, err := e.ExtractSymbols(path)
	if err != nil {
		return nil, err
	}
	a.Cache.Put(path, syms)
	return syms, nil
}

// extractDebugFacts is pipeline step 3. It consults both the debug
// extractor (embedded/sidecar DWARF, for ELF/Mach-O/PE primaries) and the
// primary extractor itself, merging whatever each supplies: a format like
// Ada carries its function/compile-unit/source-file facts directly on the
// primary extractor rather than behind a separate debug-info layer, so
// relying on debugExtractor alone would silently drop them.
func (a *Aggregator) extractDebugFacts(c *component.Info, primary, debugExtractor extractors.BinaryExtractor) {
	any := false
	for _, e := range dedupeExtractors(debugExtractor, primary) {
		if fns, err := e.ExtractFunctions(c.FilePath); err == nil && len(fns) > 0 {
			any = true
			for _, f := range fns {
				c.AddFunction(f)
			}
		}
		if cus, err := e.ExtractCompileUnits(c.FilePath); err == nil && len(cus) > 0 {
			any = true
			for _, u := range cus {
				c.AddCompileUnit(u)
			}
		}
		if srcs, err := e.ExtractSourceFiles(c.FilePath); err == nil && len(srcs) > 0 {
			any = true
			for _, s := range srcs {
				c.AddSourceFile(s)
			}
		}
	}
	if any {
		c.ContainsDebugInfo = true
	}
}

// detectPackageManagerFromPath is pipeline step 4.
func (a *Aggregator) detectPackageManagerFromPath(c *component.Info) {
	if a.Collaborators.PackageManager == nil {
		return
	}
	manager, _, ok := a.Collaborators.PackageManager.DetectFromPath(c.FilePath)
	if !ok || manager == "" {
		return
	}
	c.PackageManager = manager
	c.SetProperty("package_manager", manager)
}

// detectFromManifest is pipeline step 5: per fact family (package manager,
// license, version) adopt the highest-confidence result above the
// configured threshold.
func (a *Aggregator) detectFromManifest(c *component.Info) {
	dir := filepath.Dir(c.FilePath)

	if a.Collaborators.PackageManager != nil {
		if manager, facts, confidence, ok := a.Collaborators.PackageManager.DetectFromManifest(dir); ok &&
			confidence >= a.ConfidenceThreshold {
			if manager != "" {
				c.PackageManager = manager
			}
			detect.ApplyFacts(c, "manifest", facts)
		}
	}
	if a.Collaborators.License != nil {
		if spdxID, confidence, ok := a.Collaborators.License.DetectLicense(dir, c.Properties()); ok &&
			confidence >= a.ConfidenceThreshold {
			c.License = spdxID
		}
	}
	if a.Collaborators.Version != nil {
		if version, confidence, ok := a.Collaborators.Version.DetectVersion(dir, c.Properties()); ok &&
			confidence >= a.ConfidenceThreshold && c.Version == "" {
			c.Version = version
		}
	}
}

// enrichPackage is pipeline step 7.
func (a *Aggregator) enrichPackage(c *component.Info) {
	if supplier, ok := supplierTable[strings.ToLower(c.PackageManager)]; ok {
		c.Supplier = supplier
	}
	if c.Group == "" {
		c.Group = filepath.Base(filepath.Dir(c.FilePath))
	}
	if c.Manufacturer == "" {
		c.Manufacturer = c.Supplier
	}
}

// attachEvidence is pipeline step 8.
func (a *Aggregator) attachEvidence(c *component.Info) {
	c.SetProperty("evidence_extractor_version", extractorVersion)
	c.SetProperty("evidence_extraction_date", strconv.FormatInt(a.nowUnix(), 10))
	c.SetProperty("evidence_confidence_threshold", strconv.FormatFloat(a.ConfidenceThreshold, 'f', 2, 64))
	c.SetProperty("evidence:identity:symbols", strconv.Itoa(len(c.Symbols)))
	c.SetProperty("evidence:identity:sections", strconv.Itoa(len(c.Sections)))
	c.SetProperty("evidence:identity:hasDebugInfo", strconv.FormatBool(c.ContainsDebugInfo))
	c.SetProperty("evidence:identity:isStripped", strconv.FormatBool(c.IsStripped))
	c.SetProperty("evidence:identity:fileType", c.FileType.String())
	c.SetProperty("evidence:occurrence:location", c.FilePath)
	c.SetProperty("evidence:occurrence:size", strconv.FormatUint(c.FileSize, 10))
}

// postProcess is pipeline step 9.
func (a *Aggregator) postProcess(c *component.Info) {
	if c.Name == "" {
		c.Name = pathutil.ComponentName(c.FilePath)
	}
	if c.FileType == component.FileTypeUnknown {
		c.FileType = component.InferFileTypeFromExtension(pathutil.Extension(c.FilePath))
	}
}

// validate is pipeline step 10.
func (a *Aggregator) validate(c *component.Info) bool {
	if c.FilePath == "" {
		c.SetLastError("component has an empty file path")
		return false
	}
	return true
}

// ExtractMetadataBatched runs ExtractMetadata per path; the batch succeeds
// iff every per-file extraction does. Failed files are omitted from the
// returned slice (spec.md §4.8 "Batch mode"). The returned error joins every
// failed path's recorded error, or is nil when the batch is fully
// successful.
func (a *Aggregator) ExtractMetadataBatched(paths []string) ([]*component.Info, bool, error) {
	out := make([]*component.Info, 0, len(paths))
	var failures errs.Collector
	allOK := true
	for _, p := range paths {
		c := component.New(p)
		if a.ExtractMetadata(c) {
			out = append(out, c)
		} else {
			allOK = false
			failures.Addf("%s: %s", p, c.LastError())
		}
	}
	return out, allOK, failures.Err()
}
