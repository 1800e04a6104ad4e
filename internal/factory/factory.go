// Package factory implements the Extractor Factory (spec.md §4.7): format
// detection feeding extractor construction, with a priority-ordered list of
// every registered extractor and a registry for custom ones. Grounded in
// the teacher's own format-to-builder dispatch
// (src/holo-build/common/generator.go's NewGenerator switching on
// common.Format) generalized from package format to binary format.
package factory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/heimdall-sbom/extractor/internal/ada"
	"github.com/heimdall-sbom/extractor/internal/dwarf"
	"github.com/heimdall-sbom/extractor/internal/extractors"
	"github.com/heimdall-sbom/extractor/internal/extractors/archive"
	"github.com/heimdall-sbom/extractor/internal/extractors/elf"
	"github.com/heimdall-sbom/extractor/internal/extractors/macho"
	"github.com/heimdall-sbom/extractor/internal/extractors/pe"
	"github.com/heimdall-sbom/extractor/internal/format"
)

// Factory builds and enumerates extractors::BinaryExtractor instances.
type Factory struct {
	mu       sync.Mutex
	builtins []extractors.BinaryExtractor
	custom   map[string]extractors.BinaryExtractor
}

// New returns a Factory pre-registered with the four format-specific
// extractors plus the DWARF and Ada extractors, matching spec.md §4.7's
// "built-in extractor set".
func New() *Factory {
	f := &Factory{
		custom: make(map[string]extractors.BinaryExtractor),
	}
	f.builtins = []extractors.BinaryExtractor{
		&elf.Extractor{},
		&macho.Extractor{},
		&pe.Extractor{},
		&archive.Extractor{},
		&dwarf.Extractor{},
		&ada.Extractor{},
	}
	return f
}

// SetExcludeRuntimePackages propagates config.Config.ExcludeRuntimePkgs to
// the registered Ada extractor, if present.
func (f *Factory) SetExcludeRuntimePackages(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.builtins {
		if ae, ok := b.(*ada.Extractor); ok {
			ae.ExcludeRuntimePackages = v
		}
	}
}

// Register adds a custom extractor, refusing a duplicate format name
// (spec.md §4.7 "registration refuses a duplicate format name").
func (f *Factory) Register(e extractors.BinaryExtractor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := e.FormatName()
	if f.hasFormatLocked(name) {
		return fmt.Errorf("factory: extractor for format %q already registered", name)
	}
	f.custom[name] = e
	return nil
}

func (f *Factory) hasFormatLocked(name string) bool {
	for _, b := range f.builtins {
		if b.FormatName() == name {
			return true
		}
	}
	_, exists := f.custom[name]
	return exists
}

// AvailableExtractors returns every registered extractor (builtin plus
// custom), sorted by ascending Priority — "available_extractors sorted by
// priority" per spec.md §4.7.
func (f *Factory) AvailableExtractors() []extractors.BinaryExtractor {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := make([]extractors.BinaryExtractor, 0, len(f.builtins)+len(f.custom))
	all = append(all, f.builtins...)
	for _, e := range f.custom {
		all = append(all, e)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Priority() < all[j].Priority() })
	return all
}

// ForFormat returns the first registered extractor (builtin or custom)
// that reports the given format name, for callers that already know which
// format they want.
func (f *Factory) ForFormat(name string) (extractors.BinaryExtractor, bool) {
	for _, e := range f.AvailableExtractors() {
		if e.FormatName() == name {
			return e, true
		}
	}
	return nil, false
}

// DetectAndBuild runs format detection on path and returns every
// registered extractor whose CanHandle(path) agrees, ordered by priority —
// the primary dispatch operation the aggregator calls per spec.md §4.8
// step 2.
func (f *Factory) DetectAndBuild(path string) (format.Format, []extractors.BinaryExtractor) {
	detected := format.Detect(path)
	var matched []extractors.BinaryExtractor
	for _, e := range f.AvailableExtractors() {
		if e.CanHandle(path) {
			matched = append(matched, e)
		}
	}
	return detected, matched
}
