// Package extractors defines the capability interface shared by every
// format-specific parser (spec.md §4.4 "Binary Extractors (common
// contract)"), generalizing the teacher's per-format Generator interface
// (src/holo-build/common/generator.go) from package *building* to binary
// *extraction*.
package extractors

import "github.com/heimdall-sbom/extractor/internal/component"

// BinaryExtractor is the capability interface every format-specific parser
// implements. Extractors that do not natively support a given operation
// (e.g. Functions/CompileUnits/SourceFiles outside the DWARF extractor)
// return an empty, non-error result — never a crash.
type BinaryExtractor interface {
	ExtractSymbols(path string) ([]component.SymbolInfo, error)
	ExtractSections(path string) ([]component.SectionInfo, error)
	ExtractVersion(path string) (string, error)
	ExtractDependencies(path string) ([]string, error)
	ExtractFunctions(path string) ([]string, error)
	ExtractCompileUnits(path string) ([]string, error)
	ExtractSourceFiles(path string) ([]string, error)

	CanHandle(path string) bool
	FormatName() string
	// Priority orders competing extractors; lower numbers are preferred.
	Priority() int
}

// Base implements the operations most extractors don't support natively
// (Functions/CompileUnits/SourceFiles), so format-specific extractors can
// embed it and override only what they implement — the same "default
// empty" shape spec.md §4.4 describes.
type Base struct{}

func (Base) ExtractFunctions(string) ([]string, error)    { return nil, nil }
func (Base) ExtractCompileUnits(string) ([]string, error) { return nil, nil }
func (Base) ExtractSourceFiles(string) ([]string, error)  { return nil, nil }
