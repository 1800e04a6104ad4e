// Package pe implements the PE Extractor (spec.md §4.4.3) on top of the
// standard library's debug/pe, which already validates the DOS header, the
// e_lfanew-addressed NT header, and the COFF file header.
package pe

import (
	"debug/pe"
	"os"

	"github.com/heimdall-sbom/extractor/internal/component"
	"github.com/heimdall-sbom/extractor/internal/extractors"
)

// Extractor implements extractors.BinaryExtractor for PE/COFF images.
// Symbol/dependency/version extraction are best-effort: COFF symbol
// tables, import tables, and VS_VERSIONINFO resources are rarer in
// optimized release binaries, so an empty result here is a correct,
// expected outcome rather than a failure (spec.md §4.4.3 explicitly allows
// this in "a minimum-viable core").
type Extractor struct {
	extractors.Base
}

var _ extractors.BinaryExtractor = (*Extractor)(nil)

func (e *Extractor) FormatName() string { return "PE" }
func (e *Extractor) Priority() int      { return 10 }

// CanHandle validates the DOS "MZ" header only — a cheap, allocation-free
// check appropriate for a can_handle probe; ExtractVersion does the
// full NT-header walk.
func (e *Extractor) CanHandle(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var magic [2]byte
	if n, _ := f.Read(magic[:]); n < 2 {
		return false
	}
	return magic[0] == 'M' && magic[1] == 'Z'
}

func archName(m uint16) string {
	switch pe.Machine(m) {
	case pe.IMAGE_FILE_MACHINE_I386:
		return "x86"
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "x64"
	case pe.IMAGE_FILE_MACHINE_ARM:
		return "ARM"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "ARM64"
	case pe.IMAGE_FILE_MACHINE_IA64:
		return "IA64"
	case pe.IMAGE_FILE_MACHINE_POWERPC:
		return "PowerPC"
	case pe.IMAGE_FILE_MACHINE_POWERPCFP:
		return "PowerPC FP"
	default:
		return "Unknown"
	}
}

// Is64Bit reports whether the machine field is AMD64 or ARM64, per
// spec.md §4.4.3.
func Is64Bit(machine uint16) bool {
	return pe.Machine(machine) == pe.IMAGE_FILE_MACHINE_AMD64 ||
		pe.Machine(machine) == pe.IMAGE_FILE_MACHINE_ARM64
}

func fileTypeLabel(characteristics uint16) string {
	const imageFileDLL = 0x2000
	const imageFileExecutableImage = 0x0002
	switch {
	case characteristics&imageFileDLL != 0:
		return "DLL"
	case characteristics&imageFileExecutableImage != 0:
		return "EXE"
	default:
		return "OBJ"
	}
}

// ExtractVersion returns a descriptor of the form "PE-<arch>-<type>".
func (e *Extractor) ExtractVersion(path string) (string, error) {
	f, err := pe.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return "PE-" + archName(f.FileHeader.Machine) + "-" + fileTypeLabel(f.FileHeader.Characteristics), nil
}

// FileType classifies this image's component.FileType.
func (e *Extractor) FileType(path string) (component.FileType, error) {
	f, err := pe.Open(path)
	if err != nil {
		return component.FileTypeUnknown, err
	}
	defer f.Close()

	const imageFileDLL = 0x2000
	const imageFileExecutableImage = 0x0002
	switch {
	case f.FileHeader.Characteristics&imageFileDLL != 0:
		return component.FileTypeSharedLibrary, nil
	case f.FileHeader.Characteristics&imageFileExecutableImage != 0:
		return component.FileTypeExecutable, nil
	default:
		return component.FileTypeObject, nil
	}
}

// ExtractSections enumerates PE section headers.
func (e *Extractor) ExtractSections(path string) ([]component.SectionInfo, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]component.SectionInfo, 0, len(f.Sections))
	for _, s := range f.Sections {
		out = append(out, component.SectionInfo{
			Name:    s.Name,
			Type:    "PROGBITS",
			Address: uint64(s.VirtualAddress),
			Size:    uint64(s.Size),
			Flags:   uint64(s.Characteristics),
		})
	}
	return out, nil
}

// ExtractSymbols reads the COFF symbol table, when present. Many optimized
// PE binaries strip it, in which case this correctly returns an empty
// slice.
func (e *Extractor) ExtractSymbols(path string) ([]component.SymbolInfo, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]component.SymbolInfo, 0, len(f.COFFSymbols))
	for _, s := range f.COFFSymbols {
		name, err := s.FullName(f.StringTable)
		if err != nil || name == "" {
			continue
		}
		out = append(out, component.SymbolInfo{
			Name:    name,
			Address: uint64(s.Value),
			Defined: s.SectionNumber > 0,
			Global:  s.StorageClass == 2, // IMAGE_SYM_CLASS_EXTERNAL
		})
	}
	return out, nil
}

// ExtractDependencies walks the Import Address Table for imported DLL
// names.
func (e *Extractor) ExtractDependencies(path string) ([]string, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	libs, err := f.ImportedLibraries()
	if err != nil {
		return nil, nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, l := range libs {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out, nil
}
