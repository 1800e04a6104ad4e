// Package macho implements the Mach-O Extractor (spec.md §4.4.2), built on
// the standard library's debug/macho, which already understands both
// single-arch and fat (universal) Mach-O containers via macho.NewFatFile.
package macho

import (
	"debug/macho"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/heimdall-sbom/extractor/internal/component"
	"github.com/heimdall-sbom/extractor/internal/extractors"
)

// Extractor implements extractors.BinaryExtractor for Mach-O binaries,
// single-arch or fat.
type Extractor struct {
	extractors.Base
}

var _ extractors.BinaryExtractor = (*Extractor)(nil)

func (e *Extractor) FormatName() string { return "Mach-O" }
func (e *Extractor) Priority() int      { return 10 }

var singleMagics = map[uint32]bool{
	macho.Magic32:        true,
	macho.Magic64:        true,
	0xCEFAEDFE:           true, // MH_CIGAM (swapped 32-bit)
	0xCFFAEDFE:           true, // MH_CIGAM_64 (swapped 64-bit)
}

var fatMagics = map[uint32]bool{
	macho.MagicFat: true,
	0xBEBAFECA:     true, // FAT_CIGAM (byte-swapped fat)
	0xCAFEBABF:     true, // fat-64
	0xBFBAFECA:     true, // byte-swapped fat-64
}

// CanHandle reports whether path begins with a recognized Mach-O magic
// (single-arch or fat, either endianness).
func (e *Extractor) CanHandle(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var buf [4]byte
	if n, _ := f.Read(buf[:]); n < 4 {
		return false
	}
	magic := binary.BigEndian.Uint32(buf[:])
	return singleMagics[magic] || fatMagics[magic] || singleMagics[binary.LittleEndian.Uint32(buf[:])]
}

func isFat(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var buf [4]byte
	if n, _ := f.Read(buf[:]); n < 4 {
		return false
	}
	return fatMagics[binary.BigEndian.Uint32(buf[:])]
}

// primaryFile opens the first (or only) Mach-O image in path: for a fat
// binary this is the first architecture slice, matching spec.md §4.4.2
// "Single-arch architectures are classified...taken from the primary
// header" semantics used for platform_info.
func primaryFile(path string) (*macho.File, func(), error) {
	if isFat(path) {
		ff, err := macho.OpenFat(path)
		if err != nil {
			return nil, nil, err
		}
		if len(ff.Arches) == 0 {
			return nil, func() { ff.Close() }, fmt.Errorf("macho: fat binary has no architectures")
		}
		return ff.Arches[0].File, func() { ff.Close() }, nil
	}
	f, err := macho.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func archName(cpu macho.Cpu) string {
	switch cpu {
	case macho.Cpu386:
		return "i386"
	case macho.CpuAmd64:
		return "x86_64"
	case macho.CpuArm:
		return "arm"
	case macho.CpuArm64:
		return "arm64"
	case macho.CpuPpc:
		return "ppc"
	case macho.CpuPpc64:
		return "ppc64"
	default:
		return "unknown"
	}
}

func fileTypeLabel(t macho.Type) string {
	switch t {
	case macho.TypeObj:
		return "MH_OBJECT"
	case macho.TypeExec:
		return "MH_EXECUTE"
	case macho.TypeDylib:
		return "MH_DYLIB"
	case macho.TypeBundle:
		return "MH_BUNDLE"
	case 0xA:
		return "MH_DSYM"
	default:
		return "MH_OBJECT"
	}
}

// ExtractVersion returns a descriptor of the form "Mach-O-<arch>-<type>".
func (e *Extractor) ExtractVersion(path string) (string, error) {
	f, closeFn, err := primaryFile(path)
	if err != nil {
		return "", err
	}
	defer closeFn()
	return fmt.Sprintf("Mach-O-%s-%s", archName(f.Cpu), fileTypeLabel(f.Type)), nil
}

// FileType classifies this binary's component.FileType.
func (e *Extractor) FileType(path string) (component.FileType, error) {
	f, closeFn, err := primaryFile(path)
	if err != nil {
		return component.FileTypeUnknown, err
	}
	defer closeFn()
	switch f.Type {
	case macho.TypeExec:
		return component.FileTypeExecutable, nil
	case macho.TypeDylib:
		return component.FileTypeSharedLibrary, nil
	case macho.TypeObj:
		return component.FileTypeObject, nil
	default:
		return component.FileTypeUnknown, nil
	}
}

// ExtractSymbols reads the LC_SYMTAB-derived symbol table.
func (e *Extractor) ExtractSymbols(path string) ([]component.SymbolInfo, error) {
	f, closeFn, err := primaryFile(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	if f.Symtab == nil {
		return nil, nil
	}
	out := make([]component.SymbolInfo, 0, len(f.Symtab.Syms))
	for _, s := range f.Symtab.Syms {
		const nTypeStab = 0xe0
		const nTypeExt = 0x01
		const nTypeType = 0x0e
		const nTypeUndf = 0x0
		global := s.Type&nTypeExt != 0
		defined := (s.Type&nTypeType) != nTypeUndf && s.Sect != 0
		out = append(out, component.SymbolInfo{
			Name:    s.Name,
			Address: s.Value,
			Defined: defined,
			Global:  global,
			Weak:    s.Desc&0x0080 != 0, // N_WEAK_DEF
			Section: sectionNameAt(f, s.Sect),
		})
	}
	return out, nil
}

func sectionNameAt(f *macho.File, sect uint8) string {
	idx := int(sect) - 1
	if idx < 0 || idx >= len(f.Sections) {
		return ""
	}
	return f.Sections[idx].Name
}

// ExtractSections enumerates LC_SEGMENT/LC_SEGMENT_64 sections.
func (e *Extractor) ExtractSections(path string) ([]component.SectionInfo, error) {
	f, closeFn, err := primaryFile(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	out := make([]component.SectionInfo, 0, len(f.Sections))
	for _, s := range f.Sections {
		out = append(out, component.SectionInfo{
			Name:    s.Name,
			Type:    "PROGBITS",
			Address: s.Addr,
			Size:    s.Size,
			Flags:   uint64(s.Flags),
		})
	}
	return out, nil
}

// ExtractDependencies collects the dylib names of LC_LOAD_DYLIB load
// commands, the only dylib command debug/macho decodes; LC_LOAD_WEAK_DYLIB,
// LC_REEXPORT_DYLIB and LC_LAZY_LOAD_DYLIB entries are not returned.
func (e *Extractor) ExtractDependencies(path string) ([]string, error) {
	f, closeFn, err := primaryFile(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var out []string
	seen := make(map[string]bool)
	for _, l := range f.Loads {
		dylib, ok := l.(*macho.Dylib)
		if !ok {
			continue
		}
		name := dylib.Name
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

// UUID returns the LC_UUID build identifier as a hex string, if present.
func (e *Extractor) UUID(path string) (string, bool) {
	f, closeFn, err := primaryFile(path)
	if err != nil {
		return "", false
	}
	defer closeFn()
	for _, l := range f.Loads {
		raw := l.Raw()
		// LC_UUID's payload is a fixed 16-byte id immediately after the
		// 8-byte load-command header; debug/macho doesn't model it as a
		// typed struct, so it is read directly off Raw().
		if len(raw) >= 24 {
			cmd := binary.LittleEndian.Uint32(raw[0:4])
			const lcUUID = 0x1b
			if cmd == lcUUID {
				return fmt.Sprintf("%x", raw[8:24]), true
			}
		}
	}
	return "", false
}

// Architectures enumerates every sub-architecture of a fat Mach-O, or a
// single entry for a non-fat binary. An empty fat archive (nfat_arch == 0)
// yields an empty, non-error slice per spec.md §8 boundary behavior.
func (e *Extractor) Architectures(path string) ([]component.ArchitectureInfo, error) {
	if !isFat(path) {
		f, closeFn, err := primaryFile(path)
		if err != nil {
			return nil, err
		}
		defer closeFn()
		return []component.ArchitectureInfo{{
			Name:    archName(f.Cpu),
			CPUType: uint32(f.Cpu),
		}}, nil
	}

	// debug/macho rejects a fat header with nfat_arch == 0, so that case is
	// answered from the header bytes before opening.
	if f, err := os.Open(path); err == nil {
		var hdr [8]byte
		n, _ := f.ReadAt(hdr[:], 0)
		f.Close()
		if n == 8 && binary.BigEndian.Uint32(hdr[4:8]) == 0 {
			return []component.ArchitectureInfo{}, nil
		}
	}

	ff, err := macho.OpenFat(path)
	if err != nil {
		return nil, err
	}
	defer ff.Close()

	out := make([]component.ArchitectureInfo, 0, len(ff.Arches))
	for _, a := range ff.Arches {
		out = append(out, component.ArchitectureInfo{
			Name:       archName(a.Cpu),
			CPUType:    uint32(a.Cpu),
			CPUSubtype: a.SubCpu,
			Offset:     uint64(a.Offset),
			Size:       uint64(a.Size),
			Align:      a.Align,
		})
	}
	return out, nil
}

// IsMachO reports whether path is recognized as any Mach-O variant; used
// by the aggregator to gate Platform Enrichment step 6.
func IsMachO(path string) bool {
	e := &Extractor{}
	return e.CanHandle(path)
}

func versionString(packed uint32) string {
	return fmt.Sprintf("%d.%d.%d", packed>>16&0xffff, packed>>8&0xff, packed&0xff)
}

// BuildVersion reads the LC_BUILD_VERSION or LC_VERSION_MIN_MACOSX load
// command, returning its minimum OS version and (for LC_BUILD_VERSION) the
// SDK version, in X.Y.Z form. debug/macho does not model either command as
// a typed struct, so their fixed-layout payloads are read directly off
// Raw().
func (e *Extractor) BuildVersion(path string) (minOS string, sdk string, ok bool) {
	f, closeFn, err := primaryFile(path)
	if err != nil {
		return "", "", false
	}
	defer closeFn()

	const lcBuildVersion = 0x32
	const lcVersionMinMacOSX = 0x24
	for _, l := range f.Loads {
		raw := l.Raw()
		if len(raw) < 8 {
			continue
		}
		cmd := binary.LittleEndian.Uint32(raw[0:4])
		switch cmd {
		case lcBuildVersion:
			// cmd, cmdsize, platform, minos, sdk, ntools
			if len(raw) < 24 {
				continue
			}
			minos := binary.LittleEndian.Uint32(raw[12:16])
			sdkVer := binary.LittleEndian.Uint32(raw[16:20])
			return versionString(minos), versionString(sdkVer), true
		case lcVersionMinMacOSX:
			// cmd, cmdsize, version, sdk
			if len(raw) < 16 {
				continue
			}
			minos := binary.LittleEndian.Uint32(raw[8:12])
			sdkVer := binary.LittleEndian.Uint32(raw[12:16])
			return versionString(minos), versionString(sdkVer), true
		}
	}
	return "", "", false
}
