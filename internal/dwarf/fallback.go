package dwarf

import (
	"debug/elf"
	"debug/macho"
	"encoding/binary"
	"strings"
)

// DWARF tag/attribute/form constants needed to walk .debug_info without the
// standard library's debug/dwarf. Only the subset this fallback actually
// consumes or must skip past is named.
const (
	dwTagCompileUnit = 0x11
	dwTagSubprogram  = 0x2e

	dwAtName = 0x03

	dwFormAddr          = 0x01
	dwFormBlock2        = 0x03
	dwFormBlock4        = 0x04
	dwFormData2         = 0x05
	dwFormData4         = 0x06
	dwFormData8         = 0x07
	dwFormString        = 0x08
	dwFormBlock         = 0x09
	dwFormBlock1        = 0x0a
	dwFormData1         = 0x0b
	dwFormFlag          = 0x0c
	dwFormSdata         = 0x0d
	dwFormStrp          = 0x0e
	dwFormUdata         = 0x0f
	dwFormRefAddr       = 0x10
	dwFormRef1          = 0x11
	dwFormRef2          = 0x12
	dwFormRef4          = 0x13
	dwFormRef8          = 0x14
	dwFormRefUdata      = 0x15
	dwFormIndirect      = 0x16
	dwFormSecOffset     = 0x17
	dwFormExprloc       = 0x18
	dwFormFlagPresent   = 0x19
	dwFormStrx          = 0x1a
	dwFormAddrx         = 0x1b
	dwFormRefSup4       = 0x1c
	dwFormStrpSup       = 0x1d
	dwFormData16        = 0x1e
	dwFormLineStrp      = 0x1f
	dwFormRefSig8       = 0x20
	dwFormImplicitConst = 0x21
	dwFormLoclistx      = 0x22
	dwFormRnglistx      = 0x23
	dwFormRefSup8       = 0x24
	dwFormStrx1         = 0x25
	dwFormStrx2         = 0x26
	dwFormStrx3         = 0x27
	dwFormStrx4         = 0x28
	dwFormAddrx1        = 0x29
	dwFormAddrx2        = 0x2a
	dwFormAddrx3        = 0x2b
	dwFormAddrx4        = 0x2c
)

// maxLEBBytes bounds ULEB128/SLEB128 decoding, per spec.md §5.
const maxLEBBytes = 10

// maxLineStringBytes bounds a single include-directory/file-name entry in
// the structured .debug_line parser, per spec.md §5 ("per-string length at
// <=1 KiB in the line parser").
const maxLineStringBytes = 1024

// extractViaFallback is the lightweight path spec.md §4.5 requires when no
// DWARF library can open the container (malformed .debug_abbrev, a
// line-program header with opcode_base == 0 per Open Question #3, or a
// section layout the primary path doesn't recognize). It never panics and
// never returns an error; a malformed input simply yields empty results
// (spec.md §8 "every DWARF parse on a malformed input...result vectors are
// empty").
//
// Per Open Question #4, compile units and functions are recovered by
// resolving each DIE's abbreviation code against a parsed .debug_abbrev
// table rather than comparing the code directly against a tag constant.
// Source files come from a structured .debug_line parse first; only when
// that yields nothing does it fall back to scanning raw bytes for
// path-shaped substrings (Open Question #5: "the file-name heuristic...can
// emit substrings from unrelated data; callers should treat its output as
// advisory").
func extractViaFallback(path string) result {
	var r result

	sections := rawNamedSections(path, map[string]bool{
		".debug_info": true, ".debug_abbrev": true, ".debug_str": true, ".debug_line": true,
	})

	if info, ok := sections[".debug_info"]; ok {
		if abbrev, ok := sections[".debug_abbrev"]; ok {
			r.compileUnits, r.functions = extractViaDebugInfo(info, abbrev, sections[".debug_str"])
		}
	}

	if line, ok := sections[".debug_line"]; ok {
		if srcs, ok := parseDebugLine(line); ok {
			r.sourceFiles = srcs
		}
	}

	if len(r.sourceFiles) == 0 {
		r.sourceFiles = heuristicSourceFiles(path)
	}

	return r
}

// heuristicSourceFiles scans .debug_str/.debug_line for printable,
// path-shaped substrings, the last resort spec.md §4.5 describes.
func heuristicSourceFiles(path string) []string {
	raw, ok := rawDebugStrSections(path)
	if !ok {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, section := range raw {
		for _, s := range candidateSourceStrings(section) {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// rawNamedSections reads the uncompressed bytes of every section in wanted,
// each capped to 1 MiB.
func rawNamedSections(path string, wanted map[string]bool) map[string][]byte {
	out := make(map[string][]byte)
	if f, err := elf.Open(path); err == nil {
		defer f.Close()
		for _, s := range f.Sections {
			if !wanted[s.Name] {
				continue
			}
			if data, err := s.Data(); err == nil {
				out[s.Name] = capTo1MiB(data)
			}
		}
		return out
	}
	if f, err := macho.Open(path); err == nil {
		defer f.Close()
		for _, s := range f.Sections {
			name := "." + s.Name
			if !wanted[name] {
				continue
			}
			if data, err := s.Data(); err == nil {
				out[name] = capTo1MiB(data)
			}
		}
		return out
	}
	return out
}

// rawDebugStrSections reads the uncompressed bytes of .debug_str and
// .debug_line (or their .zdebug_ compressed counterparts, transparently
// decompressed by the container reader) without attempting to parse their
// internal structure.
func rawDebugStrSections(path string) ([][]byte, bool) {
	wanted := map[string]bool{".debug_str": true, ".debug_line": true, ".zdebug_str": true, ".zdebug_line": true}
	sections := rawNamedSections(path, wanted)
	out := make([][]byte, 0, len(sections))
	for _, data := range sections {
		out = append(out, data)
	}
	return out, len(out) > 0
}

// capTo1MiB enforces spec.md §5 "Parsers read at most 1 MiB of any DWARF
// section into memory".
func capTo1MiB(data []byte) []byte {
	const maxSection = 1 << 20
	if len(data) > maxSection {
		return data[:maxSection]
	}
	return data
}

// candidateSourceStrings scans raw for runs of printable bytes that look
// like a file path: 3 to 512 characters, containing a '/' or '\', and
// ending in a '.' followed by a 1-4 letter alphabetic extension.
func candidateSourceStrings(raw []byte) []string {
	var out []string
	start := -1
	flush := func(end int) {
		if start < 0 || end <= start {
			start = -1
			return
		}
		s := string(raw[start:end])
		start = -1
		if looksLikeSourcePath(s) {
			out = append(out, s)
		}
	}
	for i, b := range raw {
		if b >= 0x20 && b < 0x7f {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(raw))
	return out
}

func looksLikeSourcePath(s string) bool {
	if len(s) < 3 || len(s) > 512 {
		return false
	}
	if !strings.ContainsAny(s, "/\\") {
		return false
	}
	dot := strings.LastIndexByte(s, '.')
	if dot < 0 || dot == len(s)-1 {
		return false
	}
	ext := s[dot+1:]
	if len(ext) < 1 || len(ext) > 4 {
		return false
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// uleb128 decodes an unsigned LEB128 value from the start of data, returning
// the value and the number of bytes consumed, or (0, 0) on a malformed or
// over-long (>10 byte) encoding.
func uleb128(data []byte) (uint64, int) {
	var result uint64
	var shift uint
	for i := 0; i < len(data) && i < maxLEBBytes; i++ {
		b := data[i]
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}
	return 0, 0
}

// sleb128 decodes a signed LEB128 value the same way uleb128 does.
func sleb128(data []byte) (int64, int) {
	var result int64
	var shift uint
	var b byte
	i := 0
	for ; i < len(data) && i < maxLEBBytes; i++ {
		b = data[i]
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, i + 1
		}
	}
	return 0, 0
}

type abbrevAttr struct {
	attr uint64
	form uint64
}

type abbrevDecl struct {
	tag         uint64
	hasChildren bool
	attrs       []abbrevAttr
}

// parseAbbrevTable parses the .debug_abbrev table starting at byte offset
// start within data, per DWARF §7.5.3: a sequence of (code, tag,
// has_children, attr/form pairs...) entries terminated by a zero code.
func parseAbbrevTable(data []byte, start int) map[uint64]abbrevDecl {
	out := make(map[uint64]abbrevDecl)
	offset := start
	for offset < len(data) {
		code, n := uleb128(data[offset:])
		if n == 0 {
			return out
		}
		offset += n
		if code == 0 {
			return out
		}
		tag, n := uleb128(data[offset:])
		if n == 0 {
			return out
		}
		offset += n
		if offset >= len(data) {
			return out
		}
		hasChildren := data[offset] != 0
		offset++

		var attrs []abbrevAttr
		for {
			attr, n := uleb128(data[offset:])
			if n == 0 {
				return out
			}
			offset += n
			form, n := uleb128(data[offset:])
			if n == 0 {
				return out
			}
			offset += n
			if form == dwFormImplicitConst {
				_, n := sleb128(data[offset:])
				if n == 0 {
					return out
				}
				offset += n
			}
			if attr == 0 && form == 0 {
				break
			}
			attrs = append(attrs, abbrevAttr{attr: attr, form: form})
		}
		out[code] = abbrevDecl{tag: tag, hasChildren: hasChildren, attrs: attrs}
	}
	return out
}

// cuHeader is a parsed 32-bit DWARF compile-unit header (DWARF2-5). 64-bit
// DWARF (the 0xffffffff length escape) is not supported by this fallback.
type cuHeader struct {
	length       uint64
	version      uint16
	abbrevOffset uint64
	addrSize     uint8
	headerBytes  int // bytes consumed after the initial length field
}

func parseCUHeader(data []byte) (cuHeader, bool) {
	if len(data) < 4 {
		return cuHeader{}, false
	}
	length := uint64(binary.LittleEndian.Uint32(data[0:4]))
	if length == 0xffffffff {
		return cuHeader{}, false
	}
	off := 4
	if off+2 > len(data) {
		return cuHeader{}, false
	}
	version := binary.LittleEndian.Uint16(data[off : off+2])
	off += 2

	var abbrevOffset uint64
	var addrSize uint8
	if version >= 5 {
		if off+6 > len(data) {
			return cuHeader{}, false
		}
		off++ // unit_type
		addrSize = data[off]
		off++
		abbrevOffset = uint64(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
	} else {
		if off+5 > len(data) {
			return cuHeader{}, false
		}
		abbrevOffset = uint64(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		addrSize = data[off]
		off++
	}
	return cuHeader{length: length, version: version, abbrevOffset: abbrevOffset, addrSize: addrSize, headerBytes: off - 4}, true
}

// readFormValue reads the value for form at data[offset:], returning the
// number of bytes consumed and, for a string-valued form, the string
// itself (resolved against debugStr for the *strp forms). ok is false when
// data does not hold a complete value for the form, signaling the caller to
// stop walking this compile unit.
func readFormValue(data []byte, offset int, form uint64, addrSize uint8, debugStr []byte) (consumed int, str string, ok bool) {
	switch form {
	case dwFormAddr:
		return int(addrSize), "", offset+int(addrSize) <= len(data)
	case dwFormBlock1:
		if offset >= len(data) {
			return 0, "", false
		}
		n := int(data[offset])
		return 1 + n, "", offset+1+n <= len(data)
	case dwFormBlock2:
		if offset+2 > len(data) {
			return 0, "", false
		}
		n := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
		return 2 + n, "", offset+2+n <= len(data)
	case dwFormBlock4:
		if offset+4 > len(data) {
			return 0, "", false
		}
		n := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		return 4 + n, "", offset+4+n <= len(data)
	case dwFormBlock, dwFormExprloc:
		n, k := uleb128(data[offset:])
		if k == 0 {
			return 0, "", false
		}
		return k + int(n), "", offset+k+int(n) <= len(data)
	case dwFormData1, dwFormRef1, dwFormFlag, dwFormStrx1, dwFormAddrx1:
		return 1, "", offset+1 <= len(data)
	case dwFormData2, dwFormRef2, dwFormStrx2, dwFormAddrx2:
		return 2, "", offset+2 <= len(data)
	case dwFormStrx3, dwFormAddrx3:
		return 3, "", offset+3 <= len(data)
	case dwFormData4, dwFormRef4, dwFormRefSup4, dwFormStrx4, dwFormAddrx4, dwFormSecOffset, dwFormLineStrp, dwFormRefAddr:
		return 4, "", offset+4 <= len(data)
	case dwFormData8, dwFormRef8, dwFormRefSig8, dwFormRefSup8:
		return 8, "", offset+8 <= len(data)
	case dwFormData16:
		return 16, "", offset+16 <= len(data)
	case dwFormSdata:
		_, k := sleb128(data[offset:])
		return k, "", k > 0
	case dwFormUdata, dwFormRefUdata, dwFormStrx, dwFormAddrx, dwFormLoclistx, dwFormRnglistx:
		_, k := uleb128(data[offset:])
		return k, "", k > 0
	case dwFormString:
		end := offset
		for end < len(data) && data[end] != 0 {
			end++
		}
		if end >= len(data) {
			return 0, "", false
		}
		return end - offset + 1, string(data[offset:end]), true
	case dwFormStrp, dwFormStrpSup:
		if offset+4 > len(data) {
			return 0, "", false
		}
		strOff := binary.LittleEndian.Uint32(data[offset : offset+4])
		return 4, lookupDebugStr(debugStr, int(strOff)), true
	case dwFormFlagPresent, dwFormImplicitConst:
		return 0, "", true
	default:
		// DW_FORM_indirect and anything newer than this table knows about:
		// the fallback can't safely skip it, so the caller abandons this CU.
		return 0, "", false
	}
}

func lookupDebugStr(debugStr []byte, off int) string {
	if off < 0 || off >= len(debugStr) {
		return ""
	}
	end := off
	for end < len(debugStr) && debugStr[end] != 0 {
		end++
	}
	return string(debugStr[off:end])
}

// extractViaDebugInfo walks .debug_info using .debug_abbrev to resolve each
// DIE's abbreviation code to its tag (Open Question #4), collecting
// DW_TAG_compile_unit and DW_TAG_subprogram names. A compile unit whose
// abbreviation code or form data it cannot interpret is abandoned in place;
// already-recovered names from prior units are kept.
func extractViaDebugInfo(debugInfo, debugAbbrev, debugStr []byte) (compileUnits, functions []string) {
	seenCU := make(map[string]bool)
	seenFn := make(map[string]bool)

	cuOffset := 0
	for cuOffset+4 <= len(debugInfo) {
		hdr, ok := parseCUHeader(debugInfo[cuOffset:])
		if !ok || hdr.length == 0 {
			break
		}
		unitEnd := cuOffset + 4 + int(hdr.length)
		if unitEnd > len(debugInfo) {
			break
		}
		abbrevs := parseAbbrevTable(debugAbbrev, int(hdr.abbrevOffset))

		pos := cuOffset + 4 + hdr.headerBytes
		depth := 0
	die:
		for pos < unitEnd {
			code, n := uleb128(debugInfo[pos:])
			if n == 0 {
				break die
			}
			pos += n
			if code == 0 {
				depth--
				if depth < 0 {
					break die
				}
				continue
			}
			decl, ok := abbrevs[code]
			if !ok {
				break die
			}

			var name string
			for _, a := range decl.attrs {
				consumed, s, ok := readFormValue(debugInfo, pos, a.form, hdr.addrSize, debugStr)
				if !ok {
					break die
				}
				if a.attr == dwAtName && s != "" {
					name = s
				}
				pos += consumed
			}

			switch decl.tag {
			case dwTagCompileUnit:
				if name != "" && !seenCU[name] {
					seenCU[name] = true
					compileUnits = append(compileUnits, name)
				}
			case dwTagSubprogram:
				if name != "" && !seenFn[name] {
					seenFn[name] = true
					functions = append(functions, name)
				}
			}
			if decl.hasChildren {
				depth++
			}
		}
		cuOffset = unitEnd
	}
	return compileUnits, functions
}

// parseDebugLine implements the structured .debug_line header parse spec.md
// §4.5 describes: for each line-number program, reads unit_length,
// version, header_length, min_inst_length, default_is_stmt, line_base,
// line_range, opcode_base; skips the standard-opcode-length table; then
// parses the DWARF2-4 include-directory table (NUL-terminated strings until
// an empty entry) and file-name table (name + directory index + modified
// time + length, each ULEB128), adding every listed file name. DWARF5's
// incompatible directory/file-entry-format encoding is not supported by
// this fallback; such a unit is skipped rather than misparsed.
func parseDebugLine(data []byte) ([]string, bool) {
	var out []string
	seen := make(map[string]bool)

	pos := 0
	for pos+4 <= len(data) {
		unitLength := binary.LittleEndian.Uint32(data[pos : pos+4])
		unitStart := pos + 4
		if unitLength == 0 || unitLength == 0xffffffff {
			break
		}
		unitEnd := unitStart + int(unitLength)
		if unitEnd > len(data) {
			break
		}

		p := unitStart
		if p+2 > unitEnd {
			break
		}
		version := binary.LittleEndian.Uint16(data[p : p+2])
		p += 2
		if p+4 > unitEnd {
			break
		}
		p += 4 // header_length; programStart is unneeded since we stop at unitEnd
		if version >= 5 {
			pos = unitEnd
			continue
		}

		if p+4 > unitEnd {
			pos = unitEnd
			continue
		}
		p++ // minimum_instruction_length
		p++ // default_is_stmt
		p++ // line_base
		p++ // line_range
		if p >= unitEnd {
			pos = unitEnd
			continue
		}
		opcodeBase := data[p]
		p++
		if opcodeBase == 0 || p+int(opcodeBase)-1 > unitEnd {
			pos = unitEnd
			continue
		}
		p += int(opcodeBase) - 1

		var ok bool
		p, ok = skipNulStringTable(data, p, unitEnd)
		if !ok {
			pos = unitEnd
			continue
		}

		for p < unitEnd && data[p] != 0 {
			end := p
			for end < unitEnd && data[end] != 0 && end-p < maxLineStringBytes {
				end++
			}
			if end >= unitEnd || end-p >= maxLineStringBytes {
				break
			}
			name := string(data[p:end])
			p = end + 1
			consumed := true
			for i := 0; i < 3; i++ {
				_, n := uleb128(data[p:unitEnd])
				if n == 0 {
					consumed = false
					break
				}
				p += n
			}
			if !consumed {
				break
			}
			if name != "" && !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
		pos = unitEnd
	}
	return out, len(out) > 0
}

// skipNulStringTable advances past a sequence of NUL-terminated strings
// terminated by an empty one (the include-directory table's layout),
// returning the position just past the terminator.
func skipNulStringTable(data []byte, p, limit int) (int, bool) {
	for p < limit && data[p] != 0 {
		end := p
		for end < limit && data[end] != 0 && end-p < maxLineStringBytes {
			end++
		}
		if end >= limit || end-p >= maxLineStringBytes {
			return 0, false
		}
		p = end + 1
	}
	if p < limit {
		p++
	}
	return p, true
}
