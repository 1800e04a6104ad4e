package dwarf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULEB128RoundTripsSmallValues(t *testing.T) {
	v, n := uleb128([]byte{0x7f, 0xAA})
	assert.Equal(t, uint64(0x7f), v)
	assert.Equal(t, 1, n)
}

func TestULEB128DecodesMultiByteValue(t *testing.T) {
	// 624485 encodes as 0xE5 0x8E 0x26 per the DWARF spec's own example.
	v, n := uleb128([]byte{0xE5, 0x8E, 0x26})
	assert.Equal(t, uint64(624485), v)
	assert.Equal(t, 3, n)
}

func TestSLEB128DecodesNegativeValue(t *testing.T) {
	// -2 encodes as 0x7e.
	v, n := sleb128([]byte{0x7e})
	assert.Equal(t, int64(-2), v)
	assert.Equal(t, 1, n)
}

// u casts a small constant to a single ULEB128-encoded byte (only valid
// for n < 128, true of every tag/attr/form constant used in these tests).
func u(n byte) byte { return n }

func cstr(s string) []byte { return append([]byte(s), 0) }

func TestParseAbbrevTableResolvesCodesToTagsAndAttrs(t *testing.T) {
	abbrev := []byte{
		u(1), u(dwTagCompileUnit), 1, u(dwAtName), u(dwFormString), 0, 0,
		u(2), u(dwTagSubprogram), 0, u(dwAtName), u(dwFormString), 0, 0,
		0,
	}
	table := parseAbbrevTable(abbrev, 0)
	require.Contains(t, table, uint64(1))
	require.Contains(t, table, uint64(2))
	assert.Equal(t, uint64(dwTagCompileUnit), table[1].tag)
	assert.True(t, table[1].hasChildren)
	assert.Equal(t, uint64(dwTagSubprogram), table[2].tag)
	assert.False(t, table[2].hasChildren)
}

func buildDebugInfo(t *testing.T) []byte {
	t.Helper()
	var body []byte
	body = append(body, u(1))
	body = append(body, cstr("main.adb")...)
	body = append(body, u(2))
	body = append(body, cstr("do_work")...)
	body = append(body, 0) // closes compile unit's children

	var cu []byte
	cu = append(cu, 4, 0) // version 4
	cu = append(cu, 0, 0, 0, 0) // abbrev_offset 0
	cu = append(cu, 8) // addr_size
	cu = append(cu, body...)

	length := uint32(len(cu))
	out := []byte{byte(length), byte(length >> 8), byte(length >> 16), byte(length >> 24)}
	return append(out, cu...)
}

func TestExtractViaDebugInfoWalksAbbrevDrivenDIEs(t *testing.T) {
	abbrev := []byte{
		u(1), u(dwTagCompileUnit), 1, u(dwAtName), u(dwFormString), 0, 0,
		u(2), u(dwTagSubprogram), 0, u(dwAtName), u(dwFormString), 0, 0,
		0,
	}
	info := buildDebugInfo(t)

	cus, fns := extractViaDebugInfo(info, abbrev, nil)
	assert.Equal(t, []string{"main.adb"}, cus)
	assert.Equal(t, []string{"do_work"}, fns)
}

func TestExtractViaDebugInfoResolvesStrpAgainstDebugStr(t *testing.T) {
	debugStr := cstr("from_debug_str")
	abbrev := []byte{
		u(1), u(dwTagCompileUnit), 0, u(dwAtName), u(dwFormStrp), 0, 0,
		0,
	}
	// strp offset 0, little-endian uint32.
	body := []byte{u(1), 0, 0, 0, 0}
	cu := append([]byte{4, 0, 0, 0, 0, 0, 8}, body...)
	length := uint32(len(cu))
	info := []byte{byte(length), byte(length >> 8), byte(length >> 16), byte(length >> 24)}
	info = append(info, cu...)

	cus, _ := extractViaDebugInfo(info, abbrev, debugStr)
	assert.Equal(t, []string{"from_debug_str"}, cus)
}

func TestParseAbbrevTableStopsAtTerminator(t *testing.T) {
	abbrev := []byte{
		u(1), u(dwTagCompileUnit), 0, 0, 0,
		0,
		u(99), u(dwTagSubprogram), 0, 0, 0, // never reached: table already terminated above
	}
	table := parseAbbrevTable(abbrev, 0)
	assert.Contains(t, table, uint64(1))
	assert.NotContains(t, table, uint64(99))
}

func buildDebugLineUnit(t *testing.T, files []string) []byte {
	t.Helper()
	var header []byte
	header = append(header, 1)    // minimum_instruction_length
	header = append(header, 1)    // default_is_stmt
	header = append(header, 0xfb) // line_base (-5)
	header = append(header, 14)   // line_range
	header = append(header, 13)   // opcode_base
	header = append(header, make([]byte, 12)...) // standard opcode lengths (opcode_base - 1)
	header = append(header, 0)                   // empty include-directory table

	for _, f := range files {
		header = append(header, cstr(f)...)
		header = append(header, 0, 0, 0) // dir index, mod time, length (all ULEB 0)
	}
	header = append(header, 0) // empty file name terminator

	headerLength := uint32(len(header))
	var unit []byte
	unit = append(unit, 4, 0) // version 4
	unit = append(unit, byte(headerLength), byte(headerLength>>8), byte(headerLength>>16), byte(headerLength>>24))
	unit = append(unit, header...)
	unit = append(unit, 0, 1, 1) // minimal line program: one DW_LNE_end_sequence-ish filler byte is not required for this parser

	unitLength := uint32(len(unit))
	out := []byte{byte(unitLength), byte(unitLength >> 8), byte(unitLength >> 16), byte(unitLength >> 24)}
	return append(out, unit...)
}

func TestParseDebugLineCollectsFileNames(t *testing.T) {
	data := buildDebugLineUnit(t, []string{"main.adb", "widgets.adb"})

	files, ok := parseDebugLine(data)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"main.adb", "widgets.adb"}, files)
}

func TestParseDebugLineSkipsVersion5Units(t *testing.T) {
	unit := []byte{5, 0, 0, 0, 0, 0} // version 5, header_length 0, nothing else
	unitLength := uint32(len(unit))
	data := append([]byte{byte(unitLength), byte(unitLength >> 8), byte(unitLength >> 16), byte(unitLength >> 24)}, unit...)

	files, ok := parseDebugLine(data)
	assert.False(t, ok)
	assert.Empty(t, files)
}
