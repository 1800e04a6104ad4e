package detect

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	leadMagic   = [4]byte{0xed, 0xab, 0xee, 0xdb}
	headerMagic = [4]byte{0x8e, 0xad, 0xe8, 0x01}
)

const (
	tagName    = 1000
	tagLicense = 1014
	typeString = 6
)

func buildHeader(t *testing.T, tags map[uint32]string) []byte {
	t.Helper()
	var data bytes.Buffer
	type rec struct{ Tag, Type, Offset, Count uint32 }
	var records []rec
	for tag, val := range tags {
		records = append(records, rec{Tag: tag, Type: typeString, Offset: uint32(data.Len()), Count: 1})
		data.Write([]byte(val))
		data.WriteByte(0)
	}
	var buf bytes.Buffer
	buf.Write(headerMagic[:])
	buf.Write([]byte{0, 0, 0, 0})
	binary.Write(&buf, binary.BigEndian, uint32(len(records)))
	binary.Write(&buf, binary.BigEndian, uint32(data.Len()))
	for _, r := range records {
		binary.Write(&buf, binary.BigEndian, r)
	}
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func writeRPM(t *testing.T, path string, hdrTags map[uint32]string) {
	t.Helper()
	var out bytes.Buffer
	out.Write(make([]byte, 96))
	copy(out.Bytes()[:4], leadMagic[:])

	sig := buildHeader(t, map[uint32]string{})
	out.Write(sig)
	if pad := len(sig) % 8; pad != 0 {
		out.Write(make([]byte, 8-pad))
	}
	out.Write(buildHeader(t, hdrTags))

	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
}

func TestRPMDetectorDetectFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pkg.rpm")
	writeRPM(t, path, map[uint32]string{tagName: "httpd"})

	manager, confidence, ok := RPMDetector{}.DetectFromPath(path)
	require.True(t, ok)
	assert.Equal(t, "rpm", manager)
	assert.Equal(t, 1.0, confidence)
}

func TestRPMDetectorDetectFromPathRejectsNonRPMExtension(t *testing.T) {
	_, _, ok := RPMDetector{}.DetectFromPath("/bin/ls")
	assert.False(t, ok)
}

func TestRPMDetectorDetectFromManifest(t *testing.T) {
	dir := t.TempDir()
	writeRPM(t, filepath.Join(dir, "pkg.rpm"), map[uint32]string{
		tagName:    "httpd",
		tagLicense: "ASL 2.0",
	})

	manager, facts, confidence, ok := RPMDetector{}.DetectFromManifest(dir)
	require.True(t, ok)
	assert.Equal(t, "rpm", manager)
	assert.Equal(t, "httpd", facts["name"])
	assert.Equal(t, "ASL 2.0", facts["license"])
	assert.Equal(t, 0.9, confidence)
}

func TestRPMDetectorDetectLicenseReadsFactsPrefix(t *testing.T) {
	spdx, confidence, ok := RPMDetector{}.DetectLicense("", map[string]string{"manifest:license": "MIT"})
	require.True(t, ok)
	assert.Equal(t, "MIT", spdx)
	assert.Greater(t, confidence, 0.0)

	_, _, ok = RPMDetector{}.DetectLicense("", map[string]string{"manifest:license": "none"})
	assert.False(t, ok)
}

func TestNoopAlwaysReportsNotFound(t *testing.T) {
	n := Noop{}
	_, _, ok := n.DetectFromPath("/anything")
	assert.False(t, ok)
	_, _, _, ok = n.DetectFromManifest("/anything")
	assert.False(t, ok)
	_, _, ok = n.DetectLicense("/anything", nil)
	assert.False(t, ok)
	_, _, ok = n.DetectVersion("/anything", nil)
	assert.False(t, ok)
}
