package rpminfo

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildHeader encodes a minimal [LSB, 25.2.2] header record section
// containing the given string tags, mirroring what readHeaderTags expects.
func buildHeader(t *testing.T, tags map[uint32]string) []byte {
	t.Helper()

	var data bytes.Buffer
	type rec struct {
		Tag, Type, Offset, Count uint32
	}
	var records []rec
	for tag, val := range tags {
		records = append(records, rec{Tag: tag, Type: typeString, Offset: uint32(data.Len()), Count: 1})
		data.Write([]byte(val))
		data.WriteByte(0)
	}

	var buf bytes.Buffer
	buf.Write(headerMagic[:])
	buf.Write([]byte{0, 0, 0, 0}) // reserved
	binary.Write(&buf, binary.BigEndian, uint32(len(records)))
	binary.Write(&buf, binary.BigEndian, uint32(data.Len()))
	for _, r := range records {
		binary.Write(&buf, binary.BigEndian, r)
	}
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func buildRPM(t *testing.T, sigTags, hdrTags map[uint32]string) []byte {
	t.Helper()
	var out bytes.Buffer

	lead := make([]byte, leadSize)
	copy(lead[:4], leadMagic[:])
	out.Write(lead)

	sig := buildHeader(t, sigTags)
	out.Write(sig)
	if pad := len(sig) % 8; pad != 0 {
		out.Write(make([]byte, 8-pad))
	}

	out.Write(buildHeader(t, hdrTags))
	return out.Bytes()
}

func TestReadFromParsesLeadAndHeaderTags(t *testing.T) {
	data := buildRPM(t,
		map[uint32]string{1000: "sigplaceholder"},
		map[uint32]string{
			tagName:    "httpd",
			tagVersion: "2.4.57",
			tagRelease: "1",
			tagLicense: "ASL 2.0",
			tagGroup:   "System Environment/Daemons",
			tagArch:    "x86_64",
		},
	)

	facts, err := ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, "httpd", facts.Name)
	assert.Equal(t, "2.4.57", facts.Version)
	assert.Equal(t, "1", facts.Release)
	assert.Equal(t, "ASL 2.0", facts.License)
	assert.Equal(t, "System Environment/Daemons", facts.Group)
	assert.Equal(t, "x86_64", facts.Arch)
}

func TestReadFromRejectsBadLeadMagic(t *testing.T) {
	data := make([]byte, leadSize)
	_, err := ReadFrom(bytes.NewReader(data))
	assert.ErrorIs(t, err, errNotRPM)
}

func TestReadFromRejectsTruncatedInput(t *testing.T) {
	_, err := ReadFrom(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}
