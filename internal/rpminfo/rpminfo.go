// Package rpminfo reads package facts out of an RPM's lead and header
// sections — the reverse direction of the binary layout src/holo-build/rpm
// writes package files in ([LSB, 25.2.2] header records, 96-byte lead). It
// exists to give the Component Aggregator's package-manager detection
// (spec.md §4.8 step 4/5) a real collaborator instead of a no-op when the
// file being described sits next to (or is itself) an RPM package.
package rpminfo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// leadMagic is the fixed 4-byte RPM lead signature, [LSB, 25.2.1].
var leadMagic = [4]byte{0xed, 0xab, 0xee, 0xdb}

// headerMagic is the fixed 4-byte header-record signature, [LSB, 25.2.2.1].
var headerMagic = [4]byte{0x8e, 0xad, 0xe8, 0x01}

const leadSize = 96

// Tag values this reader understands, [LSB, 25.2.4.1]. Only the tags the
// aggregator cares about are listed; an unrecognized tag is skipped.
const (
	tagName    = 1000
	tagVersion = 1001
	tagRelease = 1002
	tagLicense = 1014
	tagGroup   = 1016
	tagArch    = 1022
)

const (
	typeString     = 6
	typeI18NString = 9
)

// Facts is the subset of RPM header tags the package-manager collaborator
// surfaces as component facts.
type Facts struct {
	Name    string
	Version string
	Release string
	License string
	Group   string
	Arch    string
}

var errNotRPM = errors.New("rpminfo: not an RPM file")

// Read parses path's lead and header section, returning the package facts
// it finds. It does not validate or read the signature section or payload.
func Read(path string) (Facts, error) {
	f, err := os.Open(path)
	if err != nil {
		return Facts{}, err
	}
	defer f.Close()
	return ReadFrom(f)
}

// ReadFrom parses an RPM lead followed by a signature header and a main
// header, both encoded as [LSB, 25.2.2] header records, returning facts
// gathered from the main header.
func ReadFrom(r io.Reader) (Facts, error) {
	lead := make([]byte, leadSize)
	if _, err := io.ReadFull(r, lead); err != nil {
		return Facts{}, err
	}
	if !bytes.Equal(lead[:4], leadMagic[:]) {
		return Facts{}, errNotRPM
	}

	// The signature header is padded to a multiple of 8 bytes; skip it
	// entirely, then read the main header.
	if err := skipHeader(r); err != nil {
		return Facts{}, err
	}
	tags, err := readHeaderTags(r)
	if err != nil {
		return Facts{}, err
	}

	return Facts{
		Name:    tags[tagName],
		Version: tags[tagVersion],
		Release: tags[tagRelease],
		License: tags[tagLicense],
		Group:   tags[tagGroup],
		Arch:    tags[tagArch],
	}, nil
}

type indexRecord struct {
	Tag    uint32
	Type   uint32
	Offset uint32
	Count  uint32
}

// readHeaderTags reads one header record section (magic, record count, data
// size, that many index records, then the data blob) and returns the
// string-typed tags it contains, keyed by tag number.
func readHeaderTags(r io.Reader) (map[uint32]string, error) {
	var hdr struct {
		Magic    [4]byte
		Reserved [4]byte
		NRecords uint32
		DataSize uint32
	}
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, err
	}
	if !bytes.Equal(hdr.Magic[:], headerMagic[:]) {
		return nil, errNotRPM
	}

	records := make([]indexRecord, hdr.NRecords)
	for i := range records {
		if err := binary.Read(r, binary.BigEndian, &records[i]); err != nil {
			return nil, err
		}
	}
	data := make([]byte, hdr.DataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}

	out := make(map[uint32]string)
	for _, rec := range records {
		if rec.Type != typeString && rec.Type != typeI18NString {
			continue
		}
		if rec.Offset >= uint32(len(data)) {
			continue
		}
		end := bytes.IndexByte(data[rec.Offset:], 0)
		if end < 0 {
			continue
		}
		out[rec.Tag] = string(data[rec.Offset : rec.Offset+uint32(end)])
	}
	return out, nil
}

// skipHeader reads and discards one header record section, then consumes
// the padding to the next 8-byte boundary the signature section requires.
func skipHeader(r io.Reader) error {
	var hdr struct {
		Magic    [4]byte
		Reserved [4]byte
		NRecords uint32
		DataSize uint32
	}
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return err
	}
	if !bytes.Equal(hdr.Magic[:], headerMagic[:]) {
		return errNotRPM
	}
	skip := int64(hdr.NRecords)*16 + int64(hdr.DataSize)
	if _, err := io.CopyN(io.Discard, r, skip); err != nil {
		return err
	}
	// pad to 8-byte boundary
	if pad := skip % 8; pad != 0 {
		_, err := io.CopyN(io.Discard, r, 8-pad)
		return err
	}
	return nil
}
