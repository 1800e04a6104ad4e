package aggregator

import (
	"encoding/hex"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/heimdall-sbom/extractor/internal/component"
	"github.com/heimdall-sbom/extractor/internal/extractors/elf"
)

// enrichELF is the ELF half of Platform Enrichment (spec.md §4.9): scan for
// a real .note.gnu.build-id, falling back to a synthetic content-hash
// identifier when the binary carries none (common for statically linked or
// stripped-at-link-time binaries), so downstream SBOM consumers always get
// a stable component identifier to key on.
func (a *Aggregator) enrichELF(c *component.Info) {
	e := &elf.Extractor{}
	if !e.CanHandle(c.FilePath) {
		return
	}

	if buildID, ok := e.BuildID(c.FilePath); ok {
		c.SetProperty("elf:build_id", buildID)
		return
	}

	if synthetic, ok := syntheticBuildID(c.FilePath); ok {
		c.SetProperty("elf:build_id", synthetic)
		c.SetProperty("elf:build_id_synthetic", "true")
	}
}

// syntheticBuildID hashes the file's contents with xxHash64, giving a
// fast, collision-resistant stand-in identifier when no real build-id note
// is present.
func syntheticBuildID(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	sum := xxhash.Sum64(data)
	return hex.EncodeToString([]byte{
		byte(sum >> 56), byte(sum >> 48), byte(sum >> 40), byte(sum >> 32),
		byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum),
	}), true
}
