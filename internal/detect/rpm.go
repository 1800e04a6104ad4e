package detect

import (
	"path/filepath"
	"strings"

	"github.com/heimdall-sbom/extractor/internal/rpminfo"
)

// RPMDetector is a PackageManagerDetector (and best-effort LicenseDetector)
// backed by rpminfo: it recognizes RPM packages by extension and, for
// manifest detection, the first *.rpm file sitting alongside the component
// being described.
type RPMDetector struct{}

var (
	_ PackageManagerDetector = RPMDetector{}
	_ LicenseDetector        = RPMDetector{}
)

// DetectFromPath reports "rpm" with full confidence when path itself is an
// RPM package that parses successfully.
func (RPMDetector) DetectFromPath(path string) (string, float64, bool) {
	if !strings.EqualFold(filepath.Ext(path), ".rpm") {
		return "", 0, false
	}
	if _, err := rpminfo.Read(path); err != nil {
		return "", 0, false
	}
	return "rpm", 1.0, true
}

// DetectFromManifest looks for an RPM package file in dir and, if found,
// surfaces its header tags as facts.
func (RPMDetector) DetectFromManifest(dir string) (string, map[string]string, float64, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.rpm"))
	if err != nil || len(matches) == 0 {
		return "", nil, 0, false
	}

	facts, err := rpminfo.Read(matches[0])
	if err != nil {
		return "", nil, 0, false
	}

	out := map[string]string{
		"name":    facts.Name,
		"version": facts.Version,
		"release": facts.Release,
		"license": facts.License,
		"group":   facts.Group,
		"arch":    facts.Arch,
	}
	return "rpm", out, 0.9, true
}

// DetectLicense reports the RPM License tag already gathered into facts
// under the "manifest:license" key by ApplyFacts, at a moderate confidence
// since RPM license strings are not guaranteed to be valid SPDX identifiers.
func (RPMDetector) DetectLicense(_ string, facts map[string]string) (string, float64, bool) {
	license, ok := facts["manifest:license"]
	if !ok || license == "" || strings.EqualFold(license, "none") {
		return "", 0, false
	}
	return license, 0.5, true
}
