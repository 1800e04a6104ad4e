package detect

import (
	"path/filepath"
	"strings"
)

// AdaDetector is a PackageManagerDetector for GNAT Ada Library Information
// files: spec.md §E5 expects package_manager == "GNAT" for a bare .ali
// component, with no manifest to parse (a GNAT build directory carries no
// separate package manifest the way an RPM or deb tree does).
type AdaDetector struct{}

var _ PackageManagerDetector = AdaDetector{}

// DetectFromPath reports "GNAT" whenever path has the .ali extension.
func (AdaDetector) DetectFromPath(path string) (string, float64, bool) {
	if !strings.EqualFold(filepath.Ext(path), ".ali") {
		return "", 0, false
	}
	return "GNAT", 1.0, true
}

// DetectFromManifest never matches: GNAT builds have no separate manifest
// file distinct from the .ali files themselves.
func (AdaDetector) DetectFromManifest(string) (string, map[string]string, float64, bool) {
	return "", nil, 0, false
}

// multiPackageManagerDetector tries each detector in order and returns the
// first match, letting DefaultCollaborators wire more than one concrete
// PackageManagerDetector into the aggregator's single collaborator slot.
type multiPackageManagerDetector []PackageManagerDetector

var _ PackageManagerDetector = multiPackageManagerDetector(nil)

func (m multiPackageManagerDetector) DetectFromPath(path string) (string, float64, bool) {
	for _, d := range m {
		if manager, confidence, ok := d.DetectFromPath(path); ok {
			return manager, confidence, ok
		}
	}
	return "", 0, false
}

func (m multiPackageManagerDetector) DetectFromManifest(dir string) (string, map[string]string, float64, bool) {
	for _, d := range m {
		if manager, facts, confidence, ok := d.DetectFromManifest(dir); ok {
			return manager, facts, confidence, ok
		}
	}
	return "", nil, 0, false
}
