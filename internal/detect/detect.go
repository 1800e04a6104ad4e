// Package detect defines the external-collaborator interfaces spec.md §6
// names (package-manager, license, and version detection live outside the
// binary-format extraction engine) plus a noop default so the aggregator
// always has something to call.
package detect

import "github.com/heimdall-sbom/extractor/internal/component"

// PackageManagerDetector identifies which package manager owns a file,
// given its path, for the aggregator's "path-based package-manager
// detection" step (spec.md §4.8 step 4).
type PackageManagerDetector interface {
	DetectFromPath(path string) (manager string, confidence float64, ok bool)
	DetectFromManifest(dir string) (manager string, facts map[string]string, confidence float64, ok bool)
}

// LicenseDetector resolves a license identifier for a component, given its
// path and any manifest facts already gathered.
type LicenseDetector interface {
	DetectLicense(path string, facts map[string]string) (spdxID string, confidence float64, ok bool)
}

// VersionDetector resolves a semantic or package version for a component
// when the binary's own version string is absent or suppressed (e.g. the
// ELF format-descriptor-as-version case spec.md §4.8 step 2 calls out).
type VersionDetector interface {
	DetectVersion(path string, facts map[string]string) (version string, confidence float64, ok bool)
}

// Noop implements all three interfaces and always reports "not found",
// the default wired when no external collaborator is registered — the
// core never assumes one exists (spec.md §6 "external collaborators").
type Noop struct{}

var (
	_ PackageManagerDetector = Noop{}
	_ LicenseDetector        = Noop{}
	_ VersionDetector        = Noop{}
)

func (Noop) DetectFromPath(string) (string, float64, bool) { return "", 0, false }

func (Noop) DetectFromManifest(string) (string, map[string]string, float64, bool) {
	return "", nil, 0, false
}

func (Noop) DetectLicense(string, map[string]string) (string, float64, bool) { return "", 0, false }

func (Noop) DetectVersion(string, map[string]string) (string, float64, bool) { return "", 0, false }

// Collaborators bundles the three external interfaces the aggregator
// consults, so heimdall.go can wire one struct instead of three
// constructor arguments.
type Collaborators struct {
	PackageManager PackageManagerDetector
	License        LicenseDetector
	Version        VersionDetector
}

// DefaultCollaborators wires RPMDetector and AdaDetector into the
// package-manager slot — the concrete formats the extraction engine itself
// understands well enough to detect unassisted — RPMDetector alone into the
// license slot, and the noop implementation everywhere else, since
// detecting other package managers (dpkg, Conan, vcpkg, Spack...) requires
// parsing manifests this core has no reason to understand on its own
// (spec.md §6 "external collaborators").
func DefaultCollaborators() Collaborators {
	rpm := RPMDetector{}
	n := Noop{}
	pm := multiPackageManagerDetector{AdaDetector{}, rpm}
	return Collaborators{PackageManager: pm, License: rpm, Version: n}
}

// ApplyFacts copies manifest-derived facts into a component's property
// bag as evidence, used by the aggregator's manifest-based detection step
// (spec.md §4.8 step 5).
func ApplyFacts(c *component.Info, prefix string, facts map[string]string) {
	for k, v := range facts {
		c.SetProperty(prefix+":"+k, v)
	}
}
