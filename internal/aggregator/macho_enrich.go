package aggregator

import (
	"os"
	"strings"

	"howett.net/plist"

	"github.com/heimdall-sbom/extractor/internal/component"
	"github.com/heimdall-sbom/extractor/internal/extractors/macho"
)

// bundleInfo mirrors the three Info.plist keys spec.md §4.8 step 6 reads.
type bundleInfo struct {
	CFBundleShortVersionString string `plist:"CFBundleShortVersionString"`
	CFBundleName               string `plist:"CFBundleName"`
	CFBundleDisplayName        string `plist:"CFBundleDisplayName"`
}

// enrichMachO is pipeline step 6: populates platform_info, architectures,
// build_config, and — when the path sits inside a macOS .app bundle —
// overrides version/name from the bundle's Info.plist.
func (a *Aggregator) enrichMachO(c *component.Info) {
	e := &macho.Extractor{}

	if archs, err := e.Architectures(c.FilePath); err == nil {
		c.Architectures = archs
		if len(archs) > 0 {
			c.PlatformInfo.Architecture = archs[0].Name
		}
	}
	c.PlatformInfo.Platform = "macOS"

	if uuid, ok := e.UUID(c.FilePath); ok {
		c.SetProperty("macho:uuid", uuid)
	}

	if minOS, sdk, ok := e.BuildVersion(c.FilePath); ok {
		c.BuildConfig.MinOSVersion = minOS
		c.PlatformInfo.MinVersion = minOS
		c.PlatformInfo.SDKVersion = sdk
	}

	if bi, ok := readBundleInfo(c.FilePath); ok {
		// Info.plist wins over build-config fallbacks (spec.md §4.8 step 6).
		if bi.CFBundleShortVersionString != "" {
			c.Version = bi.CFBundleShortVersionString
		}
		name := bi.CFBundleDisplayName
		if name == "" {
			name = bi.CFBundleName
		}
		if name != "" {
			c.Name = name
		}
		return
	}

	// minOSVersion is a last resort only, per spec.md §4.8 step 6.
	if c.BuildConfig.MinOSVersion != "" && c.Version == "" {
		c.Version = c.BuildConfig.MinOSVersion
	}
}

// readBundleInfo scrapes Info.plist when path matches the
// ".app/Contents/MacOS/<executable>" layout spec.md §4.8 step 6 names.
func readBundleInfo(path string) (bundleInfo, bool) {
	idx := strings.Index(path, ".app/Contents/MacOS/")
	if idx < 0 {
		return bundleInfo{}, false
	}
	plistPath := path[:idx] + ".app/Contents/Info.plist"

	data, err := os.ReadFile(plistPath)
	if err != nil {
		return bundleInfo{}, false
	}

	var bi bundleInfo
	if err := plist.Unmarshal(data, &bi); err != nil {
		return bundleInfo{}, false
	}
	return bi, true
}
