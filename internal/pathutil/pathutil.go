// Package pathutil implements the extraction engine's Path Utilities: pure
// functions over string paths used by every component that needs to reason
// about a file's existence, type, or name without importing os/path
// everywhere.
package pathutil

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Exists reports whether path refers to anything on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDirectory reports whether path is a directory.
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsRegularFile reports whether path is a regular file.
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsExecutable reports whether path is executable. On POSIX this checks the
// owner-execute bit; on Windows it matches a fixed extension table.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if runtime.GOOS == "windows" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".exe", ".bat", ".cmd", ".com":
			return true
		default:
			return false
		}
	}
	return info.Mode()&0o111 != 0
}

// Size returns the file size in bytes, or 0 if it cannot be determined.
func Size(path string) uint64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return uint64(info.Size())
}

// ModTime returns the file's modification time, or the zero time if it
// cannot be determined.
func ModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Extension returns the file extension including the leading dot, lower
// cased, e.g. ".so". Returns "" if there is none.
func Extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Stem returns the filename without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

// versionSuffix matches a trailing "-1", "-1.2", "-1.2.3" version suffix.
var versionSuffix = regexp.MustCompile(`-\d+(\.\d+)*$`)

// buildSuffixes are the build-configuration suffixes stripped from a
// derived component name. ComponentName applies them repeatedly until none
// matches, so "_debug_static" strips both rather than leaving a dangling
// "_debug".
var buildSuffixes = []string{"_debug", "_release", "_static", "_shared"}

// ComponentName derives a component's name from its filename: the "lib"
// prefix, a trailing version suffix ("-1.2.3"), and any build-configuration
// suffix (_debug/_release/_static/_shared) are stripped, per spec.md §3.
func ComponentName(path string) string {
	name := Stem(path)
	name = strings.TrimPrefix(name, "lib")
	name = versionSuffix.ReplaceAllString(name, "")
	for {
		stripped := false
		for _, suffix := range buildSuffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSuffix(name, suffix)
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}
	return name
}

// Filename returns the last path component.
func Filename(path string) string {
	return filepath.Base(path)
}

// Parent returns the directory containing path.
func Parent(path string) string {
	return filepath.Dir(path)
}

// Absolute resolves path to an absolute path, leaving it unchanged if
// resolution fails.
func Absolute(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Normalize cleans a path (resolves "." and ".." segments, collapses
// repeated separators) without making it absolute.
func Normalize(path string) string {
	return filepath.Clean(path)
}

// Join joins path components using the platform separator.
func Join(parts ...string) string {
	return filepath.Join(parts...)
}

// Join2 is the binary form of Join, kept for call sites that only ever
// combine a directory and a single child.
func Join2(dir, child string) string {
	return filepath.Join(dir, child)
}

// Split breaks path into its components.
func Split(path string) []string {
	path = filepath.Clean(path)
	var parts []string
	for {
		dir, file := filepath.Split(path)
		dir = strings.TrimSuffix(dir, string(filepath.Separator))
		if file != "" {
			parts = append([]string{file}, parts...)
		}
		if dir == "" || dir == path {
			if dir != "" {
				parts = append([]string{dir}, parts...)
			}
			break
		}
		path = dir
	}
	return parts
}

// Create creates an empty regular file at path, including parent
// directories.
func Create(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// Remove deletes the file or (empty) directory at path.
func Remove(path string) error {
	return os.Remove(path)
}

// RemoveAll recursively deletes path.
func RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Copy copies the regular file at src to dst, preserving mode bits.
func Copy(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode())
}

// Move renames src to dst.
func Move(src, dst string) error {
	return os.Rename(src, dst)
}

// ListDir enumerates the directory at path. When recursive is true, it
// walks the whole subtree; otherwise it lists only the immediate children.
func ListDir(path string, recursive bool) ([]string, error) {
	if !recursive {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			out = append(out, filepath.Join(path, e.Name()))
		}
		return out, nil
	}

	var out []string
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != path {
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

// MatchExtension reports whether path's extension matches any of the given
// glob-style patterns (e.g. "*.so", "*.dylib"), using doublestar so a
// pattern may also express directory wildcards ("**/*.a").
func MatchExtension(path string, patterns ...string) bool {
	base := filepath.Base(path)
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, base); err == nil && ok {
			return true
		}
	}
	return false
}
