// Package rootresolver picks a single workspace root for a file by walking
// upward from its directory looking for marker files (.git, or a
// language-specific marker such as go.mod or Cargo.toml).
package rootresolver

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultMarkers is consulted when the caller has no language-specific
// marker list.
var DefaultMarkers = []string{".git", ".hg", ".svn"}

// EnvOverride, when set to an existing directory, short-circuits the walk.
const EnvOverride = "MLSP_WORKSPACE_ROOT"

// Resolve walks from filepath.Dir(file) toward "/" collecting every
// directory that contains one of markers. With a non-empty, language
// specific marker list it returns the innermost match (closest to file);
// with the default list it returns the outermost match, so monorepos
// collapse to their top. If no marker matches anywhere, it falls back to
// the file's containing directory.
func Resolve(file string, markers []string) string {
	if override := os.Getenv(EnvOverride); override != "" {
		if info, err := os.Stat(override); err == nil && info.IsDir() {
			return override
		}
	}

	languageSpecific := len(markers) > 0
	if !languageSpecific {
		markers = DefaultMarkers
	}

	dir := filepath.Dir(file)
	var matches []string
	for {
		if hasMarker(dir, markers) {
			matches = append(matches, dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if len(matches) == 0 {
		return filepath.Dir(file)
	}
	if languageSpecific {
		return matches[0] // innermost: first found walking upward from file
	}
	return matches[len(matches)-1] // outermost: last found walking upward
}

func hasMarker(dir string, markers []string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, m := range markers {
		if strings.HasPrefix(m, "*") {
			suffix := m[1:]
			for _, e := range entries {
				if strings.HasSuffix(e.Name(), suffix) {
					return true
				}
			}
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}
