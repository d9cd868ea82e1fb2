// Package paths provides standardized filesystem paths for consistent access across the server.
//
// All on-disk state (launch profiles, session recordings) lives under a single
// root directory so components never invent their own locations.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// DirName is the root directory name, placed under the user's home.
const DirName = ".termgrid"

// Root returns the state root directory. Falls back to the system temp
// directory when the home directory cannot be determined.
func Root() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "termgrid")
	}
	return filepath.Join(home, DirName)
}

// ProfilesFile returns the default launch profiles file.
func ProfilesFile() string {
	return filepath.Join(Root(), "profiles.toml")
}

// RecordingsDir returns the default directory for session transcripts.
func RecordingsDir() string {
	return filepath.Join(Root(), "recordings")
}

// ExpandHome resolves a leading "~" or "~/" to the user's home directory.
// Paths without the prefix are returned unchanged, as is "~" itself when
// the home directory cannot be determined.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
