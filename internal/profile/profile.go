// Package profile loads named launch profiles from a TOML file.
//
// A profile bundles the command, working directory, environment, and terminal
// geometry for a session so clients can spawn by name instead of repeating
// the full request. Profiles are declared as [[profile]] tables:
//
//	[[profile]]
//	name = "build"
//	command = "/usr/bin/make"
//	args = ["-j4"]
//	dir = "~/src/project"
//	role = "agent"
//
//	[profile.env]
//	CFLAGS = "-O2"
//
// The store is read once at startup and immutable afterwards.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/termgrid/termgrid/internal/logging"
	"github.com/termgrid/termgrid/internal/shared/paths"
)

// Profile describes a named session launch configuration.
type Profile struct {
	Name    string            `toml:"name" json:"name"`
	Title   string            `toml:"title" json:"title,omitempty"`
	Role    string            `toml:"role" json:"role,omitempty"`
	Command string            `toml:"command" json:"command"`
	Args    []string          `toml:"args" json:"args,omitempty"`
	Dir     string            `toml:"dir" json:"dir,omitempty"`
	Env     map[string]string `toml:"env" json:"env,omitempty"`
	Cols    uint16            `toml:"cols" json:"cols,omitempty"`
	Rows    uint16            `toml:"rows" json:"rows,omitempty"`
}

type profileFile struct {
	Profiles []Profile `toml:"profile"`
}

// Store holds the loaded profiles, keyed by name.
type Store struct {
	byName map[string]Profile
	order  []string
}

// Load reads profiles from path. An empty path means the default location
// under the user's state directory. A missing file yields an empty store
// rather than an error; a file that exists but cannot be parsed fails.
func Load(path string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.NewNop()
	}
	if path == "" {
		path = paths.ProfilesFile()
	}

	st := &Store{byName: make(map[string]Profile)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("No profiles file", zap.String("path", path))
			return st, nil
		}
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}

	var parsed profileFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}

	for _, p := range parsed.Profiles {
		if p.Name == "" {
			log.Warn("Skipping profile without a name", zap.String("path", path))
			continue
		}
		p.Role = strings.ToLower(p.Role)
		p.Dir = paths.ExpandHome(p.Dir)
		if _, dup := st.byName[p.Name]; dup {
			log.Warn("Duplicate profile, keeping the later one", zap.String("name", p.Name))
		} else {
			st.order = append(st.order, p.Name)
		}
		st.byName[p.Name] = p
	}

	log.Info("Loaded launch profiles", zap.String("path", path), zap.Int("count", len(st.byName)))
	return st, nil
}

// Empty returns a store with no profiles.
func Empty() *Store {
	return &Store{byName: make(map[string]Profile)}
}

// Get returns the profile with the given name.
func (s *Store) Get(name string) (Profile, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// List returns all profiles in file order.
func (s *Store) List() []Profile {
	out := make([]Profile, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// Names returns the profile names in file order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of profiles.
func (s *Store) Len() int {
	return len(s.byName)
}
