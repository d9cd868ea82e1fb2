package profile

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termgrid/termgrid/internal/shared/paths"
)

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesProfiles(t *testing.T) {
	path := writeProfiles(t, `
[[profile]]
name = "build"
title = "make"
command = "/usr/bin/make"
args = ["-j4", "all"]
dir = "/src/project"
role = "AGENT"
cols = 120
rows = 40

[profile.env]
CFLAGS = "-O2"

[[profile]]
name = "repl"
command = "/usr/bin/python3"
`)

	st, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())

	p, ok := st.Get("build")
	require.True(t, ok)
	assert.Equal(t, "make", p.Title)
	assert.Equal(t, "/usr/bin/make", p.Command)
	assert.Equal(t, []string{"-j4", "all"}, p.Args)
	assert.Equal(t, "/src/project", p.Dir)
	assert.Equal(t, "agent", p.Role)
	assert.Equal(t, uint16(120), p.Cols)
	assert.Equal(t, uint16(40), p.Rows)
	assert.Equal(t, map[string]string{"CFLAGS": "-O2"}, p.Env)

	p, ok = st.Get("repl")
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/python3", p.Command)
	assert.Empty(t, p.Args)
}

func TestLoadMissingFileYieldsEmptyStore(t *testing.T) {
	st, err := Load(filepath.Join(t.TempDir(), "nope.toml"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, st.List())
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := writeProfiles(t, `[[profile]
name = broken`)

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse profiles")
}

func TestLoadSkipsNamelessProfiles(t *testing.T) {
	path := writeProfiles(t, `
[[profile]]
command = "/bin/anon"

[[profile]]
name = "named"
command = "/bin/named"
`)

	st, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Len())
	assert.Equal(t, []string{"named"}, st.Names())
}

func TestLoadDuplicateNameKeepsLater(t *testing.T) {
	path := writeProfiles(t, `
[[profile]]
name = "dup"
command = "/bin/first"

[[profile]]
name = "dup"
command = "/bin/second"
`)

	st, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Len())

	p, ok := st.Get("dup")
	require.True(t, ok)
	assert.Equal(t, "/bin/second", p.Command)
}

func TestLoadExpandsHomeInDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("HOME override is not honored on windows")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeProfiles(t, `
[[profile]]
name = "home"
command = "/bin/sh"
dir = "~/work"
`)

	st, err := Load(path, nil)
	require.NoError(t, err)

	p, ok := st.Get("home")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(home, "work"), p.Dir)
}

func TestLoadDefaultPathWhenEmpty(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("HOME override is not honored on windows")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, paths.EnsureDir(paths.Root()))
	require.NoError(t, os.WriteFile(paths.ProfilesFile(), []byte(`
[[profile]]
name = "default-loc"
command = "/bin/sh"
`), 0o644))

	st, err := Load("", nil)
	require.NoError(t, err)

	_, ok := st.Get("default-loc")
	assert.True(t, ok)
}

func TestListPreservesFileOrder(t *testing.T) {
	path := writeProfiles(t, `
[[profile]]
name = "zeta"
command = "/bin/z"

[[profile]]
name = "alpha"
command = "/bin/a"
`)

	st, err := Load(path, nil)
	require.NoError(t, err)

	list := st.List()
	require.Len(t, list, 2)
	assert.Equal(t, "zeta", list[0].Name)
	assert.Equal(t, "alpha", list[1].Name)
	assert.Equal(t, []string{"zeta", "alpha"}, st.Names())
}

func TestGetUnknownProfile(t *testing.T) {
	_, ok := Empty().Get("missing")
	assert.False(t, ok)
}
