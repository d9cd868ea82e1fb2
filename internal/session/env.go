package session

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/termgrid/termgrid/internal/logging"
)

// DefaultProbeTimeout bounds the login-environment probe. On timeout the
// prober falls back rather than stalling the first spawn.
const DefaultProbeTimeout = 5 * time.Second

// commonInstallDirs are appended to PATH when the login probe fails, so
// user-installed tools stay resolvable. Entries starting with ~ are expanded
// against the user's home.
var commonInstallDirs = []string{
	"/usr/local/bin",
	"/opt/homebrew/bin",
	"~/.local/bin",
	"~/bin",
	"~/.cargo/bin",
	"/usr/local/go/bin",
}

// runnerFunc executes a command and returns its combined stdout. Injected in
// tests.
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// EnvProber resolves the user's full login environment so spawned commands
// see PATH entries added by shell profiles. The probe runs at most once per
// process; the result is cached for the process's lifetime.
type EnvProber struct {
	shell   string
	timeout time.Duration
	log     *logging.Logger
	runner  runnerFunc

	once sync.Once
	env  []string
}

// NewEnvProber creates a prober that interrogates the given shell. A zero
// timeout selects DefaultProbeTimeout.
func NewEnvProber(shell string, timeout time.Duration, log *logging.Logger) *EnvProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if log == nil {
		log = logging.NewDefault()
	}
	return &EnvProber{
		shell:   shell,
		timeout: timeout,
		log:     log,
		runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// Environ returns the cached login environment, probing on the first call.
// Probe failure degrades to the ambient environment with augmented PATH;
// it is never surfaced to the caller.
func (p *EnvProber) Environ() []string {
	p.once.Do(func() {
		p.env = p.probe()
	})
	return p.env
}

func (p *EnvProber) probe() []string {
	if runtime.GOOS == "windows" || p.shell == "" {
		return p.fallback()
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	out, err := p.runner(ctx, p.shell, "-l", "-c", "env")
	if err != nil {
		p.log.Warn("login environment probe failed, using fallback",
			zap.String("shell", p.shell),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return p.fallback()
	}

	env := parseEnvOutput(string(out))
	if len(env) == 0 {
		p.log.Warn("login environment probe returned nothing, using fallback",
			zap.String("shell", p.shell),
		)
		return p.fallback()
	}

	p.log.Info("login environment resolved",
		zap.String("shell", p.shell),
		zap.Int("vars", len(env)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return env
}

// fallback returns the ambient environment with PATH augmented by common
// install directories, deduplicated and order-preserving.
func (p *EnvProber) fallback() []string {
	env := os.Environ()
	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			env[i] = "PATH=" + augmentPath(strings.TrimPrefix(kv, "PATH="))
			return env
		}
	}
	return append(env, "PATH="+augmentPath(""))
}

// parseEnvOutput extracts KEY=VALUE pairs from probe output. Continuation
// lines of multi-line values carry no '=' and are skipped.
func parseEnvOutput(out string) []string {
	var env []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, _, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			continue
		}
		env = append(env, line)
	}
	return env
}

// augmentPath appends commonInstallDirs to a PATH value, skipping entries
// already present.
func augmentPath(path string) string {
	sep := string(os.PathListSeparator)
	seen := make(map[string]bool)
	var parts []string
	for _, dir := range strings.Split(path, sep) {
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		parts = append(parts, dir)
	}

	home, _ := os.UserHomeDir()
	for _, dir := range commonInstallDirs {
		if strings.HasPrefix(dir, "~") {
			if home == "" {
				continue
			}
			dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
		if seen[dir] {
			continue
		}
		seen[dir] = true
		parts = append(parts, dir)
	}
	return strings.Join(parts, sep)
}

// mergeEnv overlays key/value overrides onto a base environment, replacing
// existing keys and appending new ones.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}

	remaining := make(map[string]string, len(overrides))
	for k, v := range overrides {
		remaining[k] = v
	}

	merged := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, ok := strings.Cut(kv, "=")
		if ok {
			if v, hit := remaining[key]; hit {
				merged = append(merged, key+"="+v)
				delete(remaining, key)
				continue
			}
		}
		merged = append(merged, kv)
	}
	for k, v := range remaining {
		merged = append(merged, k+"="+v)
	}
	return merged
}
