// Package record persists session output as gzip-compressed transcripts.
//
// The recorder listens to lifecycle events: a transcript opens when a session
// whose title matches the configured patterns spawns, every delivered frame
// is appended verbatim, and the file is closed when the session retires. When
// an agent finishes and its shell respawns under the same id, the transcript
// keeps running so the whole lifetime of the id lands in one file.
//
// Transcripts are raw PTY bytes, escape sequences included. Replay with
// zcat or any gzip reader.
package record

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/termgrid/termgrid/internal/lifecycle"
	"github.com/termgrid/termgrid/internal/logging"
	"github.com/termgrid/termgrid/internal/session"
	"github.com/termgrid/termgrid/internal/shared/id"
	"github.com/termgrid/termgrid/internal/shared/paths"
)

// Config configures a Recorder.
type Config struct {
	// Dir receives transcript files. Empty selects the default recordings
	// directory under the user's state root.
	Dir string
	// Patterns gate recording by session title, doublestar syntax. Empty
	// records every session.
	Patterns []string
}

// Recorder writes one gzip transcript per recorded session.
type Recorder struct {
	dir      string
	patterns []string
	log      *logging.Logger

	mu   sync.Mutex
	open map[string]*transcript
}

type transcript struct {
	path string
	file *os.File
	gz   *gzip.Writer
}

var _ lifecycle.Events = (*Recorder)(nil)

// New creates a recorder and ensures the transcript directory exists.
// Invalid patterns are rejected up front.
func New(cfg Config, log *logging.Logger) (*Recorder, error) {
	if log == nil {
		log = logging.NewNop()
	}
	dir := cfg.Dir
	if dir == "" {
		dir = paths.RecordingsDir()
	}
	if err := paths.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create recordings dir %s: %w", dir, err)
	}

	pats := cfg.Patterns
	if len(pats) == 0 {
		pats = []string{"**"}
	}
	for _, p := range pats {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid recording pattern %q", p)
		}
	}

	return &Recorder{
		dir:      dir,
		patterns: pats,
		log:      log,
		open:     make(map[string]*transcript),
	}, nil
}

// Dir returns the transcript directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// Active returns the number of transcripts currently open.
func (r *Recorder) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}

// SessionSpawned opens a transcript when the title matches. Respawns keep
// the transcript already open for the id.
func (r *Recorder) SessionSpawned(info lifecycle.Info, respawned bool) {
	if respawned {
		return
	}
	if !r.matches(info.Title) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.open[info.ID]; ok {
		return
	}

	name := fmt.Sprintf("%s-%s.gz", sanitize(info.ID), id.NewRecordingID())
	path := filepath.Join(r.dir, name)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		r.log.Warn("Cannot open transcript",
			zap.String("session_id", info.ID),
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}

	r.open[info.ID] = &transcript{path: path, file: file, gz: gzip.NewWriter(file)}
	r.log.Info("Recording session",
		zap.String("session_id", info.ID),
		zap.String("path", path),
	)
}

// SessionOutput appends one frame to the session's transcript, if any.
// A write failure abandons the transcript.
func (r *Recorder) SessionOutput(sessID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.open[sessID]
	if !ok {
		return
	}
	if _, err := t.gz.Write(data); err != nil {
		r.log.Warn("Transcript write failed, abandoning",
			zap.String("session_id", sessID),
			zap.String("path", t.path),
			zap.Error(err),
		)
		t.file.Close()
		delete(r.open, sessID)
	}
}

// SessionExited closes the transcript once the id fully retires. Non-final
// exits precede a respawn under the same id, so the file stays open.
func (r *Recorder) SessionExited(sessID string, exit session.ExitInfo, final bool) {
	if final {
		r.close(sessID)
	}
}

// SessionFailed closes the transcript; the id is retired.
func (r *Recorder) SessionFailed(sessID string, err error) {
	r.close(sessID)
}

// CloseAll finishes every open transcript. Used at shutdown.
func (r *Recorder) CloseAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.open))
	for sessID := range r.open {
		ids = append(ids, sessID)
	}
	r.mu.Unlock()

	for _, sessID := range ids {
		r.close(sessID)
	}
}

func (r *Recorder) close(sessID string) {
	r.mu.Lock()
	t, ok := r.open[sessID]
	if ok {
		delete(r.open, sessID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	if err := t.gz.Close(); err != nil {
		r.log.Warn("Transcript finalize failed",
			zap.String("path", t.path),
			zap.Error(err),
		)
	}
	if err := t.file.Close(); err != nil {
		r.log.Warn("Transcript close failed",
			zap.String("path", t.path),
			zap.Error(err),
		)
	}
}

func (r *Recorder) matches(title string) bool {
	for _, p := range r.patterns {
		if ok, _ := doublestar.Match(p, title); ok {
			return true
		}
	}
	return false
}

// sanitize keeps ids filesystem-safe.
func sanitize(s string) string {
	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			return c
		case c == '.' || c == '_' || c == '-':
			return c
		default:
			return '-'
		}
	}, s)
}
