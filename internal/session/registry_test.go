package session

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *fakeFactory) {
	f := &fakeFactory{}
	return NewRegistry(RegistryConfig{Factory: f}, nil), f
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

func TestSpawnDeliversOutput(t *testing.T) {
	reg, f := newTestRegistry()
	out := make(chan string, 16)

	res, err := reg.Spawn(SpawnSpec{
		ID:      "term_1",
		Command: "/bin/fake",
		OnData:  func(id string, chunk []byte) { out <- string(chunk) },
	})
	require.NoError(t, err)
	assert.Equal(t, "term_1", res.ID)
	assert.NotZero(t, res.PID)
	assert.Equal(t, 1, reg.Count())

	f.last().emit("hello")
	assert.Equal(t, "hello", recv(t, out))
}

func TestSpawnAppliesDefaults(t *testing.T) {
	reg, f := newTestRegistry()

	_, err := reg.Spawn(SpawnSpec{ID: "term_1", Command: "/bin/fake"})
	require.NoError(t, err)

	call := f.call(0)
	assert.Equal(t, uint16(80), call.cols)
	assert.Equal(t, uint16(24), call.rows)
}

func TestSpawnRejectsDuplicateID(t *testing.T) {
	reg, f := newTestRegistry()

	_, err := reg.Spawn(SpawnSpec{ID: "term_1", Command: "/bin/fake"})
	require.NoError(t, err)

	_, err = reg.Spawn(SpawnSpec{ID: "term_1", Command: "/bin/other"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExists))
	assert.Equal(t, 1, reg.Count())

	// The losing handle must not leak a process.
	assert.True(t, f.last().wasKilled())
}

func TestSpawnFailureRegistersNothing(t *testing.T) {
	reg, f := newTestRegistry()
	f.err = errors.New("no ptmx")

	_, err := reg.Spawn(SpawnSpec{ID: "term_1", Command: "/bin/fake"})
	require.Error(t, err)
	assert.Equal(t, 0, reg.Count())
}

func TestSpawnFallsBackToHomeDir(t *testing.T) {
	reg, f := newTestRegistry()

	res, err := reg.Spawn(SpawnSpec{
		ID:      "term_1",
		Command: "/bin/fake",
		Dir:     "/definitely/not/a/real/dir",
	})
	require.NoError(t, err)

	home, herr := os.UserHomeDir()
	require.NoError(t, herr)
	assert.Equal(t, home, res.Dir)
	assert.Equal(t, home, f.call(0).dir)
}

func TestWriteForwardsInput(t *testing.T) {
	reg, f := newTestRegistry()

	_, err := reg.Spawn(SpawnSpec{ID: "term_1", Command: "/bin/fake"})
	require.NoError(t, err)

	require.NoError(t, reg.Write("term_1", []byte("ls -la\n")))
	assert.Equal(t, "ls -la\n", f.last().inputString())
}

func TestWriteUnknownSessionNotFound(t *testing.T) {
	reg, _ := newTestRegistry()

	err := reg.Write("ghost", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResizePropagates(t *testing.T) {
	reg, f := newTestRegistry()

	_, err := reg.Spawn(SpawnSpec{ID: "term_1", Command: "/bin/fake"})
	require.NoError(t, err)

	require.NoError(t, reg.Resize("term_1", 120, 40))
	require.Len(t, f.last().resizeLog(), 1)
	assert.Equal(t, [2]uint16{120, 40}, f.last().resizeLog()[0])

	infos := reg.List()
	require.Len(t, infos, 1)
	assert.Equal(t, uint16(120), infos[0].Cols)
	assert.Equal(t, uint16(40), infos[0].Rows)
}

func TestResizeIgnoresZeroAndUnknown(t *testing.T) {
	reg, f := newTestRegistry()

	_, err := reg.Spawn(SpawnSpec{ID: "term_1", Command: "/bin/fake"})
	require.NoError(t, err)

	assert.NoError(t, reg.Resize("term_1", 0, 40))
	assert.NoError(t, reg.Resize("ghost", 80, 24))
	assert.Empty(t, f.last().resizeLog())
}

func TestPauseResumeUnknownIsNoop(t *testing.T) {
	reg, _ := newTestRegistry()

	assert.NoError(t, reg.Pause("ghost"))
	assert.NoError(t, reg.Resume("ghost"))
	assert.NoError(t, reg.Close("ghost"))
}

// A read already in flight when the pause lands may still deliver; after
// that the reader must park until resume, and no emitted byte may be lost
// or reordered.
func TestPauseParksReaderUntilResume(t *testing.T) {
	reg, f := newTestRegistry()
	out := make(chan string, 16)

	_, err := reg.Spawn(SpawnSpec{
		ID:      "term_1",
		Command: "/bin/fake",
		OnData:  func(id string, chunk []byte) { out <- string(chunk) },
	})
	require.NoError(t, err)

	h := f.last()
	h.emit("a")
	require.Equal(t, "a", recv(t, out))

	require.NoError(t, reg.Pause("term_1"))
	h.emit("b")
	h.emit("c")

	var early strings.Builder
	settle := time.After(150 * time.Millisecond)
drain:
	for {
		select {
		case chunk := <-out:
			early.WriteString(chunk)
		case <-settle:
			break drain
		}
	}
	require.True(t, strings.HasPrefix("bc", early.String()),
		"more than one in-flight read delivered after pause: %q", early.String())

	h.emit("d")
	select {
	case chunk := <-out:
		t.Fatalf("reader advanced while paused: %q", chunk)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, reg.Resume("term_1"))
	got := early.String()
	for got != "bcd" {
		got += recv(t, out)
	}
	assert.Equal(t, "bcd", got)
}

func TestExitObservedAfterFinalOutput(t *testing.T) {
	reg, f := newTestRegistry()
	events := make(chan string, 16)

	_, err := reg.Spawn(SpawnSpec{
		ID:      "term_1",
		Command: "/bin/fake",
		OnData:  func(id string, chunk []byte) { events <- "data:" + string(chunk) },
		OnExit:  func(id string, exit ExitInfo) { events <- "exit" },
	})
	require.NoError(t, err)

	h := f.last()
	h.emit("tail")
	h.exit(ExitInfo{Code: 0})

	assert.Equal(t, "data:tail", recv(t, events))
	assert.Equal(t, "exit", recv(t, events))
}

func TestCloseIsIdempotent(t *testing.T) {
	reg, f := newTestRegistry()
	exits := make(chan ExitInfo, 4)

	_, err := reg.Spawn(SpawnSpec{
		ID:      "term_1",
		Command: "/bin/fake",
		OnExit:  func(id string, exit ExitInfo) { exits <- exit },
	})
	require.NoError(t, err)

	require.NoError(t, reg.Close("term_1"))
	require.NoError(t, reg.Close("term_1"))

	exit := recv(t, exits)
	assert.Equal(t, -1, exit.Code)
	assert.True(t, f.last().wasKilled())

	select {
	case <-exits:
		t.Fatal("exit callback fired more than once")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseWhilePausedStillExits(t *testing.T) {
	reg, _ := newTestRegistry()
	exits := make(chan ExitInfo, 1)

	_, err := reg.Spawn(SpawnSpec{
		ID:      "term_1",
		Command: "/bin/fake",
		OnExit:  func(id string, exit ExitInfo) { exits <- exit },
	})
	require.NoError(t, err)

	require.NoError(t, reg.Pause("term_1"))
	require.NoError(t, reg.Close("term_1"))
	recv(t, exits)
	assert.Equal(t, 0, reg.Count())
}

// The registry entry is gone by the time the exit callback runs, so the id
// is immediately reusable from inside the callback's goroutine.
func TestIDReusableAfterExit(t *testing.T) {
	reg, f := newTestRegistry()
	exits := make(chan ExitInfo, 1)

	_, err := reg.Spawn(SpawnSpec{
		ID:      "term_1",
		Command: "/bin/fake",
		OnExit:  func(id string, exit ExitInfo) { exits <- exit },
	})
	require.NoError(t, err)

	f.last().exit(ExitInfo{Code: 1})
	recv(t, exits)
	require.Equal(t, 0, reg.Count())

	_, err = reg.Spawn(SpawnSpec{ID: "term_1", Command: "/bin/fake"})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Count())
}

func TestCloseAllReleasesEverySession(t *testing.T) {
	reg, _ := newTestRegistry()
	exits := make(chan ExitInfo, 8)

	for _, id := range []string{"term_1", "term_2", "term_3"} {
		_, err := reg.Spawn(SpawnSpec{
			ID:      id,
			Command: "/bin/fake",
			OnExit:  func(id string, exit ExitInfo) { exits <- exit },
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, reg.Count())

	reg.CloseAll()
	for i := 0; i < 3; i++ {
		recv(t, exits)
	}
	assert.Equal(t, 0, reg.Count())
}

func TestListReportsLiveSessions(t *testing.T) {
	reg, _ := newTestRegistry()

	_, err := reg.Spawn(SpawnSpec{ID: "term_1", Command: "/bin/fake", Cols: 100, Rows: 30})
	require.NoError(t, err)
	_, err = reg.Spawn(SpawnSpec{ID: "term_2", Command: "/bin/other"})
	require.NoError(t, err)

	infos := reg.List()
	require.Len(t, infos, 2)

	byID := make(map[string]Info, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
	}
	assert.Equal(t, "/bin/fake", byID["term_1"].Command)
	assert.Equal(t, uint16(100), byID["term_1"].Cols)
	assert.Equal(t, "/bin/other", byID["term_2"].Command)
}
