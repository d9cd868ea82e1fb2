package relay

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	id   string
	data string
}

type collector struct {
	mu     sync.Mutex
	frames []frame
	ch     chan frame
}

func newCollector() *collector {
	return &collector{ch: make(chan frame, 64)}
}

func (c *collector) flush(id string, data []byte) {
	f := frame{id: id, data: string(data)}
	c.mu.Lock()
	c.frames = append(c.frames, f)
	c.mu.Unlock()
	c.ch <- f
}

func (c *collector) next(t *testing.T) frame {
	t.Helper()
	select {
	case f := <-c.ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		panic("unreachable")
	}
}

func (c *collector) all() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func TestCoalescesBurstIntoOneFrame(t *testing.T) {
	c := newCollector()
	b := NewBatcher(20*time.Millisecond, c.flush)

	b.Add("s1", []byte("foo"))
	b.Add("s1", []byte("bar"))
	b.Add("s1", []byte("baz"))

	f := c.next(t)
	assert.Equal(t, "s1", f.id)
	assert.Equal(t, "foobarbaz", f.data)

	select {
	case extra := <-c.ch:
		t.Fatalf("unexpected second frame: %q", extra.data)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestIdlePeriodsProduceSeparateFrames(t *testing.T) {
	c := newCollector()
	b := NewBatcher(10*time.Millisecond, c.flush)

	b.Add("s1", []byte("first"))
	assert.Equal(t, "first", c.next(t).data)

	b.Add("s1", []byte("second"))
	assert.Equal(t, "second", c.next(t).data)
}

func TestCloseFlushesRemainderSynchronously(t *testing.T) {
	c := newCollector()
	b := NewBatcher(time.Hour, c.flush)

	b.Add("s1", []byte("pending"))
	b.Close("s1")

	frames := c.all()
	require.Len(t, frames, 1)
	assert.Equal(t, frame{id: "s1", data: "pending"}, frames[0])
}

func TestCloseWithNothingQueued(t *testing.T) {
	c := newCollector()
	b := NewBatcher(time.Hour, c.flush)

	b.Add("s1", []byte("x"))
	b.Close("s1")
	b.Close("s1")
	b.Close("ghost")

	assert.Len(t, c.all(), 1)
}

func TestAddAfterCloseStartsFresh(t *testing.T) {
	c := newCollector()
	b := NewBatcher(10*time.Millisecond, c.flush)

	b.Add("s1", []byte("x"))
	b.Close("s1")
	before := len(c.all())

	// The id was released on Close, so this starts a fresh accumulation
	// rather than resurrecting the old one.
	b.Add("s1", []byte("y"))
	f := c.next(t)
	for f.data != "y" {
		f = c.next(t)
	}
	assert.GreaterOrEqual(t, len(c.all()), before+1)
}

func TestSessionsAreIndependent(t *testing.T) {
	c := newCollector()
	b := NewBatcher(15*time.Millisecond, c.flush)

	b.Add("s1", []byte("one"))
	b.Add("s2", []byte("two"))

	got := map[string]string{}
	for i := 0; i < 2; i++ {
		f := c.next(t)
		got[f.id] = f.data
	}
	assert.Equal(t, map[string]string{"s1": "one", "s2": "two"}, got)

	// Closing one session must not flush or disturb the other.
	b.Add("s1", []byte("more"))
	b.Close("s2")
	assert.Equal(t, "more", c.next(t).data)
}

func TestOrderPreservedAcrossFrames(t *testing.T) {
	c := newCollector()
	b := NewBatcher(5*time.Millisecond, c.flush)

	want := ""
	for i := 0; i < 20; i++ {
		s := strconv.Itoa(i)
		want += s
		b.Add("s1", []byte(s))
		if i%5 == 4 {
			time.Sleep(12 * time.Millisecond)
		}
	}
	b.Close("s1")

	got := ""
	for _, f := range c.all() {
		got += f.data
	}
	assert.Equal(t, want, got)
}

func TestCloseAllFlushesEverything(t *testing.T) {
	c := newCollector()
	b := NewBatcher(time.Hour, c.flush)

	b.Add("s1", []byte("a"))
	b.Add("s2", []byte("b"))
	b.CloseAll()

	got := map[string]string{}
	for _, f := range c.all() {
		got[f.id] += f.data
	}
	assert.Equal(t, map[string]string{"s1": "a", "s2": "b"}, got)
}
