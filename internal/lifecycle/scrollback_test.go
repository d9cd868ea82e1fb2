package lifecycle

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrollbackAppends(t *testing.T) {
	s := NewScrollback(64)

	s.Write([]byte("hello "))
	s.Write([]byte("world"))

	assert.Equal(t, []byte("hello world"), s.Snapshot())
	assert.Equal(t, 11, s.Len())
}

func TestScrollbackSnapshotDoesNotClear(t *testing.T) {
	s := NewScrollback(64)
	s.Write([]byte("abc"))

	first := s.Snapshot()
	second := s.Snapshot()
	assert.Equal(t, first, second)
	assert.Equal(t, 3, s.Len())
}

func TestScrollbackSnapshotIsACopy(t *testing.T) {
	s := NewScrollback(64)
	s.Write([]byte("abc"))

	snap := s.Snapshot()
	snap[0] = 'X'
	assert.Equal(t, []byte("abc"), s.Snapshot())
}

func TestScrollbackDropsOldestOverLimit(t *testing.T) {
	s := NewScrollback(8)

	s.Write([]byte("12345"))
	s.Write([]byte("6789"))

	assert.Equal(t, []byte("23456789"), s.Snapshot())
	assert.Equal(t, 8, s.Len())
}

func TestScrollbackOversizedWriteKeepsTail(t *testing.T) {
	s := NewScrollback(4)

	s.Write(bytes.Repeat([]byte("ab"), 10))
	assert.Equal(t, []byte("abab"), s.Snapshot())
}

func TestScrollbackReset(t *testing.T) {
	s := NewScrollback(64)
	s.Write([]byte("abc"))
	s.Reset()

	assert.Nil(t, s.Snapshot())
	assert.Equal(t, 0, s.Len())
}

func TestScrollbackEmpty(t *testing.T) {
	s := NewScrollback(64)
	assert.Nil(t, s.Snapshot())
	s.Write(nil)
	assert.Equal(t, 0, s.Len())
}
