package proctree

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	tree map[int][]int
	errs map[int]error
}

func (f fakeLister) Children(_ context.Context, pid int) ([]int, error) {
	if err := f.errs[pid]; err != nil {
		return nil, err
	}
	return f.tree[pid], nil
}

type fakeSignaler struct {
	mu      sync.Mutex
	termed  []int
	killed  []int
	alive   map[int]bool
	termErr map[int]error
}

func (f *fakeSignaler) Term(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.termed = append(f.termed, pid)
	return f.termErr[pid]
}

func (f *fakeSignaler) Kill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, pid)
	return nil
}

func (f *fakeSignaler) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func newTestTerminator(lister Lister, sig *fakeSignaler) *Terminator {
	t := NewTerminator(TerminatorConfig{Lister: lister, Grace: 5 * time.Millisecond}, nil)
	t.sig = sig
	return t
}

func TestDescendantsBreadthFirst(t *testing.T) {
	lister := fakeLister{tree: map[int][]int{
		100: {101, 102},
		101: {103},
	}}
	term := newTestTerminator(lister, &fakeSignaler{})

	pids, err := term.Descendants(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 103}, pids)
}

func TestDescendantsNoChildren(t *testing.T) {
	term := newTestTerminator(fakeLister{}, &fakeSignaler{})

	pids, err := term.Descendants(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, pids)
}

// Pid reuse can make the parent graph cyclic between two listings; the walk
// must still terminate.
func TestDescendantsSurvivesCycle(t *testing.T) {
	lister := fakeLister{tree: map[int][]int{
		100: {101},
		101: {100},
	}}
	term := newTestTerminator(lister, &fakeSignaler{})

	pids, err := term.Descendants(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, []int{101}, pids)
}

func TestDescendantsPartialOnListingError(t *testing.T) {
	lister := fakeLister{
		tree: map[int][]int{100: {101, 102}},
		errs: map[int]error{101: errors.New("ps unavailable")},
	}
	term := newTestTerminator(lister, &fakeSignaler{})

	pids, err := term.Descendants(context.Background(), 100)
	require.Error(t, err)
	assert.Equal(t, []int{101, 102}, pids)
}

func TestKillDescendantsEscalatesSurvivors(t *testing.T) {
	lister := fakeLister{tree: map[int][]int{100: {101, 102}}}
	sig := &fakeSignaler{alive: map[int]bool{102: true}}
	term := newTestTerminator(lister, sig)

	n := term.KillDescendants(context.Background(), 100)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []int{101, 102}, sig.termed)
	assert.Equal(t, []int{102}, sig.killed)
}

func TestKillDescendantsToleratesDeadPids(t *testing.T) {
	lister := fakeLister{tree: map[int][]int{100: {101, 102}}}
	sig := &fakeSignaler{termErr: map[int]error{101: errors.New("no such process")}}
	term := newTestTerminator(lister, sig)

	n := term.KillDescendants(context.Background(), 100)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []int{101, 102}, sig.termed)
	assert.Empty(t, sig.killed)
}

func TestKillDescendantsLeavesRootAlone(t *testing.T) {
	lister := fakeLister{tree: map[int][]int{100: {101}}}
	sig := &fakeSignaler{alive: map[int]bool{100: true, 101: true}}
	term := newTestTerminator(lister, sig)

	term.KillDescendants(context.Background(), 100)
	assert.NotContains(t, sig.termed, 100)
	assert.NotContains(t, sig.killed, 100)
}

func TestKillDescendantsEmptyTree(t *testing.T) {
	sig := &fakeSignaler{}
	term := newTestTerminator(fakeLister{}, sig)

	assert.Equal(t, 0, term.KillDescendants(context.Background(), 100))
	assert.Empty(t, sig.termed)
}
