// Package relay coalesces PTY output into frames.
//
// Raw reads off a PTY master arrive in bursts of small chunks. Forwarding
// each one over the wire drowns clients in tiny messages, so the relay
// accumulates per session and flushes on a short timer: the first chunk of an
// idle period arms the timer, everything that lands before it fires joins the
// same frame. Within a session, frames preserve byte order and each byte is
// delivered exactly once.
package relay

import (
	"sync"
	"time"
)

// DefaultInterval is one frame at roughly 60Hz, short enough to be invisible
// and long enough to swallow a burst.
const DefaultInterval = 16 * time.Millisecond

// FlushFunc receives one coalesced frame. Calls for the same session id
// never overlap.
type FlushFunc func(id string, data []byte)

// Batcher accumulates output per session and delivers it in frames.
type Batcher struct {
	interval time.Duration
	flush    FlushFunc

	mu       sync.Mutex
	sessions map[string]*batch
}

type batch struct {
	owner *Batcher
	id    string

	mu     sync.Mutex
	chunks [][]byte
	size   int
	timer  *time.Timer
	closed bool
}

// NewBatcher creates a batcher delivering frames through flush. A
// non-positive interval selects DefaultInterval.
func NewBatcher(interval time.Duration, flush FlushFunc) *Batcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Batcher{
		interval: interval,
		flush:    flush,
		sessions: make(map[string]*batch),
	}
}

// Add queues a chunk for the session's next frame, arming the flush timer if
// this chunk starts a new idle period. The chunk is retained until flushed;
// callers must not reuse it.
func (b *Batcher) Add(id string, chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	b.mu.Lock()
	bt, ok := b.sessions[id]
	if !ok {
		bt = &batch{owner: b, id: id}
		b.sessions[id] = bt
	}
	b.mu.Unlock()

	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.closed {
		return
	}
	bt.chunks = append(bt.chunks, chunk)
	bt.size += len(chunk)
	if bt.timer == nil {
		bt.timer = time.AfterFunc(b.interval, bt.fire)
	}
}

// Close cancels the session's pending timer and flushes whatever is queued
// before returning. An in-flight timer flush completes first, so callers may
// emit an exit notification immediately after Close and know every frame
// preceded it. Unknown ids are a no-op.
func (b *Batcher) Close(id string) {
	b.mu.Lock()
	bt, ok := b.sessions[id]
	delete(b.sessions, id)
	b.mu.Unlock()
	if !ok {
		return
	}

	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.closed = true
	if bt.timer != nil {
		bt.timer.Stop()
		bt.timer = nil
	}
	if data := bt.take(); len(data) > 0 {
		b.flush(bt.id, data)
	}
}

// CloseAll flushes and releases every tracked session.
func (b *Batcher) CloseAll() {
	b.mu.Lock()
	ids := make([]string, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.Close(id)
	}
}

// fire runs on the timer goroutine. The batch lock is held across the flush
// callback, which serializes frames per session and lets Close wait out an
// in-flight delivery.
func (bt *batch) fire() {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.timer = nil
	if data := bt.take(); len(data) > 0 {
		bt.owner.flush(bt.id, data)
	}
}

// take concatenates and resets the queue. Callers hold bt.mu.
func (bt *batch) take() []byte {
	if bt.size == 0 {
		return nil
	}
	var data []byte
	if len(bt.chunks) == 1 {
		data = bt.chunks[0]
	} else {
		data = make([]byte, 0, bt.size)
		for _, c := range bt.chunks {
			data = append(data, c...)
		}
	}
	bt.chunks = nil
	bt.size = 0
	return data
}
