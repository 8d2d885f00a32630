package gateway

import "sync"

type backlogEntry struct {
	seq  int64
	data []byte
}

// Backlog is a fixed-size ring of recent envelopes so a reconnecting
// client can catch up from the last sequence number it saw.
type Backlog struct {
	mu    sync.RWMutex
	buf   []backlogEntry
	next  int
	count int
}

// NewBacklog creates a backlog holding up to capacity envelopes.
func NewBacklog(capacity int) *Backlog {
	if capacity <= 0 {
		capacity = 256
	}
	return &Backlog{buf: make([]backlogEntry, capacity)}
}

// Push stores a copy of data under seq, evicting the oldest entry when full.
func (b *Backlog) Push(seq int64, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf[b.next] = backlogEntry{seq: seq, data: cp}
	b.next = (b.next + 1) % len(b.buf)
	if b.count < len(b.buf) {
		b.count++
	}
}

// After returns the envelopes with a sequence number greater than seq,
// oldest first.
func (b *Backlog) After(seq int64) [][]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out [][]byte
	start := (b.next - b.count + len(b.buf)) % len(b.buf)
	for i := 0; i < b.count; i++ {
		e := b.buf[(start+i)%len(b.buf)]
		if e.seq > seq {
			out = append(out, e.data)
		}
	}
	return out
}

// Len returns the number of stored envelopes.
func (b *Backlog) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}
