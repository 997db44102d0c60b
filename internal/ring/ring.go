// Package ring implements the byte ring buffers the bridge moves audio
// through: a fixed-capacity SPSC ring addressed by monotonic cursors
// (drop-oldest on overflow) and a growable staging variant that never
// drops application frames.
//
// Cursors are plain byte counters that only ever increase; a position in
// the backing array is cursor mod capacity. The buffered byte count is
// always writeCursor − readCursor, which stays in [0, capacity].
package ring

import "sync/atomic"

// Ring is a fixed-capacity circular byte buffer for one producer and one
// consumer. The producer owns the write cursor, the consumer the read
// cursor; both are accessed with atomic load/store only, so Ring is safe
// to use from a hardware callback on one side and an ordinary goroutine
// on the other without locks.
//
// Write never blocks and never fails: when a write would overflow, the
// oldest unread bytes are dropped first. Dropping advances the read
// cursor from the producer side, which can race with a concurrent Read;
// the race is benign: the reader either gets the bytes just before they
// are dropped or skips them, and the cursor invariant holds either way.
type Ring struct {
	buf []byte
	w   atomic.Uint64
	r   atomic.Uint64
}

// New returns a Ring with the given capacity in bytes.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]byte, capacity)}
}

// Capacity returns the fixed capacity in bytes.
func (rb *Ring) Capacity() int { return len(rb.buf) }

// Buffered returns the number of bytes available to read.
func (rb *Ring) Buffered() int {
	return int(rb.w.Load() - rb.r.Load())
}

// Free returns the number of bytes that can be written without dropping.
func (rb *Ring) Free() int {
	return len(rb.buf) - rb.Buffered()
}

// Write appends p, dropping the oldest unread bytes if p does not fit.
// It always returns len(p): from the producer's point of view the write
// fully succeeds. If len(p) exceeds the capacity only the most recent
// capacity bytes are retained, and the write cursor still advances by the
// full length so cursor arithmetic stays consistent.
func (rb *Ring) Write(p []byte) int {
	n := len(p)
	if n == 0 {
		return 0
	}
	size := len(rb.buf)
	w := rb.w.Load()
	r := rb.r.Load()
	if free := size - int(w-r); n > free {
		rb.r.Store(r + uint64(n-free)) // drop oldest
	}
	src := p
	pos := w
	if n > size {
		// Bytes that would be overwritten before the write completes are
		// skipped rather than copied.
		src = p[n-size:]
		pos = w + uint64(n-size)
	}
	idx := int(pos % uint64(size))
	first := copy(rb.buf[idx:], src)
	copy(rb.buf, src[first:])
	rb.w.Store(w + uint64(n))
	return n
}

// Read copies up to len(p) buffered bytes into p and returns the count.
// It never blocks and never returns more than is currently buffered.
func (rb *Ring) Read(p []byte) int {
	r := rb.r.Load()
	w := rb.w.Load()
	n := int(w - r)
	if n > len(p) {
		n = len(p)
	}
	if n == 0 {
		return 0
	}
	idx := int(r % uint64(len(rb.buf)))
	first := copy(p[:n], rb.buf[idx:])
	copy(p[first:n], rb.buf)
	rb.r.Store(r + uint64(n))
	return n
}

// Flush drops all pending unread bytes by jumping the read cursor to the
// write cursor. Used for barge-in style cancellation.
func (rb *Ring) Flush() {
	rb.r.Store(rb.w.Load())
}
