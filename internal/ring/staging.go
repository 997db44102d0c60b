package ring

import (
	"sync"
	"sync/atomic"
)

// Staging is the growable ring the application writes into. Unlike Ring
// it never drops data: when a write would overflow, the backing store
// grows under a mutex and the unread bytes are relaid in the new store
// with both cursors preserved. Growth is safe here because the staging
// producer and consumer are never the hardware thread.
//
// Cursors remain atomic so Buffered and Capacity can be read without the
// lock (introspection from any goroutine), but Write, Read and Flush all
// hold the mutex since a concurrent resize moves the data out from under
// plain cursor arithmetic.
type Staging struct {
	mu  sync.Mutex
	buf []byte
	w   atomic.Uint64
	r   atomic.Uint64
}

// NewStaging returns a Staging ring with the given initial capacity.
func NewStaging(capacity int) *Staging {
	if capacity <= 0 {
		capacity = 1
	}
	return &Staging{buf: make([]byte, capacity)}
}

// Capacity returns the current capacity in bytes. It grows over time.
func (s *Staging) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Buffered returns the number of bytes available to read.
func (s *Staging) Buffered() int {
	return int(s.w.Load() - s.r.Load())
}

// grow ensures at least need free bytes. Caller holds mu.
//
// The cursors are left untouched: unread bytes are relaid in the new
// store starting at r modulo the new capacity, so a lock-free Buffered
// racing the resize always sees a consistent level.
func (s *Staging) grow(need int) {
	r := s.r.Load()
	used := int(s.w.Load() - r)
	total := used + need
	newCap := len(s.buf) * 2
	if newCap < total {
		newCap = total
	}
	if slack := total + total/2; newCap < slack {
		newCap = slack
	}
	nb := make([]byte, newCap)
	if used > 0 {
		srcIdx := int(r % uint64(len(s.buf)))
		dstIdx := int(r % uint64(newCap))
		for moved := 0; moved < used; {
			chunk := used - moved
			if rem := len(s.buf) - srcIdx; chunk > rem {
				chunk = rem
			}
			if rem := newCap - dstIdx; chunk > rem {
				chunk = rem
			}
			copy(nb[dstIdx:], s.buf[srcIdx:srcIdx+chunk])
			moved += chunk
			if srcIdx += chunk; srcIdx == len(s.buf) {
				srcIdx = 0
			}
			if dstIdx += chunk; dstIdx == newCap {
				dstIdx = 0
			}
		}
	}
	s.buf = nb
}

// Write appends all of p, growing the ring if needed. It returns len(p);
// staging writes never drop and never fail.
func (s *Staging) Write(p []byte) int {
	n := len(p)
	if n == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if free := len(s.buf) - int(s.w.Load()-s.r.Load()); n > free {
		s.grow(n)
	}
	w := s.w.Load()
	idx := int(w % uint64(len(s.buf)))
	first := copy(s.buf[idx:], p)
	copy(s.buf, p[first:])
	s.w.Store(w + uint64(n))
	return n
}

// Read copies up to len(p) buffered bytes into p and returns the count.
func (s *Staging) Read(p []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.r.Load()
	n := int(s.w.Load() - r)
	if n > len(p) {
		n = len(p)
	}
	if n == 0 {
		return 0
	}
	idx := int(r % uint64(len(s.buf)))
	first := copy(p[:n], s.buf[idx:])
	copy(p[first:n], s.buf)
	s.r.Store(r + uint64(n))
	return n
}

// ReadInto drains up to max bytes from the staging ring directly into dst,
// a fixed Ring, and returns the number of bytes moved. The move is capped
// by dst's free space so nothing already committed to playback is dropped.
// This is the pacer's transfer primitive.
func (s *Staging) ReadInto(dst *Ring, max int) int {
	if max <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.r.Load()
	n := int(s.w.Load() - r)
	if n > max {
		n = max
	}
	if free := dst.Free(); n > free {
		n = free
	}
	if n == 0 {
		return 0
	}
	idx := int(r % uint64(len(s.buf)))
	first := len(s.buf) - idx
	if first > n {
		first = n
	}
	wrote := dst.Write(s.buf[idx : idx+first])
	if n > first {
		wrote += dst.Write(s.buf[:n-first])
	}
	s.r.Store(r + uint64(wrote))
	return wrote
}

// Flush drops all pending unread bytes.
func (s *Staging) Flush() {
	s.mu.Lock()
	s.r.Store(s.w.Load())
	s.mu.Unlock()
}
