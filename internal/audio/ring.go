package audio

import "sync"

// Ring keeps the most recent samples of a live stream. A single producer
// writes decoded audio while the detector reads the newest frame; both
// sides may run on different goroutines.
type Ring struct {
	mu   sync.Mutex
	buf  []float64
	next int  // index of the next write
	full bool // buffer has wrapped at least once
}

// NewRing creates a ring holding up to capacity samples.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Write appends samples, overwriting the oldest when full.
func (r *Ring) Write(samples []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Only the tail can survive when the write is larger than the ring
	if len(samples) >= len(r.buf) {
		copy(r.buf, samples[len(samples)-len(r.buf):])
		r.next = 0
		r.full = true
		return
	}

	n := copy(r.buf[r.next:], samples)
	if n < len(samples) {
		copy(r.buf, samples[n:])
		r.full = true
	}
	r.next = (r.next + len(samples)) % len(r.buf)
	if r.next == 0 && len(samples) > 0 {
		r.full = true
	}
}

// Len returns the number of samples currently held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

func (r *Ring) lenLocked() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Latest copies the newest samples into dst, oldest first, and returns how
// many were copied. Fewer than len(dst) are returned until enough audio
// has arrived.
func (r *Ring) Latest(dst []float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := min(len(dst), r.lenLocked())
	start := (r.next - n + len(r.buf)) % len(r.buf)
	copied := copy(dst[:n], r.buf[start:])
	if copied < n {
		copy(dst[copied:n], r.buf)
	}
	return n
}
