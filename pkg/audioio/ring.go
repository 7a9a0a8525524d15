package audioio

import (
	"sync"
	"time"
)

// Ring is a fixed-capacity rolling sample buffer. Writers push chunks as
// they arrive; readers take a copy of the most recent window. Old samples
// are evicted when capacity is exceeded, so memory stays bounded no matter
// how long the stream runs.
type Ring struct {
	mu     sync.Mutex
	buf    []int16
	head   int // next write index
	filled int // valid samples, <= len(buf)
	rate   int

	pushed  int64
	evicted int64
}

// RingStats contains counters for the rolling buffer.
type RingStats struct {
	// Pushed is the total number of samples written.
	Pushed int64 `json:"pushed"`

	// Evicted is the number of samples overwritten before being read.
	Evicted int64 `json:"evicted"`

	// Filled is the number of valid samples currently held.
	Filled int64 `json:"filled"`
}

// NewRing creates a rolling buffer holding window seconds of audio at the
// given sample rate.
func NewRing(sampleRate int, window time.Duration) *Ring {
	capacity := int(window.Seconds() * float64(sampleRate))
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		buf:  make([]int16, capacity),
		rate: sampleRate,
	}
}

// Push appends samples, evicting the oldest when capacity is exceeded.
// Push never blocks on readers.
func (r *Ring) Push(samples []int16) {
	if len(samples) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(samples)
	size := len(r.buf)

	if n >= size {
		// The chunk alone fills the buffer; keep its tail.
		copy(r.buf, samples[n-size:])
		r.head = 0
		r.evicted += int64(r.filled) + int64(n-size)
		r.filled = size
		r.pushed += int64(n)
		return
	}

	over := r.filled + n - size
	if over < 0 {
		over = 0
	}

	written := copy(r.buf[r.head:], samples)
	if written < n {
		copy(r.buf, samples[written:])
	}

	r.head = (r.head + n) % size
	r.filled += n
	if r.filled > size {
		r.filled = size
	}
	r.evicted += int64(over)
	r.pushed += int64(n)
}

// ReadWindow returns a copy of the most recent window of audio. When less
// history is available the left side is zero-padded, so the result always
// has exactly window/sampleRate samples.
func (r *Ring) ReadWindow(window time.Duration) []int16 {
	n := int(window.Seconds() * float64(r.rate))
	if n <= 0 {
		return nil
	}

	out := make([]int16, n)

	r.mu.Lock()
	defer r.mu.Unlock()

	avail := r.filled
	if avail > n {
		avail = n
	}
	if avail == 0 {
		return out
	}

	size := len(r.buf)
	start := r.head - avail
	if start < 0 {
		start += size
	}

	seg := size - start
	if seg > avail {
		seg = avail
	}
	copy(out[n-avail:], r.buf[start:start+seg])
	copy(out[n-avail+seg:], r.buf[:avail-seg])

	return out
}

// Len returns the number of valid samples currently buffered.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filled
}

// Capacity returns the maximum number of samples the buffer holds.
func (r *Ring) Capacity() int {
	return len(r.buf)
}

// SampleRate returns the sample rate the buffer was created with.
func (r *Ring) SampleRate() int {
	return r.rate
}

// Stats returns buffer counters.
func (r *Ring) Stats() RingStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RingStats{
		Pushed:  r.pushed,
		Evicted: r.evicted,
		Filled:  int64(r.filled),
	}
}
