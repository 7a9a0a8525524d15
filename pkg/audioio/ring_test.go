package audioio

import (
	"sync"
	"testing"
	"time"
)

func seqSamples(start, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(start + i)
	}
	return out
}

func TestRingZeroPadsShortHistory(t *testing.T) {
	r := NewRing(1000, time.Second)

	r.Push(seqSamples(1, 100))

	window := r.ReadWindow(time.Second)
	if len(window) != 1000 {
		t.Fatalf("window length = %d, want 1000", len(window))
	}
	for i := 0; i < 900; i++ {
		if window[i] != 0 {
			t.Fatalf("window[%d] = %d, want zero padding", i, window[i])
		}
	}
	for i := 0; i < 100; i++ {
		if window[900+i] != int16(1+i) {
			t.Fatalf("window[%d] = %d, want %d", 900+i, window[900+i], 1+i)
		}
	}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(10, time.Second)

	r.Push(seqSamples(1, 10))
	r.Push(seqSamples(11, 5))

	window := r.ReadWindow(time.Second)
	want := seqSamples(6, 10)
	for i := range want {
		if window[i] != want[i] {
			t.Fatalf("window[%d] = %d, want %d", i, window[i], want[i])
		}
	}
}

func TestRingChunkLargerThanCapacity(t *testing.T) {
	r := NewRing(10, time.Second)

	r.Push(seqSamples(1, 25))

	window := r.ReadWindow(time.Second)
	want := seqSamples(16, 10)
	for i := range want {
		if window[i] != want[i] {
			t.Fatalf("window[%d] = %d, want %d", i, window[i], want[i])
		}
	}

	stats := r.Stats()
	if stats.Pushed != 25 {
		t.Errorf("pushed = %d, want 25", stats.Pushed)
	}
	if stats.Evicted != 15 {
		t.Errorf("evicted = %d, want 15", stats.Evicted)
	}
}

func TestRingPartialWindow(t *testing.T) {
	r := NewRing(10, time.Second)

	r.Push(seqSamples(1, 10))

	window := r.ReadWindow(500 * time.Millisecond)
	if len(window) != 5 {
		t.Fatalf("window length = %d, want 5", len(window))
	}
	want := seqSamples(6, 5)
	for i := range want {
		if window[i] != want[i] {
			t.Fatalf("window[%d] = %d, want %d", i, window[i], want[i])
		}
	}
}

func TestRingReadWindowReturnsCopy(t *testing.T) {
	r := NewRing(10, time.Second)
	r.Push(seqSamples(1, 10))

	first := r.ReadWindow(time.Second)
	first[0] = 999

	second := r.ReadWindow(time.Second)
	if second[0] != 1 {
		t.Errorf("mutation of a returned window leaked into the buffer")
	}
}

func TestRingWrapAround(t *testing.T) {
	r := NewRing(8, time.Second)

	// Repeated pushes force the head to wrap several times.
	for i := 0; i < 5; i++ {
		r.Push(seqSamples(i*3+1, 3))
	}

	// 15 samples pushed, capacity 8: expect 8..15.
	window := r.ReadWindow(time.Second)
	want := seqSamples(8, 8)
	for i := range want {
		if window[i] != want[i] {
			t.Fatalf("window[%d] = %d, want %d", i, window[i], want[i])
		}
	}
}

func TestRingConcurrentPushRead(t *testing.T) {
	r := NewRing(22050, 3*time.Second)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		chunk := seqSamples(1, 2048)
		for i := 0; i < 200; i++ {
			r.Push(chunk)
		}
		close(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				if got := r.ReadWindow(3 * time.Second); len(got) != r.Capacity() {
					t.Errorf("window length = %d, want %d", len(got), r.Capacity())
					return
				}
			}
		}
	}()

	wg.Wait()

	if r.Len() != r.Capacity() {
		t.Errorf("filled = %d, want full capacity %d", r.Len(), r.Capacity())
	}
}
