// Package feature extracts audio features on two cadences: a cheap
// reactive path computed on every captured chunk, and a heavier
// aggregate path computed over the rolling window for classification.
//
// Both paths are deterministic for identical input samples.
package feature

import (
	"math"
	"time"
)

// Snapshot carries the per-chunk reactive features.
type Snapshot struct {
	// Amplitude is the chunk loudness in [0,1].
	Amplitude float64 `json:"amplitude"`

	// BeatStrength measures how much the chunk energy exceeds the
	// recent average, in [0,1]. Zero until enough history exists.
	BeatStrength float64 `json:"beat_strength"`

	// BandEnergy measures high-frequency content in [0,1].
	// 0.5 for silence.
	BandEnergy float64 `json:"band_energy"`

	// At is when the chunk was processed.
	At time.Time `json:"at"`
}

const (
	// energyHistorySize bounds the rolling chunk-energy history
	// (~4s of chunks at the default cadence).
	energyHistorySize = 43

	// energyHistoryMin is how much history beat detection needs
	// before it reports anything.
	energyHistoryMin = 10
)

// Reactive computes per-chunk features. It keeps a rolling energy
// history for beat detection, so it is owned by a single goroutine.
type Reactive struct {
	history []float64
}

// NewReactive creates a reactive feature extractor.
func NewReactive() *Reactive {
	return &Reactive{
		history: make([]float64, 0, energyHistorySize),
	}
}

// Process extracts features from one chunk of mono samples.
func (r *Reactive) Process(samples []int16) Snapshot {
	var sumSquares, sumDiffSquares float64
	prev := 0.0
	for i, s := range samples {
		v := float64(s) / 32768.0
		sumSquares += v * v
		if i > 0 {
			d := v - prev
			sumDiffSquares += d * d
		}
		prev = v
	}

	var rms float64
	if len(samples) > 0 {
		rms = math.Sqrt(sumSquares / float64(len(samples)))
	}
	amplitude := clamp01(rms * 3)

	beat := r.beatStrength(sumSquares)

	bandEnergy := 0.5
	if sumSquares > 1e-9 {
		bandEnergy = clamp01(sumDiffSquares / (sumSquares + 1e-6) * 2)
	}

	return Snapshot{
		Amplitude:    amplitude,
		BeatStrength: beat,
		BandEnergy:   bandEnergy,
		At:           time.Now(),
	}
}

// beatStrength appends the chunk energy to the history and compares it
// against the running average. Energy spikes read as beats.
func (r *Reactive) beatStrength(energy float64) float64 {
	r.history = append(r.history, energy)
	if len(r.history) > energyHistorySize {
		r.history = r.history[1:]
	}

	if len(r.history) <= energyHistoryMin {
		return 0
	}

	// Average excludes the newest entry so a spike stands against
	// the preceding baseline.
	var sum float64
	for _, e := range r.history[:len(r.history)-1] {
		sum += e
	}
	avg := sum / float64(len(r.history)-1)

	return clamp01((energy - avg*1.5) / (avg + 1e-6))
}

// Reset clears the energy history.
func (r *Reactive) Reset() {
	r.history = r.history[:0]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
