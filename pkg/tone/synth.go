// Package tone synthesizes simple musical audio: single notes with a
// harmonic stack and ADSR envelope, named melodies, and the short cue
// played when the detected mood changes.
package tone

import (
	"math"
	"time"
)

// DefaultVolume is the playback volume for synthesized tones.
const DefaultVolume = 0.3

// Synth renders notes as PCM16 samples.
type Synth struct {
	sampleRate int
}

// NewSynth creates a synthesizer at the given sample rate.
func NewSynth(sampleRate int) *Synth {
	if sampleRate <= 0 {
		sampleRate = 22050
	}
	return &Synth{sampleRate: sampleRate}
}

// SampleRate returns the synthesizer's output rate.
func (s *Synth) SampleRate() int { return s.sampleRate }

// RenderNote renders one note at the given frequency. The waveform is
// the fundamental plus a quieter octave and fifth, normalized, shaped
// by an ADSR envelope and scaled by volume.
func (s *Synth) RenderNote(freq float64, duration time.Duration, volume float64) []int16 {
	n := int(float64(s.sampleRate) * duration.Seconds())
	if n <= 0 || freq <= 0 {
		return nil
	}

	wave := make([]float64, n)
	maxAbs := 0.0
	for i := range wave {
		t := float64(i) / float64(s.sampleRate)
		v := math.Sin(2*math.Pi*freq*t)*1.0 +
			math.Sin(2*math.Pi*freq*2*t)*0.3 +
			math.Sin(2*math.Pi*freq*3*t)*0.15
		wave[i] = v
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		maxAbs = 1
	}

	out := make([]int16, n)
	for i, v := range wave {
		sample := v / maxAbs * envelope(i, n) * volume
		out[i] = int16(sample * 32767)
	}
	return out
}

// RenderRest renders silence.
func (s *Synth) RenderRest(duration time.Duration) []int16 {
	n := int(float64(s.sampleRate) * duration.Seconds())
	if n <= 0 {
		return nil
	}
	return make([]int16, n)
}

// envelope shapes the note: 10% linear attack, 10% decay to 0.8, 60%
// sustain at 0.8, and the remainder released to zero.
func envelope(i, n int) float64 {
	attack := n / 10
	decay := n / 10
	sustain := n * 6 / 10
	release := n - attack - decay - sustain

	switch {
	case i < attack:
		return float64(i) / float64(attack)
	case i < attack+decay:
		return 1 - 0.2*float64(i-attack)/float64(decay)
	case i < attack+decay+sustain:
		return 0.8
	case release > 0:
		return 0.8 * float64(n-i) / float64(release)
	default:
		return 0.8
	}
}
