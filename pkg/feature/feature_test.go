package feature

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// sineSamples generates n mono samples of a sine wave.
func sineSamples(freq, amplitude float64, n, sampleRate int) []int16 {
	out := make([]int16, n)
	for i := range out {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		out[i] = int16(v * 32767)
	}
	return out
}

func silenceSamples(n int) []int16 {
	return make([]int16, n)
}

func TestReactiveSilence(t *testing.T) {
	r := NewReactive()

	snap := r.Process(silenceSamples(2048))

	if !floatEquals(snap.Amplitude, 0) {
		t.Errorf("amplitude = %v, want 0", snap.Amplitude)
	}
	if !floatEquals(snap.BeatStrength, 0) {
		t.Errorf("beat strength = %v, want 0", snap.BeatStrength)
	}
	if !floatEquals(snap.BandEnergy, 0.5) {
		t.Errorf("band energy = %v, want 0.5 for silence", snap.BandEnergy)
	}
}

func TestReactiveAmplitudeMonotonic(t *testing.T) {
	amplitudes := []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8}

	prev := -1.0
	for _, a := range amplitudes {
		r := NewReactive()
		snap := r.Process(sineSamples(440, a, 2048, 22050))
		if snap.Amplitude < prev {
			t.Fatalf("amplitude decreased: input %v gave %v after %v", a, snap.Amplitude, prev)
		}
		prev = snap.Amplitude
	}
}

func TestReactiveAmplitudeScale(t *testing.T) {
	r := NewReactive()

	// RMS of a 0.2 amplitude sine is 0.2/sqrt(2); amplitude is 3x that.
	snap := r.Process(sineSamples(440, 0.2, 4096, 22050))
	want := 0.2 / math.Sqrt2 * 3

	if math.Abs(snap.Amplitude-want) > 0.02 {
		t.Errorf("amplitude = %v, want ~%v", snap.Amplitude, want)
	}
}

func TestReactiveBeatNeedsHistory(t *testing.T) {
	r := NewReactive()
	chunk := sineSamples(440, 0.4, 2048, 22050)

	// The first chunks never report a beat regardless of content.
	for i := 0; i < energyHistoryMin; i++ {
		snap := r.Process(chunk)
		if snap.BeatStrength != 0 {
			t.Fatalf("chunk %d: beat = %v, want 0 during warmup", i, snap.BeatStrength)
		}
	}
}

func TestReactiveBeatOnSpike(t *testing.T) {
	r := NewReactive()
	quiet := sineSamples(440, 0.2, 2048, 22050)
	loud := sineSamples(440, 0.9, 2048, 22050)

	for i := 0; i < 20; i++ {
		r.Process(quiet)
	}

	snap := r.Process(loud)
	if snap.BeatStrength < 0.5 {
		t.Errorf("beat = %v after a 4.5x energy spike, want >= 0.5", snap.BeatStrength)
	}
}

func TestReactiveBeatSteadySignal(t *testing.T) {
	r := NewReactive()
	chunk := sineSamples(440, 0.4, 2048, 22050)

	for i := 0; i < 60; i++ {
		snap := r.Process(chunk)
		if snap.BeatStrength != 0 {
			t.Fatalf("chunk %d: beat = %v for steady signal, want 0", i, snap.BeatStrength)
		}
	}
}

func TestReactiveBandEnergyBrightness(t *testing.T) {
	r1 := NewReactive()
	dark := r1.Process(sineSamples(200, 0.5, 2048, 22050))

	r2 := NewReactive()
	bright := r2.Process(sineSamples(5000, 0.5, 2048, 22050))

	if dark.BandEnergy >= bright.BandEnergy {
		t.Errorf("band energy: dark %v >= bright %v", dark.BandEnergy, bright.BandEnergy)
	}
	if dark.BandEnergy > 0.1 {
		t.Errorf("band energy for 200 Hz = %v, want near 0", dark.BandEnergy)
	}
	if bright.BandEnergy < 0.9 {
		t.Errorf("band energy for 5 kHz = %v, want near 1", bright.BandEnergy)
	}
}

func TestReactiveDeterministic(t *testing.T) {
	chunk := sineSamples(330, 0.6, 2048, 22050)

	a := NewReactive().Process(chunk)
	b := NewReactive().Process(chunk)

	if !floatEquals(a.Amplitude, b.Amplitude) {
		t.Errorf("amplitude differs: %v vs %v", a.Amplitude, b.Amplitude)
	}
	if !floatEquals(a.BeatStrength, b.BeatStrength) {
		t.Errorf("beat differs: %v vs %v", a.BeatStrength, b.BeatStrength)
	}
	if !floatEquals(a.BandEnergy, b.BandEnergy) {
		t.Errorf("band energy differs: %v vs %v", a.BandEnergy, b.BandEnergy)
	}
}

func TestReactiveReset(t *testing.T) {
	r := NewReactive()
	chunk := sineSamples(440, 0.4, 2048, 22050)

	for i := 0; i < 20; i++ {
		r.Process(chunk)
	}

	r.Reset()

	// Post-reset the warmup applies again.
	loud := sineSamples(440, 0.9, 2048, 22050)
	snap := r.Process(loud)
	if snap.BeatStrength != 0 {
		t.Errorf("beat = %v right after reset, want 0", snap.BeatStrength)
	}
}

func TestReactiveRangeBounds(t *testing.T) {
	r := NewReactive()

	// Full-scale square-ish input must stay clamped.
	chunk := make([]int16, 2048)
	for i := range chunk {
		if i%2 == 0 {
			chunk[i] = 32767
		} else {
			chunk[i] = -32768
		}
	}

	for i := 0; i < 30; i++ {
		snap := r.Process(chunk)
		if snap.Amplitude < 0 || snap.Amplitude > 1 {
			t.Fatalf("amplitude %v out of range", snap.Amplitude)
		}
		if snap.BeatStrength < 0 || snap.BeatStrength > 1 {
			t.Fatalf("beat %v out of range", snap.BeatStrength)
		}
		if snap.BandEnergy < 0 || snap.BandEnergy > 1 {
			t.Fatalf("band energy %v out of range", snap.BandEnergy)
		}
	}
}
