package feature

import (
	"fmt"
	"math"
)

// Aggregate carries the per-window features driving classification.
type Aggregate struct {
	// Tempo is the estimated beats per minute, 0 when no rhythm
	// was found (steady tones, silence).
	Tempo float64 `json:"tempo"`

	// Energy is the normalized window loudness in [0,1].
	Energy float64 `json:"energy"`

	// Valence maps the spectral centroid to [0,1]; bright audio
	// reads high, dark audio reads low.
	Valence float64 `json:"valence"`
}

const (
	// centroidFrame/centroidHop shape the spectral analysis frames.
	centroidFrame = 2048
	centroidHop   = 1024

	// onsetHop is the hop for the onset-energy envelope feeding
	// tempo estimation (~11.6ms at 22050 Hz).
	onsetHop = 256

	// Tempo search range in BPM.
	tempoMinBPM = 60.0
	tempoMaxBPM = 180.0

	// silentWindowRMS is the floor (about -60 dBFS) below which a
	// window is treated as silent: no tempo, zero valence.
	silentWindowRMS = 1e-3

	// onsetFloorRatio is the minimum share of window energy that must
	// arrive as onset flux for tempo estimation to run.
	onsetFloorRatio = 0.05
)

// Analyze extracts aggregate features from a window of mono samples.
// Returns ErrInsufficientAudio when the window is too short to analyze.
func Analyze(samples []int16, sampleRate int) (Aggregate, error) {
	if sampleRate <= 0 {
		return Aggregate{}, fmt.Errorf("%w: sample rate %d", ErrInsufficientAudio, sampleRate)
	}
	if len(samples) < centroidFrame {
		return Aggregate{}, fmt.Errorf("%w: %d samples, need %d", ErrInsufficientAudio, len(samples), centroidFrame)
	}

	xs := make([]float64, len(samples))
	var sumSquares float64
	for i, s := range samples {
		v := float64(s) / 32768.0
		xs[i] = v
		sumSquares += v * v
	}

	rms := math.Sqrt(sumSquares / float64(len(xs)))
	energy := clamp01(rms * 3)

	if rms < silentWindowRMS {
		return Aggregate{Tempo: 0, Energy: energy, Valence: 0}, nil
	}

	valence := clamp01(spectralCentroid(xs, sampleRate) / (float64(sampleRate) / 4))
	tempo := estimateTempo(xs, sampleRate)

	return Aggregate{Tempo: tempo, Energy: energy, Valence: valence}, nil
}

// spectralCentroid returns the mean spectral centroid in Hz over
// Hann-windowed frames.
func spectralCentroid(xs []float64, sampleRate int) float64 {
	win := hannWindow(centroidFrame)
	re := make([]float64, centroidFrame)
	im := make([]float64, centroidFrame)
	binHz := float64(sampleRate) / float64(centroidFrame)

	var total float64
	frames := 0

	for start := 0; start+centroidFrame <= len(xs); start += centroidHop {
		for i := 0; i < centroidFrame; i++ {
			re[i] = xs[start+i] * win[i]
			im[i] = 0
		}
		fft(re, im)

		var magSum, weighted float64
		for k := 1; k <= centroidFrame/2; k++ {
			mag := math.Hypot(re[k], im[k])
			magSum += mag
			weighted += mag * float64(k) * binHz
		}
		if magSum > 1e-12 {
			total += weighted / magSum
			frames++
		}
	}

	if frames == 0 {
		return 0
	}
	return total / float64(frames)
}

// estimateTempo finds the dominant periodicity of the onset-energy
// envelope by autocorrelation over the 60-180 BPM range. Returns 0
// when the signal carries no usable rhythm.
func estimateTempo(xs []float64, sampleRate int) float64 {
	nFrames := len(xs) / onsetHop
	if nFrames < 8 {
		return 0
	}

	energies := make([]float64, nFrames)
	for f := 0; f < nFrames; f++ {
		var e float64
		for i := f * onsetHop; i < (f+1)*onsetHop; i++ {
			e += xs[i] * xs[i]
		}
		energies[f] = e
	}

	// Positive energy flux: rises mark onsets, decays are ignored.
	onsets := make([]float64, nFrames)
	var onsetSum, totalEnergy float64
	for f := 1; f < nFrames; f++ {
		totalEnergy += energies[f]
		if d := energies[f] - energies[f-1]; d > 0 {
			onsets[f] = d
			onsetSum += d
		}
	}

	// A steady tone shows only numeric ripple in its envelope; require
	// the flux to be a meaningful share of the energy before trusting
	// any periodicity in it.
	if onsetSum < 1e-6 || onsetSum < onsetFloorRatio*totalEnergy {
		return 0
	}

	mean := onsetSum / float64(nFrames)
	for f := range onsets {
		onsets[f] -= mean
	}

	hopDur := float64(onsetHop) / float64(sampleRate)
	minLag := int(60.0 / tempoMaxBPM / hopDur)
	maxLag := int(math.Ceil(60.0 / tempoMinBPM / hopDur))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= nFrames {
		maxLag = nFrames - 1
	}
	if minLag > maxLag {
		return 0
	}

	var r0 float64
	for _, o := range onsets {
		r0 += o * o
	}
	if r0 <= 0 {
		return 0
	}

	rs := make([]float64, maxLag+1)
	bestLag, bestR := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var r float64
		for f := lag; f < nFrames; f++ {
			r += onsets[f] * onsets[f-lag]
		}
		r /= r0
		rs[lag] = r
		if r > bestR {
			bestR = r
			bestLag = lag
		}
	}
	if bestLag == 0 || bestR < 0.05 {
		return 0
	}

	// Parabolic refinement around the autocorrelation peak.
	lag := float64(bestLag)
	if bestLag > minLag && bestLag < maxLag {
		y0, y1, y2 := rs[bestLag-1], rs[bestLag], rs[bestLag+1]
		if denom := y0 - 2*y1 + y2; math.Abs(denom) > 1e-12 {
			lag += 0.5 * (y0 - y2) / denom
		}
	}

	return 60.0 / (lag * hopDur)
}
