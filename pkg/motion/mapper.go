package motion

import (
	"math"
	"time"

	"github.com/teslashibe/reachy-groove/pkg/emotion"
	"github.com/teslashibe/reachy-groove/pkg/feature"
)

// Base motion parameters. Magnitudes are in degrees and scaled by the
// active profile before conversion to radians.
const (
	swayFreqHz   = 1.5 // side-to-side roll cycle
	tiltFreqHz   = 0.8 // slow yaw wander
	swayMagDeg   = 3.5
	bobMagDeg    = 4.5
	tiltMagDeg   = 6.0
	degPerRadian = 180.0 / math.Pi
)

// Mapper turns reactive feature snapshots into head offsets.
//
// Roll sways with amplitude, pitch bobs on beats, yaw drifts with the
// brightness of the signal. The active profile scales magnitude by its
// intensity and oscillation rate by its speed. An exponential moving
// average across consecutive snapshots suppresses jitter.
//
// Not safe for concurrent use; the reactive loop owns it.
type Mapper struct {
	smoothing float64

	epoch   time.Time
	state   Offset
	started bool
}

// NewMapper creates a mapper with the given smoothing factor in (0,1].
// Higher values follow the raw signal more closely.
func NewMapper(smoothing float64) *Mapper {
	if smoothing <= 0 || smoothing > 1 {
		smoothing = 0.3
	}
	return &Mapper{smoothing: smoothing}
}

// Map converts one snapshot into a smoothed, clamped head offset.
func (m *Mapper) Map(snap feature.Snapshot, profile emotion.Profile) Offset {
	if !m.started {
		m.epoch = snap.At
		m.started = true
	}
	t := snap.At.Sub(m.epoch).Seconds()

	speed := profile.Speed
	if speed <= 0 {
		speed = 1
	}
	intensity := profile.Intensity
	if intensity <= 0 {
		intensity = 1
	}

	sway := math.Sin(t*2*math.Pi*swayFreqHz*speed) * deg2rad(swayMagDeg) * snap.Amplitude
	bob := -snap.BeatStrength * deg2rad(bobMagDeg)
	tilt := math.Sin(t*2*math.Pi*tiltFreqHz*speed) * deg2rad(tiltMagDeg) * snap.BandEnergy

	raw := Offset{Roll: sway, Pitch: bob, Yaw: tilt}.Scale(intensity)

	m.state = Offset{
		Roll:  ema(m.state.Roll, raw.Roll, m.smoothing),
		Pitch: ema(m.state.Pitch, raw.Pitch, m.smoothing),
		Yaw:   ema(m.state.Yaw, raw.Yaw, m.smoothing),
	}

	return m.state.Clamp()
}

// Reset clears smoothing state so the next snapshot starts a new ramp.
func (m *Mapper) Reset() {
	m.state = Offset{}
	m.started = false
}

// ema blends a new sample into the running value.
func ema(prev, next, alpha float64) float64 {
	return prev + alpha*(next-prev)
}

func deg2rad(d float64) float64 {
	return d / degPerRadian
}
