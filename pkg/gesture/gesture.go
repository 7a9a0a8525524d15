// Package gesture provides the scripted move library and the scheduler
// that performs one move per gesture interval, picked from the active
// mood's set.
//
// Moves are procedural: each one is a function of playback progress
// returning a full pose. The Player samples that function at a fixed
// rate and hands poses to the motion layer; the Scheduler guarantees
// that two moves never run at the same time.
package gesture

import (
	"time"

	"github.com/teslashibe/reachy-groove/pkg/motion"
)

// Pose is a complete gesture pose: head offset plus antenna positions.
type Pose struct {
	Head     motion.Offset
	Antennas [2]float64
}

// Move is an animation that provides poses over time.
type Move interface {
	// Name returns the move identifier.
	Name() string

	// Duration returns the total duration of the move.
	// Zero means the move is continuous.
	Duration() time.Duration

	// Evaluate returns the pose at time t since move start.
	Evaluate(t time.Duration) Pose

	// IsComplete returns true when the move has finished.
	IsComplete(t time.Duration) bool
}

// ScriptedMove wraps a progress function as a Move. Progress runs 0..1
// over the move's duration.
type ScriptedMove struct {
	name     string
	duration time.Duration
	eval     func(p float64) Pose
}

// NewScriptedMove builds a move from a progress function.
func NewScriptedMove(name string, duration time.Duration, eval func(p float64) Pose) *ScriptedMove {
	return &ScriptedMove{name: name, duration: duration, eval: eval}
}

func (m *ScriptedMove) Name() string { return m.name }

func (m *ScriptedMove) Duration() time.Duration { return m.duration }

func (m *ScriptedMove) Evaluate(t time.Duration) Pose {
	if m.duration <= 0 {
		return m.eval(0)
	}
	return m.eval(clamp01(t.Seconds() / m.duration.Seconds()))
}

func (m *ScriptedMove) IsComplete(t time.Duration) bool {
	return t >= m.duration
}

// lerp performs linear interpolation.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// smoothstep provides smooth easing (slow start/end).
func smoothstep(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// ramp eases from 0 to 1 across the window [start, end] of progress.
func ramp(p, start, end float64) float64 {
	if end <= start {
		return 1
	}
	return smoothstep((p - start) / (end - start))
}

// swell rises from 0 to 1 and back down across [start, end], peaking in
// the middle. Outside the window it is 0.
func swell(p, start, end float64) float64 {
	if p <= start || p >= end {
		return 0
	}
	half := (start + end) / 2
	if p < half {
		return smoothstep((p - start) / (half - start))
	}
	return smoothstep((end - p) / (end - half))
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
