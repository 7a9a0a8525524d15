// Package motion converts audio features into head offsets and delivers
// pose commands to the robot daemon.
//
// The Mapper produces a smoothed head offset per feature snapshot. The
// SafeExecutor sits between every producer and the daemon: it clamps to
// physical limits, rate-limits large jumps, drops sub-dead-zone updates,
// and trips a circuit breaker when the daemon stops answering.
package motion

import (
	"math"
	"time"
)

// Physical head limits in radians. Commands beyond these would bind the
// neck linkage, so every dispatch path clamps against them.
const (
	MaxHeadRoll  = 0.3
	MaxHeadPitch = 0.5
	MaxHeadYaw   = 0.8
)

// MaxAntennaRad is the antenna travel limit in radians, full range.
const MaxAntennaRad = 3.14

const (
	// MaxVelocityRad is the angular velocity ceiling used when computing
	// safe point-to-point move durations.
	MaxVelocityRad = 1.0 // rad/s

	// MinMoveSeconds is the floor for any point-to-point move duration.
	MinMoveSeconds = 0.5
)

// Dead-zone thresholds. Updates smaller than these are not worth an HTTP
// call to the daemon.
const (
	DeadZoneHeadRad    = 0.005 // ~0.3 degrees
	DeadZoneAntennaRad = 0.009 // ~0.5 degrees
)

// Offset is an additive head adjustment (roll, pitch, yaw in radians).
type Offset struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Clamp returns a new Offset with values clamped to physical head limits.
func (o Offset) Clamp() Offset {
	return Offset{
		Roll:  clamp(o.Roll, -MaxHeadRoll, MaxHeadRoll),
		Pitch: clamp(o.Pitch, -MaxHeadPitch, MaxHeadPitch),
		Yaw:   clamp(o.Yaw, -MaxHeadYaw, MaxHeadYaw),
	}
}

// Add returns the sum of o and other.
func (o Offset) Add(other Offset) Offset {
	return Offset{
		Roll:  o.Roll + other.Roll,
		Pitch: o.Pitch + other.Pitch,
		Yaw:   o.Yaw + other.Yaw,
	}
}

// Scale returns o with every axis multiplied by f.
func (o Offset) Scale(f float64) Offset {
	return Offset{Roll: o.Roll * f, Pitch: o.Pitch * f, Yaw: o.Yaw * f}
}

// Command is one pose update for the daemon. Nil Antennas leaves the
// antennas wherever they are.
type Command struct {
	Head     Offset
	Antennas *[2]float64
	Duration time.Duration
}

// ClampAntennas returns antenna positions clamped to travel limits.
func ClampAntennas(a [2]float64) [2]float64 {
	return [2]float64{
		clamp(a[0], -MaxAntennaRad, MaxAntennaRad),
		clamp(a[1], -MaxAntennaRad, MaxAntennaRad),
	}
}

// SafeDuration returns how long a move from one head pose to another
// should take so no axis exceeds the velocity ceiling.
func SafeDuration(from, to Offset) time.Duration {
	dist := max3(abs(to.Roll-from.Roll), abs(to.Pitch-from.Pitch), abs(to.Yaw-from.Yaw))
	secs := dist / MaxVelocityRad
	if secs < MinMoveSeconds {
		secs = MinMoveSeconds
	}
	return time.Duration(secs * float64(time.Second))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(x float64) float64 {
	return math.Abs(x)
}

func max3(a, b, c float64) float64 {
	return math.Max(math.Max(a, b), c)
}
