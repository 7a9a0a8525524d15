package gesture

import (
	"math"
	"time"

	"github.com/teslashibe/reachy-groove/pkg/motion"
)

// Gesture identifiers. Mood profiles reference moves by these names.
const (
	SingingSway    = "singing_sway"
	SingingLeanFwd = "singing_lean_forward"
	WaveAntennas   = "wave_antennas"
	ExpressExcited = "express_excited"
	ExpressHappy   = "express_happy"
	NodYes         = "nod_yes"
	TiltCurious    = "tilt_curious"
	LookAround     = "look_around"
	DramaticPause  = "dramatic_pause"
	BigFinish      = "big_finish"
	BashfulBow     = "bashful_bow"
)

// NewSingingSway rocks the head side to side like swaying to a song.
func NewSingingSway() *ScriptedMove {
	const (
		rollMag    = 0.21 // ~12 degrees
		antennaMag = 0.35
		cycles     = 2.0
	)
	return NewScriptedMove(SingingSway, 2500*time.Millisecond, func(p float64) Pose {
		phase := 2 * math.Pi * cycles * p
		env := swell(p, 0, 1)
		roll := math.Sin(phase) * rollMag * env
		// Antennas counter-sway against the head.
		a := -math.Sin(phase) * antennaMag * env
		return Pose{
			Head:     motion.Offset{Roll: roll},
			Antennas: [2]float64{a, a},
		}
	})
}

// NewSingingLeanForward leans the head in toward the music and back.
func NewSingingLeanForward() *ScriptedMove {
	const (
		pitchMag   = 0.25
		antennaFwd = 0.5
	)
	return NewScriptedMove(SingingLeanFwd, 2*time.Second, func(p float64) Pose {
		// Lean in over the first 40%, hold, release over the last 30%.
		lean := ramp(p, 0, 0.4) * (1 - ramp(p, 0.7, 1))
		return Pose{
			Head:     motion.Offset{Pitch: pitchMag * lean},
			Antennas: [2]float64{antennaFwd * lean, antennaFwd * lean},
		}
	})
}

// NewWaveAntennas waves the antennas in opposite phase.
func NewWaveAntennas() *ScriptedMove {
	const (
		antennaMag = 1.2
		rollMag    = 0.04
		waveFreq   = 2.0
	)
	return NewScriptedMove(WaveAntennas, 2*time.Second, func(p float64) Pose {
		phase := 2 * math.Pi * waveFreq * p
		env := swell(p, 0, 1)
		wave := math.Sin(phase) * antennaMag * env
		return Pose{
			Head:     motion.Offset{Roll: math.Sin(phase) * rollMag * env},
			Antennas: [2]float64{wave, -wave},
		}
	})
}

// NewExpressExcited bounces the head quickly with fast antenna flicks.
func NewExpressExcited() *ScriptedMove {
	const (
		pitchMag   = 0.15
		antennaMag = 0.9
		bounces    = 2.2
		flicks     = 3.0
	)
	return NewScriptedMove(ExpressExcited, 1800*time.Millisecond, func(p float64) Pose {
		env := swell(p, 0, 1)
		bounce := math.Abs(math.Sin(2*math.Pi*bounces*p)) * pitchMag * env
		flick := math.Sin(2*math.Pi*flicks*p) * antennaMag * env
		return Pose{
			Head:     motion.Offset{Pitch: -bounce},
			Antennas: [2]float64{flick, flick},
		}
	})
}

// NewExpressHappy lifts the head with a playful wiggle, antennas perked.
func NewExpressHappy() *ScriptedMove {
	const (
		rollMag    = 0.08
		pitchLift  = 0.08
		antennaUp  = 0.7
		wiggleMag  = 0.15
		wiggleFreq = 1.5
	)
	return NewScriptedMove(ExpressHappy, 2*time.Second, func(p float64) Pose {
		env := swell(p, 0, 1)
		wiggle := math.Sin(2 * math.Pi * wiggleFreq * p)
		a := antennaUp*env + wiggle*wiggleMag*env
		return Pose{
			Head: motion.Offset{
				Roll:  wiggle * rollMag * env,
				Pitch: -pitchLift * env,
			},
			Antennas: [2]float64{a, a},
		}
	})
}

// NewNodYes nods the head twice.
func NewNodYes() *ScriptedMove {
	const (
		pitchMag = 0.2
		nods     = 2.0
	)
	return NewScriptedMove(NodYes, 2*time.Second, func(p float64) Pose {
		env := swell(p, 0, 1)
		nod := math.Abs(math.Sin(2*math.Pi*nods*p/2)) * pitchMag * env
		return Pose{Head: motion.Offset{Pitch: nod}}
	})
}

// NewTiltCurious tilts the head to one side and holds, one antenna up.
func NewTiltCurious() *ScriptedMove {
	const (
		rollMag     = 0.18
		antennaUp   = 0.4
		antennaDown = -0.2
	)
	return NewScriptedMove(TiltCurious, 2200*time.Millisecond, func(p float64) Pose {
		tilt := ramp(p, 0, 0.3) * (1 - ramp(p, 0.75, 1))
		return Pose{
			Head:     motion.Offset{Roll: rollMag * tilt},
			Antennas: [2]float64{antennaUp * tilt, antennaDown * tilt},
		}
	})
}

// NewLookAround scans left, then right, then returns to center.
func NewLookAround() *ScriptedMove {
	const (
		yawMag     = 0.5
		antennaLag = 0.3
	)
	return NewScriptedMove(LookAround, 3*time.Second, func(p float64) Pose {
		var yaw float64
		switch {
		case p < 0.25:
			yaw = lerp(0, yawMag, smoothstep(p/0.25))
		case p < 0.4:
			yaw = yawMag
		case p < 0.65:
			yaw = lerp(yawMag, -yawMag, smoothstep((p-0.4)/0.25))
		case p < 0.8:
			yaw = -yawMag
		default:
			yaw = lerp(-yawMag, 0, smoothstep((p-0.8)/0.2))
		}
		// Antennas trail the scan direction.
		a := yaw * antennaLag
		return Pose{
			Head:     motion.Offset{Yaw: yaw},
			Antennas: [2]float64{a, a},
		}
	})
}

// NewDramaticPause drops the head slowly, freezes, then rises again.
func NewDramaticPause() *ScriptedMove {
	const (
		pitchDrop    = 0.3
		antennaDroop = -0.8
	)
	return NewScriptedMove(DramaticPause, 2500*time.Millisecond, func(p float64) Pose {
		drop := ramp(p, 0, 0.35) * (1 - ramp(p, 0.7, 1))
		return Pose{
			Head:     motion.Offset{Pitch: pitchDrop * drop},
			Antennas: [2]float64{antennaDroop * drop, antennaDroop * drop},
		}
	})
}

// NewBigFinish sweeps the head across and up with antennas spread wide.
func NewBigFinish() *ScriptedMove {
	const (
		yawMag      = 0.6
		pitchLift   = 0.25
		antennaWide = 1.5
	)
	return NewScriptedMove(BigFinish, 2800*time.Millisecond, func(p float64) Pose {
		env := swell(p, 0, 1)
		sweep := math.Sin(math.Pi * p)
		lift := ramp(p, 0.4, 0.8) * env
		spread := antennaWide * env
		return Pose{
			Head: motion.Offset{
				Yaw:   math.Sin(2*math.Pi*p) * yawMag * sweep,
				Pitch: -pitchLift * lift,
			},
			Antennas: [2]float64{spread, -spread},
		}
	})
}

// NewBashfulBow bows the head down with antennas folded.
func NewBashfulBow() *ScriptedMove {
	const (
		pitchBow    = 0.4
		rollShy     = 0.05
		antennaFold = -1.2
	)
	return NewScriptedMove(BashfulBow, 2600*time.Millisecond, func(p float64) Pose {
		bow := ramp(p, 0, 0.35) * (1 - ramp(p, 0.65, 1))
		return Pose{
			Head: motion.Offset{
				Pitch: pitchBow * bow,
				Roll:  rollShy * bow,
			},
			Antennas: [2]float64{antennaFold * bow, antennaFold * bow},
		}
	})
}

// BreathingMove is a continuous idle animation: a slow breathing motion
// used while no music is driving the head. It never completes.
type BreathingMove struct {
	amplitude float64
	frequency float64
}

// NewBreathingMove creates the idle breathing animation.
func NewBreathingMove() *BreathingMove {
	return &BreathingMove{
		amplitude: 0.02,
		frequency: 0.3,
	}
}

func (m *BreathingMove) Name() string { return "breathing" }

func (m *BreathingMove) Duration() time.Duration { return 0 }

func (m *BreathingMove) Evaluate(t time.Duration) Pose {
	phase := 2 * math.Pi * m.frequency * t.Seconds()
	breathe := math.Sin(phase)
	antenna := math.Sin(phase*1.2) * 0.1
	return Pose{
		Head: motion.Offset{
			Pitch: breathe * m.amplitude,
			Roll:  math.Sin(phase*0.7) * m.amplitude * 0.5,
		},
		Antennas: [2]float64{antenna, -antenna},
	}
}

func (m *BreathingMove) IsComplete(t time.Duration) bool { return false }
