package emotion

import "time"

// Detector turns a stream of classifications into a stable mood.
//
// A new mood is committed only when it clears the confidence gate for
// HoldWindows consecutive observations. Not safe for concurrent use;
// a single classification loop owns it.
type Detector struct {
	thresholds    Thresholds
	minConfidence float64
	holdWindows   int

	state   State
	pending Emotion
	streak  int
	now     func() time.Time
}

// NewDetector returns a Detector starting in Neutral.
func NewDetector(th Thresholds, minConfidence float64, holdWindows int) *Detector {
	if holdWindows < 1 {
		holdWindows = 1
	}
	d := &Detector{
		thresholds:    th,
		minConfidence: minConfidence,
		holdWindows:   holdWindows,
		now:           time.Now,
	}
	d.state = State{Emotion: Neutral, Confidence: neutralConfidence, Since: d.now()}
	return d
}

// Observe classifies one aggregate window and returns the committed
// state plus whether the mood changed on this observation.
func (d *Detector) Observe(tempo, energy, valence float64) (State, bool) {
	label, conf := Classify(tempo, energy, valence, d.thresholds)

	if conf < d.minConfidence {
		// Too close to a boundary to trust; keep the current mood.
		d.streak = 0
		return d.state, false
	}

	if label == d.state.Emotion {
		d.state.Confidence = conf
		d.streak = 0
		return d.state, false
	}

	if label == d.pending {
		d.streak++
	} else {
		d.pending = label
		d.streak = 1
	}

	if d.streak < d.holdWindows {
		return d.state, false
	}

	d.state = State{Emotion: label, Confidence: conf, Since: d.now()}
	d.streak = 0
	return d.state, true
}

// State returns the committed state.
func (d *Detector) State() State {
	return d.state
}

// Reset returns the detector to Neutral.
func (d *Detector) Reset() {
	d.state = State{Emotion: Neutral, Confidence: neutralConfidence, Since: d.now()}
	d.pending = Neutral
	d.streak = 0
}
