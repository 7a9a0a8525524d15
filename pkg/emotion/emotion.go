// Package emotion classifies aggregate audio features into one of four
// musical moods and carries the per-mood performance profiles.
//
// Classification is a fixed-priority rule table over tempo, energy, and
// valence. A Detector wraps the pure classifier with a confidence gate
// and a hold-window debounce so the mood does not flap when a track sits
// near a threshold.
package emotion

import "time"

// Emotion is a detected musical mood.
type Emotion int

const (
	// Neutral is the default mood and the zero value.
	Neutral Emotion = iota

	// Happy means bright, positive content with moderate energy.
	Happy

	// Sad means low-energy, dark content.
	Sad

	// Energetic means fast and loud content.
	Energetic
)

// String returns the lowercase mood name.
func (e Emotion) String() string {
	switch e {
	case Neutral:
		return "neutral"
	case Happy:
		return "happy"
	case Sad:
		return "sad"
	case Energetic:
		return "energetic"
	default:
		return "unknown"
	}
}

// Emotions returns every defined mood.
func Emotions() []Emotion {
	return []Emotion{Neutral, Happy, Sad, Energetic}
}

// State is the committed classification shared across the pipeline.
// Writers replace whole State values; readers never see a partial one.
type State struct {
	// Emotion is the active mood.
	Emotion Emotion `json:"emotion"`

	// Confidence is the classification confidence in [0,1] at commit time.
	Confidence float64 `json:"confidence"`

	// Since is when this mood was committed.
	Since time.Time `json:"since"`
}

// Profile describes how the robot performs a mood.
type Profile struct {
	// Gestures is the set of gesture ids to pick from while this mood
	// is active.
	Gestures []string `json:"gestures"`

	// NoteLow and NoteHigh bound the tone frequency range in Hz.
	NoteLow  float64 `json:"note_low"`
	NoteHigh float64 `json:"note_high"`

	// Intensity scales reactive motion magnitude.
	Intensity float64 `json:"intensity"`

	// Speed scales reactive motion frequency and gesture playback rate.
	Speed float64 `json:"speed"`
}

// DefaultProfiles returns the built-in performance profile for every mood.
func DefaultProfiles() map[Emotion]Profile {
	return map[Emotion]Profile{
		Happy: {
			Gestures:  []string{"singing_sway", "wave_antennas", "express_excited"},
			NoteLow:   523.25, // C5
			NoteHigh:  783.99, // G5
			Intensity: 1.2,
			Speed:     1.3,
		},
		Sad: {
			Gestures:  []string{"nod_yes", "tilt_curious"},
			NoteLow:   261.63, // C4
			NoteHigh:  392.00, // G4
			Intensity: 0.6,
			Speed:     0.7,
		},
		Energetic: {
			Gestures:  []string{"singing_sway", "singing_lean_forward", "look_around"},
			NoteLow:   392.00, // G4
			NoteHigh:  587.33, // D5
			Intensity: 1.5,
			Speed:     1.5,
		},
		Neutral: {
			Gestures:  []string{"singing_sway", "tilt_curious"},
			NoteLow:   349.23, // F4
			NoteHigh:  523.25, // C5
			Intensity: 1.0,
			Speed:     1.0,
		},
	}
}
