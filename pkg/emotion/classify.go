package emotion

const (
	// silenceFloor is the energy below which input counts as silence.
	// Silence is always Neutral; without this floor the low-energy rule
	// would read an empty room as sad.
	silenceFloor = 0.02

	// confidenceBand is the normalized margin past every deciding
	// boundary at which confidence saturates to 1.
	confidenceBand = 0.1

	// neutralConfidence is reported when no rule matched.
	neutralConfidence = 0.5
)

// Thresholds are the rule boundaries for classification.
type Thresholds struct {
	// TempoSlow and TempoFast bound the tempo band in BPM. TempoFast is
	// the energetic boundary; the band width sets the tempo margin scale.
	TempoSlow float64
	TempoFast float64

	// EnergyLow and EnergyHigh split energy into quiet, moderate, loud.
	EnergyLow  float64
	EnergyHigh float64

	// ValenceSplit divides dark from bright content.
	ValenceSplit float64
}

// DefaultThresholds returns the standard rule boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TempoSlow:    90,
		TempoFast:    130,
		EnergyLow:    0.3,
		EnergyHigh:   0.7,
		ValenceSplit: 0.5,
	}
}

// Classify maps aggregate features to a mood and a confidence in [0,1].
//
// Rules are evaluated in fixed priority order so ties are deterministic:
//
//  1. tempo >= TempoFast and energy >= EnergyHigh -> Energetic
//  2. energy <= EnergyLow and valence < ValenceSplit -> Sad
//  3. valence >= ValenceSplit and energy > EnergyLow -> Happy
//  4. otherwise -> Neutral
//
// Confidence grows with the margin past the winning rule's nearest
// boundary and saturates one band past it. Silence short-circuits to
// Neutral with full confidence before any rule runs.
func Classify(tempo, energy, valence float64, th Thresholds) (Emotion, float64) {
	if energy < silenceFloor {
		return Neutral, 1.0
	}

	tempoSpan := th.TempoFast - th.TempoSlow
	if tempoSpan <= 0 {
		tempoSpan = 1
	}

	if tempo >= th.TempoFast && energy >= th.EnergyHigh {
		margin := min((tempo-th.TempoFast)/tempoSpan, energy-th.EnergyHigh)
		return Energetic, marginConfidence(margin)
	}
	if energy <= th.EnergyLow && valence < th.ValenceSplit {
		margin := min(th.EnergyLow-energy, th.ValenceSplit-valence)
		return Sad, marginConfidence(margin)
	}
	if valence >= th.ValenceSplit && energy > th.EnergyLow {
		margin := min(valence-th.ValenceSplit, energy-th.EnergyLow)
		return Happy, marginConfidence(margin)
	}
	return Neutral, neutralConfidence
}

// marginConfidence converts a normalized boundary margin to [0,1].
func marginConfidence(margin float64) float64 {
	c := margin / confidenceBand
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
