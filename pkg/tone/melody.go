package tone

import "time"

// Note frequencies in Hz, equal temperament, middle octave and the
// start of the next one.
const (
	C4 = 261.63
	D4 = 293.66
	E4 = 329.63
	F4 = 349.23
	G4 = 392.00
	A4 = 440.00
	B4 = 493.88
	C5 = 523.25
	D5 = 587.33
	E5 = 659.25
)

// NoteGap is the silence inserted between melody notes.
const NoteGap = 50 * time.Millisecond

// Note is one melody step: a frequency and a length in beats.
type Note struct {
	Freq  float64
	Beats float64
}

// Melody is a named note sequence with a default tempo in BPM.
type Melody struct {
	Name  string
	Tempo float64
	Notes []Note
}

// BeatDuration returns the length of one beat at the melody's tempo.
func (m Melody) BeatDuration() time.Duration {
	if m.Tempo <= 0 {
		return 0
	}
	return time.Duration(60 / m.Tempo * float64(time.Second))
}

// Duration returns the total playback length including inter-note gaps.
func (m Melody) Duration() time.Duration {
	beat := m.BeatDuration()
	total := time.Duration(0)
	for _, n := range m.Notes {
		total += time.Duration(n.Beats * float64(beat))
		total += NoteGap
	}
	return total
}

// Twinkle returns "Twinkle Twinkle Little Star".
func Twinkle() Melody {
	return Melody{
		Name:  "twinkle",
		Tempo: 120,
		Notes: []Note{
			// Twinkle twinkle little star
			{C4, 1}, {C4, 1}, {G4, 1}, {G4, 1},
			{A4, 1}, {A4, 1}, {G4, 2},
			// How I wonder what you are
			{F4, 1}, {F4, 1}, {E4, 1}, {E4, 1},
			{D4, 1}, {D4, 1}, {C4, 2},
			// Up above the world so high
			{G4, 1}, {G4, 1}, {F4, 1}, {F4, 1},
			{E4, 1}, {E4, 1}, {D4, 2},
			// Like a diamond in the sky
			{G4, 1}, {G4, 1}, {F4, 1}, {F4, 1},
			{E4, 1}, {E4, 1}, {D4, 2},
			// Twinkle twinkle little star
			{C4, 1}, {C4, 1}, {G4, 1}, {G4, 1},
			{A4, 1}, {A4, 1}, {G4, 2},
			// How I wonder what you are
			{F4, 1}, {F4, 1}, {E4, 1}, {E4, 1},
			{D4, 1}, {D4, 1}, {C4, 2},
		},
	}
}

// HappyBirthday returns the Happy Birthday melody.
func HappyBirthday() Melody {
	return Melody{
		Name:  "happy_birthday",
		Tempo: 100,
		Notes: []Note{
			// Happy birthday to you
			{C4, 0.75}, {C4, 0.25}, {D4, 1}, {C4, 1},
			{F4, 1}, {E4, 2},
			// Happy birthday to you
			{C4, 0.75}, {C4, 0.25}, {D4, 1}, {C4, 1},
			{G4, 1}, {F4, 2},
			// Happy birthday dear...
			{C4, 0.75}, {C4, 0.25}, {C5, 1}, {A4, 1},
			{F4, 1}, {E4, 1}, {D4, 2},
			// Happy birthday to you
			{A4, 0.75}, {A4, 0.25}, {G4, 1}, {F4, 1},
			{G4, 1}, {F4, 2},
		},
	}
}

// Melodies returns the built-in melodies keyed by name.
func Melodies() map[string]Melody {
	out := make(map[string]Melody)
	for _, m := range []Melody{Twinkle(), HappyBirthday()} {
		out[m.Name] = m
	}
	return out
}

// RenderMelody renders the full melody at its tempo, with gaps.
func (s *Synth) RenderMelody(m Melody, volume float64) []int16 {
	beat := m.BeatDuration()
	var out []int16
	for _, n := range m.Notes {
		dur := time.Duration(n.Beats * float64(beat))
		out = append(out, s.RenderNote(n.Freq, dur, volume)...)
		out = append(out, s.RenderRest(NoteGap)...)
	}
	return out
}
