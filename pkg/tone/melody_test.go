package tone

import (
	"testing"
	"time"
)

func TestTwinkleShape(t *testing.T) {
	m := Twinkle()
	if m.Name != "twinkle" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.Tempo != 120 {
		t.Errorf("Tempo = %v, want 120", m.Tempo)
	}
	if len(m.Notes) != 42 {
		t.Errorf("len(Notes) = %d, want 42 (six phrases of seven)", len(m.Notes))
	}
	if first := m.Notes[0]; first.Freq != C4 || first.Beats != 1 {
		t.Errorf("first note = %+v, want C4 quarter", first)
	}
	if last := m.Notes[len(m.Notes)-1]; last.Freq != C4 || last.Beats != 2 {
		t.Errorf("last note = %+v, want C4 half", last)
	}
}

func TestHappyBirthdayShape(t *testing.T) {
	m := HappyBirthday()
	if m.Tempo != 100 {
		t.Errorf("Tempo = %v, want 100", m.Tempo)
	}
	if len(m.Notes) != 25 {
		t.Errorf("len(Notes) = %d, want 25", len(m.Notes))
	}
	if first := m.Notes[0]; first.Freq != C4 || first.Beats != 0.75 {
		t.Errorf("first note = %+v, want dotted C4 pickup", first)
	}
}

func TestMelodiesByName(t *testing.T) {
	all := Melodies()
	if len(all) != 2 {
		t.Errorf("len(Melodies()) = %d, want 2", len(all))
	}
	for _, name := range []string{"twinkle", "happy_birthday"} {
		m, ok := all[name]
		if !ok {
			t.Errorf("melody %q missing", name)
			continue
		}
		if m.Name != name {
			t.Errorf("melody %q reports name %q", name, m.Name)
		}
	}
}

func TestBeatDuration(t *testing.T) {
	if got := (Melody{Tempo: 120}).BeatDuration(); got != 500*time.Millisecond {
		t.Errorf("BeatDuration at 120 BPM = %v, want 500ms", got)
	}
	if got := (Melody{Tempo: 0}).BeatDuration(); got != 0 {
		t.Errorf("BeatDuration at zero tempo = %v, want 0", got)
	}
}

func TestMelodyDuration(t *testing.T) {
	// Six phrases of 8 beats at 120 BPM is 24s, plus 42 gaps of 50ms.
	got := Twinkle().Duration()
	want := 24*time.Second + 42*NoteGap
	if diff := got - want; diff < -time.Millisecond || diff > time.Millisecond {
		t.Errorf("Duration() = %v, want %v", got, want)
	}
}

func TestRenderMelodyLength(t *testing.T) {
	s := NewSynth(8000)
	m := Melody{
		Name:  "test",
		Tempo: 60,
		Notes: []Note{{A4, 1}, {C5, 0.5}},
	}
	out := s.RenderMelody(m, DefaultVolume)
	// 1s note + 50ms gap + 0.5s note + 50ms gap at 8kHz.
	want := 8000 + 400 + 4000 + 400
	if len(out) != want {
		t.Errorf("len = %d, want %d", len(out), want)
	}
}

func TestRenderMelodyNonSilent(t *testing.T) {
	s := NewSynth(8000)
	out := s.RenderMelody(Melody{Name: "test", Tempo: 120, Notes: []Note{{G4, 1}}}, DefaultVolume)
	peak := int16(0)
	for _, v := range out {
		if v > peak {
			peak = v
		}
	}
	if peak < 1000 {
		t.Errorf("peak %d, melody rendered nearly silent", peak)
	}
}
