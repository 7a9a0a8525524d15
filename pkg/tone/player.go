package tone

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/teslashibe/reachy-groove/internal/log"
	"github.com/teslashibe/reachy-groove/pkg/audioio"
	"github.com/teslashibe/reachy-groove/pkg/emotion"
)

// CueDuration is the default length of the mood-transition cue.
const CueDuration = 300 * time.Millisecond

// PlayerConfig shapes playback. Zero values use the package defaults.
type PlayerConfig struct {
	CueDuration time.Duration
	Volume      float64
}

// Cue describes one dispatched transition tone.
type Cue struct {
	Emotion   string        `json:"emotion"`
	Frequency float64       `json:"frequency"`
	Duration  time.Duration `json:"duration"`
}

// Player renders tones and writes them to an audio sink. The sink's
// lifecycle (Start/Stop/Close) belongs to the caller.
type Player struct {
	synth    *Synth
	sink     audioio.Sink
	profiles map[emotion.Emotion]emotion.Profile
	cueDur   time.Duration
	volume   float64
}

// NewPlayer creates a player over the given sink. The synthesizer
// matches the sink's sample rate.
func NewPlayer(sink audioio.Sink, profiles map[emotion.Emotion]emotion.Profile, cfg PlayerConfig) *Player {
	if cfg.CueDuration <= 0 {
		cfg.CueDuration = CueDuration
	}
	if cfg.Volume <= 0 {
		cfg.Volume = DefaultVolume
	}
	return &Player{
		synth:    NewSynth(sink.Config().SampleRate),
		sink:     sink,
		profiles: profiles,
		cueDur:   cfg.CueDuration,
		volume:   cfg.Volume,
	}
}

// OnEmotionChange plays a short cue in the new mood's note range. It
// is a no-op when the mood did not change; the returned cue is nil in
// that case.
func (p *Player) OnEmotionChange(ctx context.Context, from, to emotion.Emotion) (*Cue, error) {
	if from == to {
		return nil, nil
	}
	profile, ok := p.profiles[to]
	if !ok {
		return nil, fmt.Errorf("no profile for emotion %s", to)
	}

	low, high := profile.NoteLow, profile.NoteHigh
	if high < low {
		low, high = high, low
	}
	freq := low + rand.Float64()*(high-low)

	samples := p.synth.RenderNote(freq, p.cueDur, p.volume)
	if err := p.write(ctx, samples); err != nil {
		return nil, err
	}

	cue := &Cue{Emotion: to.String(), Frequency: freq, Duration: p.cueDur}
	log.Debug("mood cue played",
		"from", from.String(),
		"to", to.String(),
		"frequency", freq)
	return cue, nil
}

// PlayMelody renders and writes the melody, honoring ctx between
// chunks so playback can be cut short.
func (p *Player) PlayMelody(ctx context.Context, m Melody) error {
	log.Info("playing melody", "name", m.Name, "tempo", m.Tempo, "duration", m.Duration())
	return p.write(ctx, p.synth.RenderMelody(m, p.volume))
}

// write sends samples to the sink in sink-sized chunks.
func (p *Player) write(ctx context.Context, samples []int16) error {
	cfg := p.sink.Config()
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(samples)
	}
	for start := 0; start < len(samples); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}
		chunk := audioio.AudioChunk{
			Samples:    samples[start:end],
			SampleRate: cfg.SampleRate,
			Channels:   1,
		}
		if err := p.sink.Write(ctx, chunk); err != nil {
			return fmt.Errorf("tone write: %w", err)
		}
	}
	return nil
}
