package audioio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockSource is a synthetic audio source for testing and demos.
// It generates silence, a plain tone, or music-like audio with beat
// pulses and frequency sweeps.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan AudioChunk
	stopCh   chan struct{}

	// Stats
	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64

	// Synthesis state
	phase     float64 // radians, carried across chunks
	clock     float64 // seconds since Start
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0
	beatHz    float64 // pulse rate, 0 = steady tone
	beatDepth float64 // 0.0 to 1.0
	sweepTo   float64 // glide target Hz, 0 = fixed pitch
	sweepSec  float64 // glide round-trip period
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a steady sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithBeat superimposes amplitude pulses at the given tempo. Depth 1.0
// silences the tone between pulses; 0.0 disables the effect.
func WithBeat(bpm, depth float64) MockSourceOption {
	return func(m *MockSource) {
		m.beatHz = bpm / 60.0
		m.beatDepth = math.Max(0, math.Min(1, depth))
	}
}

// WithSweep glides the pitch between the base frequency and target,
// completing a round trip every period.
func WithSweep(target float64, period time.Duration) MockSourceOption {
	return func(m *MockSource) {
		m.sweepTo = target
		m.sweepSec = period.Seconds()
	}
}

// NewMockSource creates a new mock audio source.
// With no options it generates silence.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockSource{
		cfg:       cfg,
		logger:    logger,
		streamCh:  make(chan AudioChunk, 10),
		stopCh:    make(chan struct{}),
		frequency: 0,
		amplitude: 0.5,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start begins generating audio.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.streamCh = make(chan AudioChunk, 10)

	go m.generateLoop(ctx, m.streamCh, m.stopCh)

	m.logger.Info("mock audio source started",
		"sample_rate", m.cfg.SampleRate,
		"frequency", m.frequency,
		"beat_hz", m.beatHz,
	)

	return nil
}

// generateLoop owns out: it is the only sender and closes it on exit,
// so Stop never races a send against the close.
func (m *MockSource) generateLoop(ctx context.Context, out chan AudioChunk, stop chan struct{}) {
	defer close(out)

	ticker := time.NewTicker(m.cfg.ChunkDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Stop()
			return
		case <-stop:
			return
		case <-ticker.C:
			chunk := m.generateChunk()
			select {
			case out <- chunk:
				m.chunksRead.Add(1)
				m.samplesRead.Add(int64(len(chunk.Samples)))
			default:
				m.overruns.Add(1)
				m.logger.Debug("mock source: buffer full, dropping chunk")
			}
		}
	}
}

func (m *MockSource) generateChunk() AudioChunk {
	samples := make([]int16, m.cfg.ChunkSize*m.cfg.Channels)
	dt := 1.0 / float64(m.cfg.SampleRate)

	if m.frequency > 0 {
		for i := 0; i < m.cfg.ChunkSize; i++ {
			freq := m.currentFrequency()

			env := 1.0
			if m.beatHz > 0 && m.beatDepth > 0 {
				// Half-sine pulses at each beat: loud through most of
				// the beat so the window RMS stays high, quiet between
				// beats so onset flux still marks the tempo.
				pulse := math.Cos(2 * math.Pi * m.beatHz * m.clock)
				if pulse < 0 {
					pulse = 0
				}
				env = (1 - m.beatDepth) + m.beatDepth*pulse
			}

			value := m.amplitude * env * math.Sin(m.phase)
			sample := int16(value * 32767)

			for ch := 0; ch < m.cfg.Channels; ch++ {
				samples[i*m.cfg.Channels+ch] = sample
			}

			m.phase += 2 * math.Pi * freq * dt
			if m.phase >= 2*math.Pi {
				m.phase -= 2 * math.Pi
			}
			m.clock += dt
		}
	} else {
		// Silence still advances the clock.
		m.clock += float64(m.cfg.ChunkSize) * dt
	}

	return AudioChunk{
		Samples:    samples,
		SampleRate: m.cfg.SampleRate,
		Channels:   m.cfg.Channels,
	}
}

// currentFrequency returns the instantaneous pitch, following the
// triangular glide when a sweep is configured.
func (m *MockSource) currentFrequency() float64 {
	if m.sweepTo <= 0 || m.sweepSec <= 0 {
		return m.frequency
	}
	pos := math.Mod(m.clock, m.sweepSec) / m.sweepSec
	if pos > 0.5 {
		pos = 1 - pos
	}
	return m.frequency + (m.sweepTo-m.frequency)*2*pos
}

// Stop halts audio generation.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	m.running = false
	close(m.stopCh)

	m.logger.Info("mock audio source stopped")

	return nil
}

// Read reads the next audio chunk.
func (m *MockSource) Read(ctx context.Context) (AudioChunk, error) {
	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-m.streamCh:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Stream returns the audio chunk channel.
func (m *MockSource) Stream() <-chan AudioChunk {
	return m.streamCh
}

// Config returns the audio configuration.
func (m *MockSource) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSource) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockSource) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.Stop()
	return nil
}

// Stats returns source statistics.
func (m *MockSource) Stats() SourceStats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return SourceStats{
		ChunksRead:  m.chunksRead.Load(),
		SamplesRead: m.samplesRead.Load(),
		Overruns:    m.overruns.Load(),
		Running:     running,
		Backend:     "mock",
	}
}

// Ensure MockSource implements SourceWithStats.
var _ SourceWithStats = (*MockSource)(nil)

// MockSink is a mock audio sink for testing.
// It buffers written audio for inspection instead of playing it.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	buffer  []AudioChunk

	// Stats
	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
}

// NewMockSink creates a new mock audio sink.
func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}

	return &MockSink{
		cfg:    cfg,
		logger: logger,
		buffer: make([]AudioChunk, 0, 100),
	}
}

// Start begins accepting audio.
func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}

	m.running = true
	m.logger.Info("mock audio sink started")

	return nil
}

// Stop halts audio acceptance.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = false
	m.logger.Info("mock audio sink stopped")

	return nil
}

// Write accepts an audio chunk.
func (m *MockSink) Write(ctx context.Context, chunk AudioChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.running {
		return io.ErrClosedPipe
	}

	m.buffer = append(m.buffer, chunk)

	m.chunksWritten.Add(1)
	m.samplesWritten.Add(int64(len(chunk.Samples)))

	return nil
}

// Flush simulates waiting for playback with a token delay.
func (m *MockSink) Flush(ctx context.Context) error {
	m.mu.Lock()
	totalSamples := 0
	for _, chunk := range m.buffer {
		totalSamples += len(chunk.Samples)
	}
	m.mu.Unlock()

	if totalSamples > 0 && m.cfg.SampleRate > 0 {
		wait := time.Duration(float64(totalSamples)/float64(m.cfg.SampleRate)*float64(time.Second)) / 100
		if wait > 10*time.Millisecond {
			wait = 10 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil
}

// Clear discards buffered audio.
func (m *MockSink) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buffer = m.buffer[:0]
	m.logger.Debug("mock audio sink cleared")

	return nil
}

// Written returns all samples written so far, concatenated.
// Test helper; not part of the Sink interface.
func (m *MockSink) Written() []int16 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []int16
	for _, chunk := range m.buffer {
		out = append(out, chunk.Samples...)
	}
	return out
}

// Config returns the audio configuration.
func (m *MockSink) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSink) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockSink) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.Stop()
	return nil
}

// Stats returns sink statistics.
func (m *MockSink) Stats() SinkStats {
	m.mu.Lock()
	running := m.running
	buffered := int64(0)
	for _, chunk := range m.buffer {
		buffered += int64(len(chunk.Samples))
	}
	m.mu.Unlock()

	return SinkStats{
		ChunksWritten:   m.chunksWritten.Load(),
		SamplesWritten:  m.samplesWritten.Load(),
		Underruns:       0,
		Running:         running,
		Backend:         "mock",
		BufferedSamples: buffered,
	}
}

// Ensure MockSink implements SinkWithStats.
var _ SinkWithStats = (*MockSink)(nil)
