// Package audioio provides audio capture, playback, and buffering for the
// music-reactive pipeline.
//
// Supported backends:
//   - PortAudio - microphone capture and tone playback on real hardware
//   - RTP       - Opus-over-RTP network ingest from a remote sender
//   - Mock      - synthetic music generator for CI and demos
//
// The backend is selected via configuration; "auto" picks PortAudio on
// platforms that have it and falls back to the mock generator elsewhere.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto automatically selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendPortAudio uses PortAudio for device capture and playback.
	BackendPortAudio Backend = "portaudio"
	// BackendRTP receives Opus-over-RTP audio on a UDP socket.
	BackendRTP Backend = "rtp"
	// BackendMock uses a synthetic generator for testing.
	BackendMock Backend = "mock"
)

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto"
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 22050
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// ChunkSize is the number of samples per captured chunk.
	// Default: 2048 (~93ms at 22050 Hz)
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// Device is the capture device name for the PortAudio backend.
	// Empty selects the system default input.
	Device string `yaml:"device" json:"device"`

	// RTPListenAddr is the UDP listen address for the RTP backend.
	RTPListenAddr string `yaml:"rtp_listen_addr" json:"rtp_listen_addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendAuto,
		SampleRate:    22050,
		Channels:      1,
		ChunkSize:     2048,
		Device:        "",
		RTPListenAddr: ":4003",
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	return nil
}

// ChunkDuration returns the wall-clock duration of one chunk.
func (c *Config) ChunkDuration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.ChunkSize) / float64(c.SampleRate) * float64(time.Second))
}

// ChunkBytes returns the size of a chunk in bytes (int16 samples).
func (c *Config) ChunkBytes() int {
	return c.ChunkSize * c.Channels * 2
}
