// Package config provides configuration loading for reachy-groove commands.
// Values resolve in order: defaults, then YAML file, then environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a configuration value fails validation.
var ErrInvalid = errors.New("config: invalid value")

// Default endpoints and cadences.
const (
	DefaultDaemonURL = "http://localhost:8000"
	DefaultHTTPAddr  = ":8090"
)

// Config is the top-level daemon configuration.
type Config struct {
	LogLevel string `yaml:"log_level" json:"log_level"`

	Audio      AudioConfig      `yaml:"audio" json:"audio"`
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`
	Motion     MotionConfig     `yaml:"motion" json:"motion"`
	Gesture    GestureConfig    `yaml:"gesture" json:"gesture"`
	Tone       ToneConfig       `yaml:"tone" json:"tone"`
	Web        WebConfig        `yaml:"web" json:"web"`
}

// AudioConfig selects and shapes the audio input.
type AudioConfig struct {
	// Backend: "auto", "portaudio", "rtp", or "mock".
	Backend       string  `yaml:"backend" json:"backend"`
	Device        string  `yaml:"device" json:"device"`
	SampleRate    int     `yaml:"sample_rate" json:"sample_rate"`
	Channels      int     `yaml:"channels" json:"channels"`
	ChunkSize     int     `yaml:"chunk_size" json:"chunk_size"`
	WindowSeconds float64 `yaml:"window_seconds" json:"window_seconds"`
	RTPListenAddr string  `yaml:"rtp_listen_addr" json:"rtp_listen_addr"`
}

// ClassifierConfig holds the classification cadence, thresholds, and
// the debounce rules for accepting a new emotion.
type ClassifierConfig struct {
	IntervalSeconds float64 `yaml:"interval_seconds" json:"interval_seconds"`
	MinConfidence   float64 `yaml:"min_confidence" json:"min_confidence"`
	HoldWindows     int     `yaml:"hold_windows" json:"hold_windows"`
	TempoSlow       float64 `yaml:"tempo_slow" json:"tempo_slow"`
	TempoFast       float64 `yaml:"tempo_fast" json:"tempo_fast"`
	EnergyLow       float64 `yaml:"energy_low" json:"energy_low"`
	EnergyHigh      float64 `yaml:"energy_high" json:"energy_high"`
	ValenceSplit    float64 `yaml:"valence_split" json:"valence_split"`
}

// MotionConfig shapes how motion commands are produced and dispatched.
type MotionConfig struct {
	// Backend: "daemon" or "nop".
	Backend    string  `yaml:"backend" json:"backend"`
	DaemonURL  string  `yaml:"daemon_url" json:"daemon_url"`
	Smoothing  float64 `yaml:"smoothing" json:"smoothing"`
	MaxStepRad float64 `yaml:"max_step_rad" json:"max_step_rad"`
}

// GestureConfig holds the choreography cadence.
type GestureConfig struct {
	IntervalSeconds float64 `yaml:"interval_seconds" json:"interval_seconds"`
}

// ToneConfig shapes tone synthesis and playback.
type ToneConfig struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	Volume     float64 `yaml:"volume" json:"volume"`
	CueSeconds float64 `yaml:"cue_seconds" json:"cue_seconds"`
	SampleRate int     `yaml:"sample_rate" json:"sample_rate"`
}

// WebConfig holds the dashboard server settings.
type WebConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// DefaultConfig returns the configuration used when no file or
// environment overrides are present.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Backend:       "auto",
			SampleRate:    22050,
			Channels:      1,
			ChunkSize:     2048,
			WindowSeconds: 3.0,
			RTPListenAddr: ":4003",
		},
		Classifier: ClassifierConfig{
			IntervalSeconds: 3.0,
			MinConfidence:   0.4,
			HoldWindows:     2,
			TempoSlow:       90,
			TempoFast:       130,
			EnergyLow:       0.3,
			EnergyHigh:      0.7,
			ValenceSplit:    0.5,
		},
		Motion: MotionConfig{
			Backend:    "daemon",
			DaemonURL:  DefaultDaemonURL,
			Smoothing:  0.3,
			MaxStepRad: 0.05,
		},
		Gesture: GestureConfig{
			IntervalSeconds: 2.0,
		},
		Tone: ToneConfig{
			Enabled:    true,
			Volume:     0.3,
			CueSeconds: 0.3,
			SampleRate: 22050,
		},
		Web: WebConfig{
			Enabled: true,
			Addr:    DefaultHTTPAddr,
		},
	}
}

// Load reads configuration from an optional YAML file, applies
// environment overrides, and validates the result. An empty path
// loads defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the configuration.
func (c *Config) applyEnv() {
	c.LogLevel = envString("GROOVE_LOG_LEVEL", c.LogLevel)
	c.Audio.Backend = envString("GROOVE_AUDIO_BACKEND", c.Audio.Backend)
	c.Audio.Device = envString("GROOVE_AUDIO_DEVICE", c.Audio.Device)
	c.Motion.DaemonURL = envString("GROOVE_DAEMON_URL", c.Motion.DaemonURL)
	c.Web.Addr = envString("GROOVE_HTTP_ADDR", c.Web.Addr)
}

// Validate checks the configuration, returning a wrapped ErrInvalid
// describing the first problem found.
func (c *Config) Validate() error {
	switch c.Audio.Backend {
	case "auto", "portaudio", "rtp", "mock":
	default:
		return fmt.Errorf("%w: audio.backend %q (want auto, portaudio, rtp, or mock)", ErrInvalid, c.Audio.Backend)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("%w: audio.sample_rate must be positive, got %d", ErrInvalid, c.Audio.SampleRate)
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		return fmt.Errorf("%w: audio.channels must be 1 or 2, got %d", ErrInvalid, c.Audio.Channels)
	}
	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("%w: audio.chunk_size must be positive, got %d", ErrInvalid, c.Audio.ChunkSize)
	}
	if c.Audio.WindowSeconds <= 0 {
		return fmt.Errorf("%w: audio.window_seconds must be positive, got %g", ErrInvalid, c.Audio.WindowSeconds)
	}
	windowSamples := int(c.Audio.WindowSeconds * float64(c.Audio.SampleRate))
	if c.Audio.ChunkSize > windowSamples {
		return fmt.Errorf("%w: audio.chunk_size %d exceeds the rolling window (%d samples)", ErrInvalid, c.Audio.ChunkSize, windowSamples)
	}

	if c.Classifier.IntervalSeconds <= 0 {
		return fmt.Errorf("%w: classifier.interval_seconds must be positive, got %g", ErrInvalid, c.Classifier.IntervalSeconds)
	}
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		return fmt.Errorf("%w: classifier.min_confidence must be in [0,1], got %g", ErrInvalid, c.Classifier.MinConfidence)
	}
	if c.Classifier.HoldWindows < 1 {
		return fmt.Errorf("%w: classifier.hold_windows must be at least 1, got %d", ErrInvalid, c.Classifier.HoldWindows)
	}
	if c.Classifier.TempoSlow >= c.Classifier.TempoFast {
		return fmt.Errorf("%w: classifier tempo thresholds out of order (slow %g >= fast %g)", ErrInvalid, c.Classifier.TempoSlow, c.Classifier.TempoFast)
	}
	if c.Classifier.EnergyLow >= c.Classifier.EnergyHigh {
		return fmt.Errorf("%w: classifier energy thresholds out of order (low %g >= high %g)", ErrInvalid, c.Classifier.EnergyLow, c.Classifier.EnergyHigh)
	}
	if c.Classifier.ValenceSplit < 0 || c.Classifier.ValenceSplit > 1 {
		return fmt.Errorf("%w: classifier.valence_split must be in [0,1], got %g", ErrInvalid, c.Classifier.ValenceSplit)
	}

	switch c.Motion.Backend {
	case "daemon", "nop":
	default:
		return fmt.Errorf("%w: motion.backend %q (want daemon or nop)", ErrInvalid, c.Motion.Backend)
	}
	if c.Motion.Backend == "daemon" && c.Motion.DaemonURL == "" {
		return fmt.Errorf("%w: motion.daemon_url required for the daemon backend", ErrInvalid)
	}
	if c.Motion.Smoothing <= 0 || c.Motion.Smoothing > 1 {
		return fmt.Errorf("%w: motion.smoothing must be in (0,1], got %g", ErrInvalid, c.Motion.Smoothing)
	}
	if c.Motion.MaxStepRad <= 0 {
		return fmt.Errorf("%w: motion.max_step_rad must be positive, got %g", ErrInvalid, c.Motion.MaxStepRad)
	}

	if c.Gesture.IntervalSeconds <= 0 {
		return fmt.Errorf("%w: gesture.interval_seconds must be positive, got %g", ErrInvalid, c.Gesture.IntervalSeconds)
	}

	if c.Tone.Volume < 0 || c.Tone.Volume > 1 {
		return fmt.Errorf("%w: tone.volume must be in [0,1], got %g", ErrInvalid, c.Tone.Volume)
	}
	if c.Tone.CueSeconds <= 0 {
		return fmt.Errorf("%w: tone.cue_seconds must be positive, got %g", ErrInvalid, c.Tone.CueSeconds)
	}
	if c.Tone.SampleRate <= 0 {
		return fmt.Errorf("%w: tone.sample_rate must be positive, got %d", ErrInvalid, c.Tone.SampleRate)
	}

	if c.Web.Enabled && c.Web.Addr == "" {
		return fmt.Errorf("%w: web.addr required when the dashboard is enabled", ErrInvalid)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
