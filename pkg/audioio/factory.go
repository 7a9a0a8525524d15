package audioio

import (
	"fmt"
	"log/slog"
	"runtime"
)

// NewSource creates a new audio source with the given configuration.
// If cfg.Backend is BackendAuto, the best available backend is selected.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == BackendAuto {
		backend = detectBestBackend()
	}

	logger.Info("creating audio source",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"chunk_size", cfg.ChunkSize,
	)

	switch backend {
	case BackendMock:
		return NewMockSource(cfg, logger), nil
	case BackendPortAudio:
		src, err := newPortAudioSource(cfg, logger)
		if err != nil && cfg.Backend == BackendAuto {
			logger.Warn("portaudio unavailable, falling back to mock source", "error", err)
			return NewMockSource(cfg, logger), nil
		}
		return src, err
	case BackendRTP:
		return newRTPSource(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, backend)
	}
}

// NewSink creates a new audio sink with the given configuration.
// If cfg.Backend is BackendAuto, the best available backend is selected.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == BackendAuto {
		backend = detectBestBackend()
	}

	logger.Info("creating audio sink",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
	)

	switch backend {
	case BackendMock:
		return NewMockSink(cfg, logger), nil
	case BackendPortAudio:
		snk, err := newPortAudioSink(cfg, logger)
		if err != nil && cfg.Backend == BackendAuto {
			logger.Warn("portaudio unavailable, falling back to mock sink", "error", err)
			return NewMockSink(cfg, logger), nil
		}
		return snk, err
	case BackendRTP:
		return nil, fmt.Errorf("%w: rtp has no playback side", ErrUnsupportedBackend)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, backend)
	}
}

// detectBestBackend returns the best available backend for this platform.
func detectBestBackend() Backend {
	switch runtime.GOOS {
	case "linux", "darwin", "windows":
		return BackendPortAudio
	default:
		return BackendMock
	}
}

// AvailableBackends returns the list of backends usable on this platform.
func AvailableBackends() []Backend {
	backends := []Backend{BackendMock, BackendRTP}

	switch runtime.GOOS {
	case "linux", "darwin", "windows":
		backends = append(backends, BackendPortAudio)
	}

	return backends
}
