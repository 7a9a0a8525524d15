// Groove - audio-reactive choreography daemon for the Reachy Mini.
// Listens to ambient music, classifies the mood, and answers with head
// sway, antenna gestures, and synthesized tones until stopped.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/reachy-groove/internal/config"
	"github.com/teslashibe/reachy-groove/internal/log"
	"github.com/teslashibe/reachy-groove/pkg/audioio"
	"github.com/teslashibe/reachy-groove/pkg/motion"
	"github.com/teslashibe/reachy-groove/pkg/pipeline"
	"github.com/teslashibe/reachy-groove/pkg/web"
)

func main() {
	cfg := parseFlags()
	log.Init(cfg.LogLevel)

	source, err := buildSource(cfg)
	if err != nil {
		log.Error("audio source unavailable", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	sink := buildSink(cfg)
	if sink != nil {
		defer sink.Close()
	}

	session, err := pipeline.NewSession(pipeline.Options{
		Config:   cfg,
		Source:   source,
		Executor: buildExecutor(cfg),
		Sink:     sink,
	})
	if err != nil {
		log.Error("session setup failed", "error", err)
		os.Exit(1)
	}

	var server *web.Server
	if cfg.Web.Enabled {
		server = web.NewServer(cfg.Web.Addr, session)
		log.Tee(server.SlogHandler())
		server.StartAsync()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = session.Run(ctx)
	if server != nil {
		if shutdownErr := server.Shutdown(); shutdownErr != nil {
			log.Warn("dashboard shutdown failed", "error", shutdownErr)
		}
	}
	if err != nil {
		log.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags loads the configuration and applies command line overrides.
func parseFlags() *config.Config {
	configPath := flag.String("config", "", "path to a YAML config file")
	audioBackend := flag.String("audio", "", "audio backend: auto, portaudio, rtp, or mock")
	device := flag.String("device", "", "capture device name for the portaudio backend")
	motionBackend := flag.String("motion", "", "motion backend: daemon or nop")
	daemonURL := flag.String("daemon-url", "", "reachy daemon base URL")
	httpAddr := flag.String("http", "", "dashboard listen address")
	noWeb := flag.Bool("no-web", false, "disable the web dashboard")
	noTone := flag.Bool("no-tone", false, "disable tone playback")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, or error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *audioBackend != "" {
		cfg.Audio.Backend = *audioBackend
	}
	if *device != "" {
		cfg.Audio.Device = *device
	}
	if *motionBackend != "" {
		cfg.Motion.Backend = *motionBackend
	}
	if *daemonURL != "" {
		cfg.Motion.DaemonURL = *daemonURL
	}
	if *httpAddr != "" {
		cfg.Web.Addr = *httpAddr
	}
	if *noWeb {
		cfg.Web.Enabled = false
	}
	if *noTone {
		cfg.Tone.Enabled = false
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// buildSource opens the configured audio source. An explicitly
// requested mock backend doubles as demo mode and generates an
// energetic test track instead of silence.
func buildSource(cfg *config.Config) (audioio.Source, error) {
	acfg := audioio.Config{
		Backend:       audioio.Backend(cfg.Audio.Backend),
		SampleRate:    cfg.Audio.SampleRate,
		Channels:      cfg.Audio.Channels,
		ChunkSize:     cfg.Audio.ChunkSize,
		Device:        cfg.Audio.Device,
		RTPListenAddr: cfg.Audio.RTPListenAddr,
	}
	if acfg.Backend == audioio.BackendMock {
		return audioio.NewMockSource(acfg, log.L(),
			audioio.WithSineWave(800, 0.8),
			audioio.WithBeat(140, 1.0),
		), nil
	}
	return audioio.NewSource(acfg, log.L())
}

// buildSink opens the playback sink for tone cues, or returns nil when
// tones are disabled or no sink exists for the backend. Running without
// tones is fine; the pipeline just stays quiet.
func buildSink(cfg *config.Config) audioio.Sink {
	if !cfg.Tone.Enabled {
		return nil
	}
	sink, err := audioio.NewSink(audioio.Config{
		Backend:    audioio.Backend(cfg.Audio.Backend),
		SampleRate: cfg.Tone.SampleRate,
		Channels:   1,
		ChunkSize:  cfg.Audio.ChunkSize,
	}, log.L())
	if err != nil {
		log.Warn("tone playback unavailable", "error", err)
		return nil
	}
	return sink
}

// buildExecutor picks the motion backend.
func buildExecutor(cfg *config.Config) motion.Executor {
	if cfg.Motion.Backend == "nop" {
		return motion.NewNopExecutor()
	}
	return motion.NewDaemonExecutor(cfg.Motion.DaemonURL)
}
