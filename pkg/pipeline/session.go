// Package pipeline wires audio capture, feature extraction, emotion
// classification, and gesture/tone output into one running session.
//
// A Session owns four goroutines: an ingest writer feeding the rolling
// sample window, a reactive loop driving head motion on every chunk, a
// classification loop re-evaluating the mood every few seconds, and a
// gesture loop performing one choreography move per interval. The mood
// is shared through an atomic snapshot: only the classification loop
// writes it, the other loops read it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/reachy-groove/internal/config"
	"github.com/teslashibe/reachy-groove/internal/log"
	"github.com/teslashibe/reachy-groove/pkg/audioio"
	"github.com/teslashibe/reachy-groove/pkg/emotion"
	"github.com/teslashibe/reachy-groove/pkg/feature"
	"github.com/teslashibe/reachy-groove/pkg/gesture"
	"github.com/teslashibe/reachy-groove/pkg/motion"
	"github.com/teslashibe/reachy-groove/pkg/resilience"
	"github.com/teslashibe/reachy-groove/pkg/tone"
)

const (
	// chunkQueueDepth buffers chunks between ingest and the reactive
	// loop. When the reactive loop falls behind, chunks are dropped
	// rather than queued; the rolling window still sees all of them.
	chunkQueueDepth = 8

	// breathingFloor is the reactive amplitude below which the idle
	// breathing animation takes over from music-driven motion.
	breathingFloor = 0.05
)

// Options carries the session's collaborators. Config, Source, and
// Executor are required. Sink enables tone playback when present;
// Watch overrides the daemon connectivity watch the session would
// otherwise build itself.
type Options struct {
	Config   *config.Config
	Source   audioio.Source
	Executor motion.Executor
	Sink     audioio.Sink
	Watch    *motion.Watch
}

// Session runs the full listening pipeline against one audio source.
type Session struct {
	cfg       *config.Config
	source    audioio.Source
	ring      *audioio.Ring
	reactive  *feature.Reactive
	detector  *emotion.Detector
	mapper    *motion.Mapper
	safe      *motion.SafeExecutor
	sched     *gesture.Scheduler
	tones     *tone.Player
	sink      audioio.Sink
	watch     *motion.Watch
	breathing *gesture.BreathingMove
	profiles  map[emotion.Emotion]emotion.Profile

	chunkPeriod time.Duration
	chunkCh     chan []int16

	state       atomic.Int32
	mood        atomic.Pointer[emotion.State]
	snapshot    atomic.Pointer[feature.Snapshot]
	aggregate   atomic.Pointer[feature.Aggregate]
	lastGesture atomic.Pointer[gesture.Result]
	lastCue     atomic.Pointer[tone.Cue]

	mu      sync.Mutex
	running bool
	started time.Time
	runCtx  context.Context
	cancel  context.CancelFunc
	fatal   error

	fatalCh   chan struct{}
	stopping  chan struct{}
	fatalOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup

	chunks      atomic.Int64
	dropped     atomic.Int64
	windows     atomic.Int64
	skips       atomic.Int64
	transitions atomic.Int64
}

// NewSession validates the configuration and assembles the pipeline.
// It does not start capturing; use Start or Run.
func NewSession(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("%w: config required", config.ErrInvalid)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: audio source required", config.ErrInvalid)
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("%w: motion executor required", config.ErrInvalid)
	}

	// Refuse to run with an incomplete choreography table: every mood
	// needs a profile, and every profile gesture must exist.
	profiles := emotion.DefaultProfiles()
	registry := gesture.DefaultRegistry()
	for _, e := range emotion.Emotions() {
		profile, ok := profiles[e]
		if !ok {
			return nil, fmt.Errorf("%w: no profile for emotion %s", config.ErrInvalid, e)
		}
		for _, name := range profile.Gestures {
			if !registry.Has(name) {
				return nil, fmt.Errorf("%w: %s profile references unknown gesture %q", config.ErrInvalid, e, name)
			}
		}
	}

	safe := motion.NewSafeExecutor(opts.Executor, cfg.Motion.MaxStepRad)

	watch := opts.Watch
	if watch == nil && cfg.Motion.Backend == "daemon" {
		watch = motion.NewWatch(cfg.Motion.DaemonURL, func() {
			log.Info("daemon reachable again, closing the motion breaker")
			safe.Breaker().Reset()
		})
	}

	var tones *tone.Player
	var sink audioio.Sink
	if opts.Sink != nil && cfg.Tone.Enabled {
		sink = opts.Sink
		tones = tone.NewPlayer(opts.Sink, profiles, tone.PlayerConfig{
			CueDuration: time.Duration(cfg.Tone.CueSeconds * float64(time.Second)),
			Volume:      cfg.Tone.Volume,
		})
	}

	srcCfg := opts.Source.Config()
	window := time.Duration(cfg.Audio.WindowSeconds * float64(time.Second))

	s := &Session{
		cfg:       cfg,
		source:    opts.Source,
		ring:      audioio.NewRing(srcCfg.SampleRate, window),
		reactive:  feature.NewReactive(),
		mapper:    motion.NewMapper(cfg.Motion.Smoothing),
		safe:      safe,
		tones:     tones,
		sink:      sink,
		watch:     watch,
		breathing: gesture.NewBreathingMove(),
		profiles:  profiles,
		chunkPeriod: time.Duration(
			float64(srcCfg.ChunkSize) / float64(srcCfg.SampleRate) * float64(time.Second)),
		chunkCh:  make(chan []int16, chunkQueueDepth),
		fatalCh:  make(chan struct{}),
		stopping: make(chan struct{}),
	}

	s.detector = emotion.NewDetector(emotion.Thresholds{
		TempoSlow:    cfg.Classifier.TempoSlow,
		TempoFast:    cfg.Classifier.TempoFast,
		EnergyLow:    cfg.Classifier.EnergyLow,
		EnergyHigh:   cfg.Classifier.EnergyHigh,
		ValenceSplit: cfg.Classifier.ValenceSplit,
	}, cfg.Classifier.MinConfidence, cfg.Classifier.HoldWindows)

	s.sched = gesture.NewScheduler(registry, gesture.NewPlayer(safe), profiles)

	st := s.detector.State()
	s.mood.Store(&st)
	s.state.Store(int32(StateIdle))
	return s, nil
}

// Start opens the audio source, retrying while the device is
// unavailable, and launches the pipeline loops.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("pipeline: session already started")
	}
	if State(s.state.Load()) == StateStopped {
		s.mu.Unlock()
		return errors.New("pipeline: session already stopped")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.runCtx = runCtx
	s.cancel = cancel
	s.running = true
	s.started = time.Now()
	s.mu.Unlock()

	if err := s.openSource(runCtx); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		cancel()
		return err
	}

	if s.sink != nil {
		if err := s.sink.Start(runCtx); err != nil {
			log.Warn("tone sink failed to start, cues will be dropped", "error", err)
		}
	}

	s.setState(StateListening)
	if s.watch != nil {
		s.watch.Start(runCtx)
	}

	s.wg.Add(4)
	go s.ingestLoop(runCtx)
	go s.reactiveLoop(runCtx)
	go s.classifyLoop(runCtx)
	go s.gestureLoop(runCtx)

	log.Info("pipeline started",
		"source", s.source.Name(),
		"sample_rate", s.source.Config().SampleRate,
		"chunk_period", s.chunkPeriod,
		"classify_interval", s.classifyInterval(),
		"gesture_interval", s.gestureInterval())
	return nil
}

// Run starts the session and blocks until the context is cancelled,
// the audio device is lost for good, or Stop is called from elsewhere,
// then stops everything.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-s.fatalCh:
	case <-s.stopping:
	}
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

// Stop shuts the session down: loops exit, gesture playback is
// abandoned, the audio device is released, and exactly one
// return-to-neutral command is issued. Stop is idempotent.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopping)
		log.Info("pipeline stopping")

		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}

		s.source.Stop()
		s.wg.Wait()
		s.sched.Wait()

		if s.watch != nil {
			s.watch.Stop()
		}
		if s.sink != nil {
			if err := s.sink.Stop(); err != nil {
				log.Debug("tone sink stop failed", "error", err)
			}
		}

		if err := s.safe.Neutral(); err != nil {
			log.Warn("return to neutral failed", "error", err)
		}

		s.setState(StateStopped)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		log.Info("pipeline stopped")
	})
}

// openSource starts the audio source, retrying with backoff while the
// device reports unavailable.
func (s *Session) openSource(ctx context.Context) error {
	retryCfg := resilience.DeviceRetryConfig()
	retryCfg.IsRetryable = func(err error) bool {
		return errors.Is(err, audioio.ErrDeviceUnavailable)
	}
	return resilience.Retry(ctx, retryCfg, func() error {
		return s.source.Start(ctx)
	})
}

// ingestLoop drains the source into the rolling window and hands
// chunks to the reactive loop. If the stream dies while the session is
// still running, the device is reopened with backoff; giving up is
// fatal for the session.
func (s *Session) ingestLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		stream := s.source.Stream()
		for chunk := range stream {
			samples := chunk.Mono()
			s.ring.Push(samples)
			s.chunks.Add(1)

			select {
			case s.chunkCh <- samples:
			default:
				s.dropped.Add(1)
			}
		}

		if ctx.Err() != nil {
			return
		}

		// The device went away mid-session.
		log.Warn("audio stream closed, retrying device", "source", s.source.Name())
		s.setState(StateIdle)
		if err := s.openSource(ctx); err != nil {
			if ctx.Err() == nil {
				s.fail(fmt.Errorf("audio device lost: %w", err))
			}
			return
		}
		log.Info("audio device recovered", "source", s.source.Name())
		s.setState(StateListening)
	}
}

// reactiveLoop turns each chunk into a head motion command. While a
// gesture is playing the reactive stream yields; in silence with a
// Neutral mood the breathing animation runs instead.
func (s *Session) reactiveLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case samples := <-s.chunkCh:
			snap := s.reactive.Process(samples)
			s.snapshot.Store(&snap)

			if s.sched.Playing() {
				continue
			}

			mood := s.Mood()
			if snap.Amplitude < breathingFloor && mood.Emotion == emotion.Neutral {
				s.dispatchBreathing(snap.At)
				continue
			}

			head := s.mapper.Map(snap, s.profiles[mood.Emotion])
			err := s.safe.Dispatch(motion.Command{
				Head:     head,
				Duration: 2 * s.chunkPeriod,
			})
			if err != nil && !errors.Is(err, resilience.ErrOpen) {
				log.Debug("reactive dispatch failed", "error", err)
			}
		}
	}
}

// dispatchBreathing sends one pose of the idle breathing animation.
func (s *Session) dispatchBreathing(now time.Time) {
	s.mu.Lock()
	elapsed := now.Sub(s.started)
	s.mu.Unlock()

	pose := s.breathing.Evaluate(elapsed)
	antennas := pose.Antennas
	err := s.safe.Dispatch(motion.Command{
		Head:     pose.Head,
		Antennas: &antennas,
		Duration: 2 * s.chunkPeriod,
	})
	if err != nil && !errors.Is(err, resilience.ErrOpen) {
		log.Debug("breathing dispatch failed", "error", err)
	}
}

// classifyLoop re-evaluates the mood over the rolling window. A window
// that cannot be analyzed skips the cycle and keeps the previous mood.
func (s *Session) classifyLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.classifyInterval())
	defer ticker.Stop()

	window := time.Duration(s.cfg.Audio.WindowSeconds * float64(time.Second))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// While ingest is reopening the device the ring only
			// holds stale audio; hold the mood until capture resumes.
			if State(s.state.Load()) == StateIdle {
				continue
			}

			samples := s.ring.ReadWindow(window)
			agg, err := feature.Analyze(samples, s.ring.SampleRate())
			if err != nil {
				s.skips.Add(1)
				log.Debug("classification cycle skipped", "error", err)
				continue
			}
			s.aggregate.Store(&agg)
			s.windows.Add(1)

			prev := s.detector.State().Emotion
			st, changed := s.detector.Observe(agg.Tempo, agg.Energy, agg.Valence)
			s.mood.Store(&st)

			// The state follows the committed mood on every cycle, so
			// a device recovery lands back in reactive even when the
			// mood itself never changed.
			if st.Emotion == emotion.Neutral {
				s.setState(StateListening)
			} else {
				s.setState(StateReactive)
			}

			if !changed {
				continue
			}

			s.transitions.Add(1)
			log.Info("mood changed",
				"from", prev.String(),
				"to", st.Emotion.String(),
				"confidence", st.Confidence,
				"tempo", agg.Tempo,
				"energy", agg.Energy,
				"valence", agg.Valence)

			if s.tones != nil {
				cue, err := s.tones.OnEmotionChange(ctx, prev, st.Emotion)
				if err != nil {
					log.Warn("mood cue failed", "error", err)
				} else if cue != nil {
					s.lastCue.Store(cue)
				}
			}
		}
	}
}

// gestureLoop performs one choreography move per interval for the
// current mood.
func (s *Session) gestureLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.gestureInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if State(s.state.Load()) == StateIdle {
				continue
			}
			res := s.sched.OnTick(ctx, s.Mood().Emotion)
			if !res.Skipped {
				s.lastGesture.Store(&res)
			}
		}
	}
}

// fail records the first fatal error and wakes Run.
func (s *Session) fail(err error) {
	s.fatalOnce.Do(func() {
		s.mu.Lock()
		s.fatal = err
		s.mu.Unlock()
		log.Error("pipeline fatal", "error", err)
		close(s.fatalCh)
	})
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// State returns the session lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Motion returns the safe executor guarding the robot.
func (s *Session) Motion() *motion.SafeExecutor {
	return s.safe
}

// Perform plays one gesture by name at the current mood's speed,
// refusing while another gesture is in flight or the pipeline is not
// running.
func (s *Session) Perform(name string) gesture.Result {
	s.mu.Lock()
	running := s.running
	ctx := s.runCtx
	s.mu.Unlock()
	if !running {
		return gesture.Result{Skipped: true, Reason: "pipeline not running"}
	}

	speed := 1.0
	if profile, ok := s.profiles[s.Mood().Emotion]; ok && profile.Speed > 0 {
		speed = profile.Speed
	}
	res := s.sched.Trigger(ctx, name, speed)
	if !res.Skipped {
		s.lastGesture.Store(&res)
	}
	return res
}

// Mood returns the current committed emotion state.
func (s *Session) Mood() emotion.State {
	return *s.mood.Load()
}

// Snapshot returns the latest reactive features, or nil before the
// first chunk.
func (s *Session) Snapshot() *feature.Snapshot {
	return s.snapshot.Load()
}

// Aggregate returns the latest window features, or nil before the
// first classified window.
func (s *Session) Aggregate() *feature.Aggregate {
	return s.aggregate.Load()
}

func (s *Session) classifyInterval() time.Duration {
	return time.Duration(s.cfg.Classifier.IntervalSeconds * float64(time.Second))
}

func (s *Session) gestureInterval() time.Duration {
	return time.Duration(s.cfg.Gesture.IntervalSeconds * float64(time.Second))
}
