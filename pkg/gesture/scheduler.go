package gesture

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/teslashibe/reachy-groove/internal/log"
	"github.com/teslashibe/reachy-groove/pkg/emotion"
)

// Result describes one scheduler tick.
type Result struct {
	ID      string `json:"id,omitempty"`
	Gesture string `json:"gesture,omitempty"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// Scheduler performs one gesture per tick, chosen from the active
// mood's set. A tick that arrives while a gesture is still playing is
// skipped, so gestures never overlap. The same gesture is never picked
// twice in a row when the mood offers more than one.
//
// OnTick must be called from a single goroutine.
type Scheduler struct {
	registry *Registry
	player   *Player
	profiles map[emotion.Emotion]emotion.Profile

	lastName string
	playing  atomic.Bool
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler over the given gesture library and
// mood profiles.
func NewScheduler(registry *Registry, player *Player, profiles map[emotion.Emotion]emotion.Profile) *Scheduler {
	return &Scheduler{
		registry: registry,
		player:   player,
		profiles: profiles,
	}
}

// OnTick picks and starts a gesture for the current mood. Playback
// runs in the background; the result reports what was dispatched, or
// why nothing was.
func (s *Scheduler) OnTick(ctx context.Context, current emotion.Emotion) Result {
	profile, ok := s.profiles[current]
	if !ok {
		return Result{Skipped: true, Reason: "no profile for " + current.String()}
	}
	if len(profile.Gestures) == 0 {
		return Result{Skipped: true, Reason: "profile has no gestures"}
	}
	if !s.playing.CompareAndSwap(false, true) {
		log.Debug("gesture tick skipped, previous still playing")
		return Result{Skipped: true, Reason: "gesture in flight"}
	}

	name := s.pick(profile.Gestures)
	move, err := s.registry.Get(name)
	if err != nil {
		s.playing.Store(false)
		log.Warn("gesture lookup failed", "gesture", name, "error", err)
		return Result{Skipped: true, Reason: err.Error()}
	}
	s.lastName = name

	id := uuid.NewString()
	speed := profile.Speed
	log.Debug("gesture dispatched",
		"id", id,
		"gesture", name,
		"emotion", current.String(),
		"speed", speed)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.playing.Store(false)
		if err := s.player.Play(ctx, move, speed); err != nil {
			log.Warn("gesture aborted", "id", id, "gesture", name, "error", err)
		}
	}()

	return Result{ID: id, Gesture: name}
}

// Trigger plays one gesture by name, regardless of the active mood's
// set. It shares the single-flight guard with OnTick but stays out of
// the alternation bookkeeping, so it is safe to call from any
// goroutine.
func (s *Scheduler) Trigger(ctx context.Context, name string, speed float64) Result {
	move, err := s.registry.Get(name)
	if err != nil {
		return Result{Skipped: true, Reason: err.Error()}
	}
	if !s.playing.CompareAndSwap(false, true) {
		return Result{Skipped: true, Reason: "gesture in flight"}
	}

	id := uuid.NewString()
	log.Debug("gesture triggered", "id", id, "gesture", name, "speed", speed)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.playing.Store(false)
		if err := s.player.Play(ctx, move, speed); err != nil {
			log.Warn("gesture aborted", "id", id, "gesture", name, "error", err)
		}
	}()

	return Result{ID: id, Gesture: name}
}

// Playing reports whether a gesture is currently running.
func (s *Scheduler) Playing() bool {
	return s.playing.Load()
}

// Wait blocks until the in-flight gesture, if any, has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// pick chooses a gesture name, excluding the previous pick when the
// set has alternatives.
func (s *Scheduler) pick(names []string) string {
	if len(names) == 1 {
		return names[0]
	}
	pool := make([]string, 0, len(names))
	for _, n := range names {
		if n != s.lastName {
			pool = append(pool, n)
		}
	}
	if len(pool) == 0 {
		pool = names
	}
	return pool[rand.IntN(len(pool))]
}
