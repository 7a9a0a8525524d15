package motion

import (
	"sync"
	"sync/atomic"

	"github.com/teslashibe/reachy-groove/internal/log"
	"github.com/teslashibe/reachy-groove/pkg/resilience"
)

// SafeStats counts what happened to dispatched commands.
type SafeStats struct {
	Dispatched  int64  `json:"dispatched"`
	Skipped     int64  `json:"skipped"`
	RateLimited int64  `json:"rate_limited"`
	Suppressed  int64  `json:"suppressed"`
	Failed      int64  `json:"failed"`
	Breaker     string `json:"breaker"`
}

// SafeExecutor is the single gateway to the daemon. Every command is
// clamped to physical limits, rate-limited against the last sent pose,
// dropped when inside the dead zone, and finally run through a circuit
// breaker so a dead daemon fails fast instead of stalling callers.
type SafeExecutor struct {
	inner   Executor
	breaker *resilience.Breaker

	mu           sync.Mutex
	lastHead     Offset
	lastAntennas [2]float64
	haveSent     bool
	maxStepRad   float64

	dispatched  atomic.Int64
	skipped     atomic.Int64
	rateLimited atomic.Int64
	suppressed  atomic.Int64
	failed      atomic.Int64
}

// NewSafeExecutor wraps inner with safety filtering and a fast breaker.
// maxStepRad caps per-dispatch head travel; <= 0 disables rate limiting.
func NewSafeExecutor(inner Executor, maxStepRad float64) *SafeExecutor {
	return &SafeExecutor{
		inner:      inner,
		breaker:    resilience.New(resilience.FastConfig()),
		maxStepRad: maxStepRad,
	}
}

// Breaker exposes the breaker for state hooks and recovery resets.
func (s *SafeExecutor) Breaker() *resilience.Breaker {
	return s.breaker
}

// Dispatch filters one command and forwards it to the daemon. A nil
// error with no daemon call means the command fell inside the dead zone.
func (s *SafeExecutor) Dispatch(cmd Command) error {
	head := cmd.Head.Clamp()

	var antennas *[2]float64
	if cmd.Antennas != nil {
		a := ClampAntennas(*cmd.Antennas)
		antennas = &a
	}

	s.mu.Lock()
	if s.haveSent && s.maxStepRad > 0 {
		limited := s.rateLimit(head)
		if limited != head {
			s.rateLimited.Add(1)
			head = limited
		}
	}

	if s.haveSent && !s.needsSend(head, antennas) {
		s.mu.Unlock()
		s.skipped.Add(1)
		return nil
	}
	s.mu.Unlock()

	err := s.breaker.Execute(func() error {
		return s.inner.SetPose(&head, antennas, cmd.Duration.Seconds())
	})
	switch {
	case err == nil:
		s.dispatched.Add(1)
		s.mu.Lock()
		s.lastHead = head
		if antennas != nil {
			s.lastAntennas = *antennas
		}
		s.haveSent = true
		s.mu.Unlock()
	case err == resilience.ErrOpen:
		s.suppressed.Add(1)
	default:
		s.failed.Add(1)
	}
	return err
}

// Neutral sends a single smooth return-to-rest move. It bypasses the
// dead zone and rate limiting so the move always goes out, taking as
// long as the velocity ceiling requires.
func (s *SafeExecutor) Neutral() error {
	s.mu.Lock()
	from := s.lastHead
	s.mu.Unlock()

	home := Offset{}
	rest := [2]float64{}
	dur := SafeDuration(from, home)

	err := s.breaker.Execute(func() error {
		return s.inner.SetPose(&home, &rest, dur.Seconds())
	})
	if err != nil {
		s.failed.Add(1)
		log.Warn("return to neutral failed", "error", err)
		return err
	}

	s.dispatched.Add(1)
	s.mu.Lock()
	s.lastHead = home
	s.lastAntennas = rest
	s.haveSent = true
	s.mu.Unlock()
	return nil
}

// LastHead returns the last pose actually sent.
func (s *SafeExecutor) LastHead() Offset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHead
}

// Stats returns dispatch counters and the breaker state.
func (s *SafeExecutor) Stats() SafeStats {
	return SafeStats{
		Dispatched:  s.dispatched.Load(),
		Skipped:     s.skipped.Load(),
		RateLimited: s.rateLimited.Load(),
		Suppressed:  s.suppressed.Load(),
		Failed:      s.failed.Load(),
		Breaker:     s.breaker.State().String(),
	}
}

// rateLimit caps per-axis travel from the last sent pose. Callers hold mu.
func (s *SafeExecutor) rateLimit(target Offset) Offset {
	deltaRoll := target.Roll - s.lastHead.Roll
	deltaPitch := target.Pitch - s.lastHead.Pitch
	deltaYaw := target.Yaw - s.lastHead.Yaw

	if max3(abs(deltaRoll), abs(deltaPitch), abs(deltaYaw)) <= s.maxStepRad {
		return target
	}

	return Offset{
		Roll:  s.lastHead.Roll + clampStep(deltaRoll, s.maxStepRad),
		Pitch: s.lastHead.Pitch + clampStep(deltaPitch, s.maxStepRad),
		Yaw:   s.lastHead.Yaw + clampStep(deltaYaw, s.maxStepRad),
	}
}

// needsSend reports whether the pose moved enough to be worth a daemon
// call. Callers hold mu.
func (s *SafeExecutor) needsSend(head Offset, antennas *[2]float64) bool {
	headDiff := max3(
		abs(head.Roll-s.lastHead.Roll),
		abs(head.Pitch-s.lastHead.Pitch),
		abs(head.Yaw-s.lastHead.Yaw),
	)
	if headDiff >= DeadZoneHeadRad {
		return true
	}
	if antennas != nil {
		antennaDiff := abs(antennas[0] - s.lastAntennas[0])
		if d := abs(antennas[1] - s.lastAntennas[1]); d > antennaDiff {
			antennaDiff = d
		}
		if antennaDiff >= DeadZoneAntennaRad {
			return true
		}
	}
	return false
}

func clampStep(delta, maxStep float64) float64 {
	if delta > maxStep {
		return maxStep
	}
	if delta < -maxStep {
		return -maxStep
	}
	return delta
}
