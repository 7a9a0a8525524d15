package motion

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/reachy-groove/pkg/resilience"
)

type poseCall struct {
	head     *Offset
	antennas *[2]float64
	duration float64
}

// mockExecutor records all pose calls for testing.
type mockExecutor struct {
	mu    sync.Mutex
	calls []poseCall
	err   error
}

func (m *mockExecutor) SetPose(head *Offset, antennas *[2]float64, durationSec float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	var h *Offset
	if head != nil {
		cp := *head
		h = &cp
	}
	var a *[2]float64
	if antennas != nil {
		cp := *antennas
		a = &cp
	}
	m.calls = append(m.calls, poseCall{head: h, antennas: a, duration: durationSec})
	return nil
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockExecutor) lastCall() poseCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

func (m *mockExecutor) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func TestSafeExecutorClampsHead(t *testing.T) {
	mock := &mockExecutor{}
	safe := NewSafeExecutor(mock, 0)

	err := safe.Dispatch(Command{Head: Offset{Roll: 1.0, Pitch: -2.0, Yaw: 0.1}, Duration: 300 * time.Millisecond})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	got := mock.lastCall()
	if got.head.Roll != MaxHeadRoll {
		t.Errorf("roll = %v, want clamped to %v", got.head.Roll, MaxHeadRoll)
	}
	if got.head.Pitch != -MaxHeadPitch {
		t.Errorf("pitch = %v, want clamped to %v", got.head.Pitch, -MaxHeadPitch)
	}
	if got.head.Yaw != 0.1 {
		t.Errorf("yaw = %v, want 0.1 unchanged", got.head.Yaw)
	}
}

func TestSafeExecutorClampsAntennas(t *testing.T) {
	mock := &mockExecutor{}
	safe := NewSafeExecutor(mock, 0)

	ant := [2]float64{9.0, -9.0}
	if err := safe.Dispatch(Command{Antennas: &ant, Duration: 150 * time.Millisecond}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	got := mock.lastCall()
	if got.antennas == nil {
		t.Fatal("antennas not forwarded")
	}
	if got.antennas[0] != MaxAntennaRad || got.antennas[1] != -MaxAntennaRad {
		t.Errorf("antennas = %v, want clamped to +/-%v", *got.antennas, MaxAntennaRad)
	}
}

func TestSafeExecutorDeadZoneSkipsRepeats(t *testing.T) {
	mock := &mockExecutor{}
	safe := NewSafeExecutor(mock, 0)

	cmd := Command{Head: Offset{Yaw: 0.2}, Duration: 300 * time.Millisecond}
	if err := safe.Dispatch(cmd); err != nil {
		t.Fatalf("first Dispatch: %v", err)
	}
	if err := safe.Dispatch(cmd); err != nil {
		t.Fatalf("second Dispatch: %v", err)
	}

	if mock.callCount() != 1 {
		t.Errorf("daemon calls = %d, want 1 (repeat inside dead zone)", mock.callCount())
	}
	if s := safe.Stats(); s.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", s.Skipped)
	}
}

func TestSafeExecutorRateLimitsJumps(t *testing.T) {
	mock := &mockExecutor{}
	safe := NewSafeExecutor(mock, 0.05)

	if err := safe.Dispatch(Command{Head: Offset{}, Duration: 300 * time.Millisecond}); err != nil {
		t.Fatalf("seed Dispatch: %v", err)
	}
	if err := safe.Dispatch(Command{Head: Offset{Roll: 0.2}, Duration: 300 * time.Millisecond}); err != nil {
		t.Fatalf("jump Dispatch: %v", err)
	}

	got := mock.lastCall()
	if !floatEquals(got.head.Roll, 0.05) {
		t.Errorf("roll = %v, want limited to 0.05 step", got.head.Roll)
	}
	if s := safe.Stats(); s.RateLimited != 1 {
		t.Errorf("rate limited = %d, want 1", s.RateLimited)
	}
}

func TestSafeExecutorBreakerOpensOnFailures(t *testing.T) {
	mock := &mockExecutor{}
	mock.setErr(errors.New("connection refused"))
	safe := NewSafeExecutor(mock, 0)

	cmd := Command{Head: Offset{Yaw: 0.2}, Duration: 300 * time.Millisecond}

	// FastConfig opens after three failures.
	for i := 0; i < resilience.FastThreshold; i++ {
		if err := safe.Dispatch(cmd); err == nil {
			t.Fatalf("dispatch %d succeeded, want failure", i)
		}
	}

	if safe.Breaker().State() != resilience.Open {
		t.Fatalf("breaker = %v, want Open", safe.Breaker().State())
	}

	err := safe.Dispatch(cmd)
	if !errors.Is(err, resilience.ErrOpen) {
		t.Errorf("Dispatch with open breaker = %v, want ErrOpen", err)
	}
	if s := safe.Stats(); s.Suppressed != 1 {
		t.Errorf("suppressed = %d, want 1", s.Suppressed)
	}
}

func TestSafeExecutorRecoversWithBreakerReset(t *testing.T) {
	mock := &mockExecutor{}
	mock.setErr(errors.New("connection refused"))
	safe := NewSafeExecutor(mock, 0)

	cmd := Command{Head: Offset{Yaw: 0.2}, Duration: 300 * time.Millisecond}
	for i := 0; i < resilience.FastThreshold; i++ {
		_ = safe.Dispatch(cmd)
	}

	// Daemon comes back; the recovery watch resets the breaker.
	mock.setErr(nil)
	safe.Breaker().Reset()

	if err := safe.Dispatch(cmd); err != nil {
		t.Errorf("Dispatch after recovery = %v, want nil", err)
	}
}

func TestSafeExecutorNeutralBypassesDeadZone(t *testing.T) {
	mock := &mockExecutor{}
	safe := NewSafeExecutor(mock, 0)

	// Already at rest; Neutral must still issue exactly one move.
	if err := safe.Neutral(); err != nil {
		t.Fatalf("Neutral: %v", err)
	}

	if mock.callCount() != 1 {
		t.Fatalf("daemon calls = %d, want 1", mock.callCount())
	}
	got := mock.lastCall()
	if got.head == nil || *got.head != (Offset{}) {
		t.Errorf("head = %+v, want zero pose", got.head)
	}
	if got.antennas == nil || *got.antennas != ([2]float64{}) {
		t.Errorf("antennas = %v, want rest position", got.antennas)
	}
	if got.duration != MinMoveSeconds {
		t.Errorf("duration = %v, want the %vs floor", got.duration, MinMoveSeconds)
	}
}

func TestSafeExecutorNeutralDurationFromDistance(t *testing.T) {
	mock := &mockExecutor{}
	safe := NewSafeExecutor(mock, 0)

	if err := safe.Dispatch(Command{Head: Offset{Yaw: 0.7}, Duration: 300 * time.Millisecond}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := safe.Neutral(); err != nil {
		t.Fatalf("Neutral: %v", err)
	}

	got := mock.lastCall()
	if diff := got.duration - 0.7; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("duration = %v, want ~0.7s for a 0.7 rad return", got.duration)
	}
}

func TestSafeExecutorStatsBreakerState(t *testing.T) {
	safe := NewSafeExecutor(&mockExecutor{}, 0)

	if s := safe.Stats(); s.Breaker != "closed" {
		t.Errorf("breaker = %q, want closed", s.Breaker)
	}
}
