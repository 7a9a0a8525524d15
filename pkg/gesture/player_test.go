package gesture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/reachy-groove/pkg/motion"
)

type mockDispatcher struct {
	mu    sync.Mutex
	calls []motion.Command
	err   error
}

func (m *mockDispatcher) Dispatch(cmd motion.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cmd.Antennas != nil {
		antennas := *cmd.Antennas
		cmd.Antennas = &antennas
	}
	m.calls = append(m.calls, cmd)
	return m.err
}

func (m *mockDispatcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockDispatcher) lastCall() motion.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

func (m *mockDispatcher) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func fixedPoseMove(name string, duration time.Duration, pose Pose) Move {
	return NewScriptedMove(name, duration, func(p float64) Pose { return pose })
}

func TestPlayerCompletesShortMove(t *testing.T) {
	mock := &mockDispatcher{}
	player := NewPlayer(mock)
	pose := Pose{Head: motion.Offset{Roll: 0.1}, Antennas: [2]float64{0.2, -0.2}}

	err := player.Play(context.Background(), fixedPoseMove("blink", 5*time.Millisecond, pose), 1.0)
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if mock.callCount() == 0 {
		t.Fatal("no poses dispatched")
	}
	last := mock.lastCall()
	if last.Head != pose.Head {
		t.Errorf("final head = %+v, want %+v", last.Head, pose.Head)
	}
	if last.Antennas == nil || *last.Antennas != pose.Antennas {
		t.Errorf("final antennas = %v, want %v", last.Antennas, pose.Antennas)
	}
	if last.Duration <= 0 {
		t.Errorf("dispatch duration = %v, want > 0", last.Duration)
	}
}

func TestPlayerSamplesLongMove(t *testing.T) {
	mock := &mockDispatcher{}
	player := NewPlayer(mock)

	err := player.Play(context.Background(), fixedPoseMove("hold", 200*time.Millisecond, Pose{}), 1.0)
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	// ~6 ticks fit in 200ms at the playback rate.
	if mock.callCount() < 3 {
		t.Errorf("dispatched %d poses, want several", mock.callCount())
	}
}

func TestPlayerSpeedShortensPlayback(t *testing.T) {
	mock := &mockDispatcher{}
	player := NewPlayer(mock)

	start := time.Now()
	err := player.Play(context.Background(), fixedPoseMove("sweep", time.Second, Pose{}), 4.0)
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 600*time.Millisecond {
		t.Errorf("playback at 4x took %v, want well under the scripted second", elapsed)
	}
}

func TestPlayerAbortsOnDispatchError(t *testing.T) {
	mock := &mockDispatcher{}
	mock.setErr(errors.New("daemon rejected pose"))
	player := NewPlayer(mock)

	err := player.Play(context.Background(), fixedPoseMove("hold", 10*time.Second, Pose{}), 1.0)
	if err == nil {
		t.Fatal("Play() returned nil, want dispatch error")
	}
	if mock.callCount() != 1 {
		t.Errorf("dispatched %d poses after failure, want 1", mock.callCount())
	}
}

func TestPlayerStopsOnContextCancel(t *testing.T) {
	mock := &mockDispatcher{}
	player := NewPlayer(mock)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- player.Play(ctx, fixedPoseMove("hold", time.Hour, Pose{}), 1.0)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Play() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play() did not return after cancel")
	}
}
