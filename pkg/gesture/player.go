package gesture

import (
	"context"
	"time"

	"github.com/teslashibe/reachy-groove/pkg/motion"
)

// playTickInterval is the pose sampling rate during playback, ~30 Hz.
const playTickInterval = 33 * time.Millisecond

// Dispatcher delivers gesture poses to the robot.
type Dispatcher interface {
	Dispatch(cmd motion.Command) error
}

// Player runs a single move to completion, sampling its poses at the
// playback rate and handing them to the dispatcher.
type Player struct {
	dispatcher Dispatcher
}

// NewPlayer creates a player that sends poses to d.
func NewPlayer(d Dispatcher) *Player {
	return &Player{dispatcher: d}
}

// Play runs the move until it completes or ctx is cancelled. Speed
// scales playback time: 1.5 plays half again as fast. The first
// dispatch error aborts the move.
func (p *Player) Play(ctx context.Context, m Move, speed float64) error {
	if speed <= 0 {
		speed = 1
	}
	ticker := time.NewTicker(playTickInterval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			t := time.Duration(float64(now.Sub(start)) * speed)
			if m.IsComplete(t) {
				// Land on the scripted final pose.
				return p.send(m.Evaluate(m.Duration()))
			}
			if err := p.send(m.Evaluate(t)); err != nil {
				return err
			}
		}
	}
}

func (p *Player) send(pose Pose) error {
	antennas := pose.Antennas
	return p.dispatcher.Dispatch(motion.Command{
		Head:     pose.Head,
		Antennas: &antennas,
		// Give the daemon a little past the next sample so motion
		// stays continuous between poses.
		Duration: 2 * playTickInterval,
	})
}
