package motion

import (
	"github.com/teslashibe/reachy-groove/internal/log"
)

// Executor delivers one batched pose update (head plus optional
// antennas) to whatever is on the other end. Nil pointers leave that
// part of the pose untouched.
type Executor interface {
	SetPose(head *Offset, antennas *[2]float64, durationSec float64) error
}

// StatusProber reports the daemon's own state string.
type StatusProber interface {
	DaemonStatus() (string, error)
}

// NopExecutor accepts every command and does nothing. Used when running
// without hardware attached.
type NopExecutor struct{}

// NewNopExecutor returns an executor that discards all commands.
func NewNopExecutor() *NopExecutor {
	return &NopExecutor{}
}

// SetPose logs the pose at debug level and succeeds.
func (n *NopExecutor) SetPose(head *Offset, antennas *[2]float64, durationSec float64) error {
	if head != nil {
		log.Debug("nop pose", "roll", head.Roll, "pitch", head.Pitch, "yaw", head.Yaw, "duration", durationSec)
	}
	return nil
}

// DaemonStatus always reports running.
func (n *NopExecutor) DaemonStatus() (string, error) {
	return "running", nil
}

var _ Executor = (*NopExecutor)(nil)
var _ StatusProber = (*NopExecutor)(nil)
