package motion

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/reachy-groove/internal/httpc"
)

// daemonTimeout bounds every daemon call so a wedged daemon cannot
// stall the reactive loop.
const daemonTimeout = 2 * time.Second

// DaemonExecutor talks to the robot daemon's HTTP API.
type DaemonExecutor struct {
	baseURL string
	client  *http.Client
}

// NewDaemonExecutor creates an executor for the daemon at baseURL,
// e.g. "http://localhost:8000".
func NewDaemonExecutor(baseURL string) *DaemonExecutor {
	return &DaemonExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.NewClient(daemonTimeout),
	}
}

// SetPose sends a batched move command. Head-only and antenna-only
// updates pass nil for the part they leave alone.
func (d *DaemonExecutor) SetPose(head *Offset, antennas *[2]float64, durationSec float64) error {
	payload := map[string]interface{}{
		"target_head_pose": nil,
		"target_antennas":  nil,
		"target_body_yaw":  nil,
		"duration":         durationSec,
	}
	if head != nil {
		payload["target_head_pose"] = map[string]float64{
			"roll":  head.Roll,
			"pitch": head.Pitch,
			"yaw":   head.Yaw,
		}
	}
	if antennas != nil {
		payload["target_antennas"] = []float64{antennas[0], antennas[1]}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal move payload: %v", ErrDispatchFailed, err)
	}

	resp, err := d.client.Post(d.baseURL+"/api/move/set_target", "application/json", strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: daemon returned %s", ErrDispatchFailed, resp.Status)
	}
	return nil
}

// DaemonStatus returns the daemon's state string.
func (d *DaemonExecutor) DaemonStatus() (string, error) {
	resp, err := d.client.Get(d.baseURL + "/api/daemon/status")
	if err != nil {
		return "", fmt.Errorf("daemon status request failed: %w", err)
	}
	defer resp.Body.Close()

	var status struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("failed to decode daemon status: %w", err)
	}
	return status.State, nil
}

var _ Executor = (*DaemonExecutor)(nil)
var _ StatusProber = (*DaemonExecutor)(nil)
