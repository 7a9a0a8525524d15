// Package httpc builds the HTTP clients used to talk to the robot
// daemon. Use it instead of http.DefaultClient so every call carries a
// timeout; a wedged daemon must never stall a motion loop.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// Timeouts tuned for a daemon on the local network.
const (
	DefaultTimeout        = 5 * time.Second
	DefaultConnectTimeout = 2 * time.Second
	DefaultKeepAlive      = 30 * time.Second
)

// NewClient creates an HTTP client with the given overall timeout.
// Pose dispatch runs at chunk cadence against a single daemon, so the
// transport keeps a few warm connections and nothing more.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
