package audioio

import "errors"

// Sentinel errors for audio I/O.
var (
	// ErrDeviceUnavailable indicates the capture device could not be
	// opened or disappeared mid-stream. Callers should retry with
	// backoff rather than terminate.
	ErrDeviceUnavailable = errors.New("audioio: device unavailable")

	// ErrUnsupportedBackend indicates the requested backend does not
	// support the requested role (e.g. RTP playback).
	ErrUnsupportedBackend = errors.New("audioio: unsupported backend")
)
