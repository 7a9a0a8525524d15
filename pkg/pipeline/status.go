package pipeline

import (
	"time"

	"github.com/teslashibe/reachy-groove/pkg/audioio"
	"github.com/teslashibe/reachy-groove/pkg/emotion"
	"github.com/teslashibe/reachy-groove/pkg/feature"
	"github.com/teslashibe/reachy-groove/pkg/gesture"
	"github.com/teslashibe/reachy-groove/pkg/motion"
	"github.com/teslashibe/reachy-groove/pkg/tone"
)

// Status is a point-in-time view of the session for the dashboard.
type Status struct {
	State         string  `json:"state"`
	UptimeSeconds float64 `json:"uptime_seconds"`

	Emotion    emotion.State      `json:"emotion"`
	EmotionStr string             `json:"emotion_label"`
	Features   *feature.Snapshot  `json:"features,omitempty"`
	Aggregate  *feature.Aggregate `json:"aggregate,omitempty"`

	Audio *audioio.SourceStats `json:"audio,omitempty"`
	Ring  audioio.RingStats    `json:"ring"`

	Motion          motion.SafeStats `json:"motion"`
	DaemonConnected *bool            `json:"daemon_connected,omitempty"`

	GesturePlaying bool            `json:"gesture_playing"`
	LastGesture    *gesture.Result `json:"last_gesture,omitempty"`
	LastCue        *tone.Cue       `json:"last_cue,omitempty"`

	ChunksProcessed   int64 `json:"chunks_processed"`
	ChunksDropped     int64 `json:"chunks_dropped"`
	WindowsClassified int64 `json:"windows_classified"`
	SkippedCycles     int64 `json:"skipped_cycles"`
	Transitions       int64 `json:"transitions"`
}

// Status assembles the current view. Safe to call from any goroutine.
func (s *Session) Status() Status {
	s.mu.Lock()
	started := s.started
	running := s.running
	s.mu.Unlock()

	var uptime float64
	if running && !started.IsZero() {
		uptime = time.Since(started).Seconds()
	}

	mood := s.Mood()
	st := Status{
		State:             s.State().String(),
		UptimeSeconds:     uptime,
		Emotion:           mood,
		EmotionStr:        mood.Emotion.String(),
		Features:          s.snapshot.Load(),
		Aggregate:         s.aggregate.Load(),
		Ring:              s.ring.Stats(),
		Motion:            s.safe.Stats(),
		GesturePlaying:    s.sched.Playing(),
		LastGesture:       s.lastGesture.Load(),
		LastCue:           s.lastCue.Load(),
		ChunksProcessed:   s.chunks.Load(),
		ChunksDropped:     s.dropped.Load(),
		WindowsClassified: s.windows.Load(),
		SkippedCycles:     s.skips.Load(),
		Transitions:       s.transitions.Load(),
	}

	if src, ok := s.source.(audioio.SourceWithStats); ok {
		stats := src.Stats()
		st.Audio = &stats
	}
	if s.watch != nil {
		connected := s.watch.Connected()
		st.DaemonConnected = &connected
	}
	return st
}
