package web

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/reachy-groove/pkg/gesture"
	"github.com/teslashibe/reachy-groove/pkg/pipeline"
)

// stubPipeline fakes the session behind the dashboard.
type stubPipeline struct {
	mu      sync.Mutex
	stopped bool
	playing bool
	status  pipeline.Status
}

func (p *stubPipeline) Status() pipeline.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.status
	if p.stopped {
		st.State = "stopped"
	}
	return st
}

func (p *stubPipeline) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

func (p *stubPipeline) Perform(name string) gesture.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return gesture.Result{Skipped: true, Reason: "gesture in flight"}
	}
	return gesture.Result{ID: "fixed-id", Gesture: name}
}

// newTestServer runs the hubs so AddLog and broadcasts drain, without
// binding a listener.
func newTestServer(t *testing.T, pipe Pipeline) *Server {
	t.Helper()
	s := NewServer(":0", pipe)
	go s.statusHub.Run()
	go s.logHub.Run()
	t.Cleanup(func() {
		s.statusHub.Stop()
		s.logHub.Stop()
	})
	return s
}

func getJSON(t *testing.T, s *Server, method, path string, want int) map[string]any {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		t.Fatalf("%s %s status = %d, want %d", method, path, resp.StatusCode, want)
	}
	body, _ := io.ReadAll(resp.Body)
	out := make(map[string]any)
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("%s %s body %q: %v", method, path, body, err)
	}
	return out
}

func TestStatusEndpoint(t *testing.T) {
	stub := &stubPipeline{status: pipeline.Status{State: "listening", EmotionStr: "happy"}}
	s := newTestServer(t, stub)

	body := getJSON(t, s, "GET", "/api/status", 200)
	if body["state"] != "listening" {
		t.Errorf("state = %v, want listening", body["state"])
	}
	if body["emotion_label"] != "happy" {
		t.Errorf("emotion_label = %v, want happy", body["emotion_label"])
	}
}

func TestStopEndpoint(t *testing.T) {
	stub := &stubPipeline{status: pipeline.Status{State: "listening"}}
	s := newTestServer(t, stub)

	body := getJSON(t, s, "POST", "/api/stop", 200)
	if body["state"] != "stopped" {
		t.Errorf("state = %v, want stopped", body["state"])
	}
	if !stub.stopped {
		t.Error("pipeline Stop not called")
	}
}

func TestLogsEndpoint(t *testing.T) {
	s := newTestServer(t, &stubPipeline{})
	s.AddLog("info", "first")
	s.AddLog("warn", "second")

	req := httptest.NewRequest("GET", "/api/logs", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("GET /api/logs: %v", err)
	}
	defer resp.Body.Close()

	var entries []LogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Message != "first" || entries[1].Message != "second" {
		t.Errorf("entries out of order: %+v", entries)
	}
	if entries[1].Level != "warn" {
		t.Errorf("level = %q, want warn", entries[1].Level)
	}
}

func TestLogRingBounded(t *testing.T) {
	s := newTestServer(t, &stubPipeline{})
	for i := 0; i < logRingSize+25; i++ {
		s.AddLog("info", fmt.Sprintf("entry %d", i))
	}

	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	if len(s.logs) != logRingSize {
		t.Fatalf("ring length = %d, want %d", len(s.logs), logRingSize)
	}
	if s.logs[0].Message != "entry 25" {
		t.Errorf("oldest entry = %q, want entry 25", s.logs[0].Message)
	}
}

func TestListGesturesEndpoint(t *testing.T) {
	s := newTestServer(t, &stubPipeline{})

	body := getJSON(t, s, "GET", "/api/gestures", 200)
	names, ok := body["gestures"].([]any)
	if !ok {
		t.Fatalf("gestures field: %v", body["gestures"])
	}
	found := false
	for _, n := range names {
		if n == "singing_sway" {
			found = true
		}
	}
	if !found {
		t.Errorf("gesture list missing singing_sway: %v", names)
	}
}

func TestPerformGestureEndpoint(t *testing.T) {
	stub := &stubPipeline{}
	s := newTestServer(t, stub)

	body := getJSON(t, s, "POST", "/api/gestures/wave_antennas", 200)
	if body["gesture"] != "wave_antennas" {
		t.Errorf("gesture = %v", body["gesture"])
	}

	stub.playing = true
	body = getJSON(t, s, "POST", "/api/gestures/wave_antennas", 409)
	if body["reason"] != "gesture in flight" {
		t.Errorf("reason = %v", body["reason"])
	}

	getJSON(t, s, "POST", "/api/gestures/backflip", 404)
}

func TestWSRequiresUpgrade(t *testing.T) {
	s := newTestServer(t, &stubPipeline{})

	req := httptest.NewRequest("GET", "/ws/status", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("GET /ws/status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 426 {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}

func TestStatusWSStream(t *testing.T) {
	stub := &stubPipeline{status: pipeline.Status{State: "listening"}}
	s := NewServer(":18090", stub)
	s.StartAsync()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18090/ws/status", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))

	// Snapshot arrives immediately, then the broadcast cadence.
	for i := 0; i < 2; i++ {
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("read %d decode: %v", i, err)
		}
		if got["state"] != "listening" {
			t.Errorf("read %d state = %v", i, got["state"])
		}
	}
}

func TestLogsWSReplayAndLive(t *testing.T) {
	s := NewServer(":18091", &stubPipeline{})
	s.AddLog("info", "before connect")
	s.StartAsync()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/logs", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))

	var entry LogEntry
	if err := ws.ReadJSON(&entry); err != nil {
		t.Fatalf("replay read: %v", err)
	}
	if entry.Message != "before connect" {
		t.Errorf("replayed message = %q", entry.Message)
	}

	// Wait until the hub has the subscriber before logging more.
	deadline := time.Now().Add(2 * time.Second)
	for s.logHub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.AddLog("info", "fresh")

	if err := ws.ReadJSON(&entry); err != nil {
		t.Fatalf("live read: %v", err)
	}
	if entry.Message != "fresh" {
		t.Errorf("live message = %q", entry.Message)
	}
}

func TestSlogHandlerFeedsRing(t *testing.T) {
	s := newTestServer(t, &stubPipeline{})
	logger := slog.New(s.SlogHandler())

	logger.Info("mood changed", "to", "happy")
	logger.Debug("too chatty for the dashboard")
	logger.With("source", "mock").Warn("stream closed")

	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	if len(s.logs) != 2 {
		t.Fatalf("ring entries = %d, want 2", len(s.logs))
	}
	if s.logs[0].Message != "mood changed to=happy" {
		t.Errorf("first entry = %q", s.logs[0].Message)
	}
	if s.logs[0].Level != "info" {
		t.Errorf("first level = %q", s.logs[0].Level)
	}
	if s.logs[1].Message != "stream closed source=mock" {
		t.Errorf("second entry = %q", s.logs[1].Message)
	}
	if s.logs[1].Level != "warn" {
		t.Errorf("second level = %q", s.logs[1].Level)
	}
}
