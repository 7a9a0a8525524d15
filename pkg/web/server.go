// Package web serves the groove dashboard: pipeline status and logs
// over HTTP, with live streams fanned out to websocket clients.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/reachy-groove/internal/log"
	"github.com/teslashibe/reachy-groove/pkg/gesture"
	"github.com/teslashibe/reachy-groove/pkg/hub"
	"github.com/teslashibe/reachy-groove/pkg/pipeline"
)

const (
	// statusInterval is the live status broadcast cadence.
	statusInterval = 500 * time.Millisecond

	// logRingSize bounds the replayable log history.
	logRingSize = 500
)

// Pipeline is the slice of the running session the dashboard exposes.
type Pipeline interface {
	Status() pipeline.Status
	Perform(name string) gesture.Result
	Stop()
}

// LogEntry is one dashboard log line.
type LogEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Server is the dashboard HTTP and websocket server.
type Server struct {
	app  *fiber.App
	addr string
	pipe Pipeline

	logs   []LogEntry
	logsMu sync.RWMutex

	statusHub *hub.Hub
	logHub    *hub.Hub

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer builds the dashboard over the given pipeline.
func NewServer(addr string, pipe Pipeline) *Server {
	s := &Server{
		addr:      addr,
		pipe:      pipe,
		logs:      make([]LogEntry, 0, logRingSize),
		statusHub: hub.New("status"),
		logHub:    hub.New("logs"),
		stopCh:    make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Reachy Groove",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/stop", s.handleStop)
	api.Get("/logs", s.handleLogs)
	api.Get("/gestures", s.handleListGestures)
	api.Post("/gestures/:name", s.handlePerformGesture)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	s.app = app
	return s
}

// Start runs the hubs and the status broadcast loop, then serves HTTP.
// It blocks until Shutdown.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.logHub.Run()

	s.wg.Add(1)
	go s.broadcastLoop()

	log.Info("dashboard listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync serves in the background, logging any listen failure.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("dashboard server failed", "error", err)
		}
	}()
}

// Shutdown stops the broadcast loop, the hubs, and the HTTP server.
// Idempotent; only the first call closes the fiber app.
func (s *Server) Shutdown() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		s.statusHub.Stop()
		s.logHub.Stop()
		err = s.app.Shutdown()
	})
	return err
}

// broadcastLoop pushes the pipeline status to websocket clients at a
// fixed cadence. Ticks with no subscribers skip the JSON encode.
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			if err := s.statusHub.BroadcastJSON(s.pipe.Status()); err != nil {
				log.Debug("status broadcast failed", "error", err)
			}
		}
	}
}

// AddLog appends one entry to the ring and streams it to subscribers.
func (s *Server) AddLog(level, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Level:   level,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > logRingSize {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}
