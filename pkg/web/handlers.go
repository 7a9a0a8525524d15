package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/reachy-groove/pkg/gesture"
	"github.com/teslashibe/reachy-groove/pkg/hub"
)

// handleStatus returns the full pipeline status.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.pipe.Status())
}

// handleStop shuts the pipeline down and reports the resulting state.
func (s *Server) handleStop(c *fiber.Ctx) error {
	s.pipe.Stop()
	return c.JSON(fiber.Map{"state": s.pipe.Status().State})
}

// handleLogs returns the buffered log history.
func (s *Server) handleLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleListGestures returns the names in the gesture library.
func (s *Server) handleListGestures(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"gestures": gesture.DefaultRegistry().List()})
}

// handlePerformGesture triggers one gesture by name. A gesture already
// in flight wins; the request is refused rather than queued.
func (s *Server) handlePerformGesture(c *fiber.Ctx) error {
	name := c.Params("name")
	if !gesture.DefaultRegistry().Has(name) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown gesture: " + name,
		})
	}

	res := s.pipe.Perform(name)
	if res.Skipped {
		return c.Status(fiber.StatusConflict).JSON(res)
	}

	s.AddLog("info", "manual gesture: "+name)
	return c.JSON(res)
}

// handleStatusWS streams live status updates to one client.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	// One snapshot up front so the page renders before the next
	// broadcast tick. The client is not registered yet, so this write
	// cannot race the pump.
	if err := c.WriteJSON(s.pipe.Status()); err != nil {
		c.Close()
		return
	}

	client := hub.NewClient(s.statusHub, c)
	client.Run()
}

// handleLogsWS replays the log history to one client, then streams new
// entries. Entries logged between replay and registration are lost;
// the dashboard tolerates the gap.
func (s *Server) handleLogsWS(c *websocket.Conn) {
	s.logsMu.RLock()
	history := make([]LogEntry, len(s.logs))
	copy(history, s.logs)
	s.logsMu.RUnlock()

	for _, entry := range history {
		if err := c.WriteJSON(entry); err != nil {
			c.Close()
			return
		}
	}

	client := hub.NewClient(s.logHub, c)
	client.Run()
}
