package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-gaze/pkg/bridge"
	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	SessionID string        `json:"session_id,omitempty"`
	Session   gaze.Status   `json:"session"`
	Provider  *bridge.Stats `json:"provider,omitempty"`
	Observers int           `json:"observers"`
}

// handleStatus returns the session snapshot and transport stats
func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := StatusResponse{
		SessionID: s.session.ID(),
		Session:   s.session.Status(),
	}
	if s.bridge != nil {
		st := s.bridge.GetStats()
		resp.Provider = &st
	}
	if s.events != nil {
		resp.Observers = s.events.ClientCount()
	}
	return c.JSON(resp)
}

// handleConfig returns the pipeline configuration
func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(s.session.Config())
}

// handleCalibration returns the calibration progress
func (s *Server) handleCalibration(c *fiber.Ctx) error {
	return c.JSON(s.session.CalibrationProgress())
}

// RestartRequest is the body of POST /api/calibration/restart
type RestartRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// handleCalibrationRestart rebuilds the calibration plan for a screen size
func (s *Server) handleCalibrationRestart(c *fiber.Ctx) error {
	var req RestartRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if req.Width <= 0 || req.Height <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "width and height must be positive")
	}

	s.session.SetScreen(req.Width, req.Height)
	return c.JSON(s.session.CalibrationProgress())
}

// handleActivate starts the session
func (s *Server) handleActivate(c *fiber.Ctx) error {
	if err := s.session.Activate(); err != nil {
		if errors.Is(err, gaze.ErrProviderUnavailable) {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return err
	}
	return c.JSON(fiber.Map{
		"status":     "active",
		"session_id": s.session.ID(),
	})
}

// handleDeactivate stops the session
func (s *Server) handleDeactivate(c *fiber.Ctx) error {
	if err := s.session.Deactivate(); err != nil {
		if errors.Is(err, gaze.ErrNotActive) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return err
	}
	return c.JSON(fiber.Map{"status": "inactive"})
}

// handleHeadReset clears the nose reference
func (s *Server) handleHeadReset(c *fiber.Ctx) error {
	s.session.ResetHead()
	return c.JSON(fiber.Map{"status": "reset"})
}

// handleActivations lists journaled activations
func (s *Server) handleActivations(c *fiber.Ctx) error {
	if s.journal == nil {
		return fiber.NewError(fiber.StatusNotFound, "journal disabled")
	}
	list, err := s.journal.RecentActivations(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"activations": list, "count": len(list)})
}

// handleSessions lists journaled sessions
func (s *Server) handleSessions(c *fiber.Ctx) error {
	if s.journal == nil {
		return fiber.NewError(fiber.StatusNotFound, "journal disabled")
	}
	list, err := s.journal.Sessions(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"sessions": list, "count": len(list)})
}

// handleSamples lists the calibration samples journaled for one session
func (s *Server) handleSamples(c *fiber.Ctx) error {
	if s.journal == nil {
		return fiber.NewError(fiber.StatusNotFound, "journal disabled")
	}
	id := c.Params("id")
	list, err := s.journal.CalibrationSamples(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"session_id": id, "samples": list, "count": len(list)})
}
