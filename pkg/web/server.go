// Package web serves the gaze HTTP API, the observer event stream and the
// provider WebSocket on one fiber app.
package web

import (
	"context"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/bridge"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/store"
)

// Controller is the session surface the API drives. *session.Session
// implements it.
type Controller interface {
	ID() string
	Config() gaze.Config
	Status() gaze.Status
	CalibrationProgress() gaze.CalibrationProgress
	Activate() error
	Deactivate() error
	ResetHead()
	SetScreen(width, height float64)
}

// Journal is the read side of the event journal. *store.Store implements
// it.
type Journal interface {
	RecentActivations(ctx context.Context, limit int) ([]store.Activation, error)
	Sessions(ctx context.Context, limit int) ([]store.Session, error)
	CalibrationSamples(ctx context.Context, sessionID string) ([]store.CalibrationSample, error)
}

// Options configures the server. Bridge and Journal are optional.
type Options struct {
	Addr      string
	StaticDir string
	Session   Controller
	Events    *hub.Hub
	Bridge    *bridge.Bridge
	Journal   Journal
}

// Server is the gaze web server
type Server struct {
	app     *fiber.App
	addr    string
	session Controller
	events  *hub.Hub
	bridge  *bridge.Bridge
	journal Journal
	logger  *slog.Logger
}

// NewServer creates a server and registers every route.
func NewServer(opts Options) *Server {
	s := &Server{
		addr:    opts.Addr,
		session: opts.Session,
		events:  opts.Events,
		bridge:  opts.Bridge,
		journal: opts.Journal,
		logger:  log.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-gaze",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	// CORS for the provider page served from another origin
	app.Use(cors.New())

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)
	api.Get("/calibration", s.handleCalibration)
	api.Post("/calibration/restart", s.handleCalibrationRestart)
	api.Post("/session/activate", s.handleActivate)
	api.Post("/session/deactivate", s.handleDeactivate)
	api.Post("/head/reset", s.handleHeadReset)
	api.Get("/activations", s.handleActivations)
	api.Get("/sessions", s.handleSessions)
	api.Get("/sessions/:id/samples", s.handleSamples)

	// WebSocket routes
	if s.events != nil {
		app.Get("/ws/events", s.events.Handler())
	}
	if s.bridge != nil {
		s.bridge.RegisterRoutes(app)
	}

	s.app = app
	return s
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address and blocks until the server
// stops.
func (s *Server) Start() error {
	s.logger.Info("gaze server listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("gaze server listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handleError renders every error as {"error": message}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
