// Package api serves a read-only HTTP view over the storage root: project
// listings, metadata, manifests, and scan history. All mutation goes
// through the CLI; the server never writes.
package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/phantomsec/gibson/internal/health"
	"github.com/phantomsec/gibson/internal/index"
	"github.com/phantomsec/gibson/internal/layout"
	"github.com/phantomsec/gibson/internal/manifest"
	"github.com/phantomsec/gibson/internal/metrics"
	"github.com/phantomsec/gibson/internal/store"
)

// ProblemDetail is the RFC 7807 error response body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
}

// Server is the read-only API Fiber application.
type Server struct {
	app    *fiber.App
	addr   string
	logger zerolog.Logger
}

// NewServer creates and configures the API server. The SQLite store and
// metrics are optional; their endpoints degrade gracefully when nil.
func NewServer(addr string, l layout.Layout, db *store.Store, m *metrics.Metrics, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:    app,
		addr:   addr,
		logger: logger.With().Str("component", "api").Logger(),
	}

	app.Use(recover.New())
	app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path != "/healthz" && path != "/metrics" {
			s.logger.Info().
				Str("method", c.Method()).
				Str("path", path).
				Str("ip", c.IP()).
				Msg("api request")
		}
		return c.Next()
	})

	h := newHandlers(l, index.NewStore(l, logger), manifest.NewStore(l, logger), db, logger)

	checker := health.NewChecker(logger)
	checker.Register("storage", health.StorageCheck(l.Root))
	checker.Register("git", health.GitCheck())
	if db != nil {
		checker.Register("query_index", health.DBCheck(db.DB().Ping))
	}

	app.Get("/healthz", h.Liveness)
	app.Get("/readyz", adaptor.HTTPHandlerFunc(checker.ReadinessHandler()))
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	api := app.Group("/api")
	api.Get("/projects", h.ListProjects)
	api.Get("/projects/:namespace/:name", h.GetProject)
	api.Get("/projects/:namespace/:name/manifest", h.GetManifest)
	api.Get("/projects/:namespace/:name/scans", h.GetScans)
	api.Get("/stats", h.Stats)

	return s
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.addr).Msg("api server starting")
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Msg("unhandled error")

		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   err.Error(),
			Instance: c.Path(),
		})
	}
}

func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}
