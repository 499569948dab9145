// Package api serves filtered resource listings over HTTP
package api

import (
	"context"
	"errors"

	"github.com/fluxbase-eu/queryfilter/internal/config"
	"github.com/fluxbase-eu/queryfilter/internal/database"
	"github.com/fluxbase-eu/queryfilter/internal/middleware"
	"github.com/fluxbase-eu/queryfilter/internal/observability"
	"github.com/fluxbase-eu/queryfilter/internal/query"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server is the HTTP server
type Server struct {
	app    *fiber.App
	config *config.Config
}

// ServerOptions carries the collaborators of a Server
type ServerOptions struct {
	Config   *config.Config
	Schema   *database.Schema
	Executor query.Executor
	Metrics  *observability.Metrics // optional
	Gatherer prometheus.Gatherer    // serves /metrics when set
}

// NewServer builds the fiber app and registers all routes
func NewServer(opts ServerOptions) *Server {
	cfg := opts.Config

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(opts.Metrics))

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	handler := NewResourceHandler(opts.Schema, opts.Executor, cfg.API, opts.Metrics)

	group := app.Group(cfg.API.BasePath)
	if cfg.API.RateLimit.Enabled() {
		group.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Name:       "resources",
			Max:        cfg.API.RateLimit.Max,
			Expiration: cfg.API.RateLimit.Expiration,
			Metrics:    opts.Metrics,
		}))
	}
	group.Get("/resources/:resource", handler.Index)
	group.Get("/resources/:resource/:id", handler.Show)

	return &Server{app: app, config: cfg}
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address until Shutdown is called
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting HTTP server")
	return s.app.Listen(s.config.Server.Address, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler renders errors in the API's error envelope
func customErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	}

	return c.Status(code).JSON(errorResponse(message))
}

func errorResponse(messages ...string) fiber.Map {
	return fiber.Map{"errors": messages}
}
