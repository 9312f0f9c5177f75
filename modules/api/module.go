// Package api is the HTTP and WebSocket surface: the /ws relay endpoint,
// the image upload boundary, and image fetch.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/quickchat/modules/broadcast"
	"github.com/example/quickchat/modules/imagecache"
	"github.com/example/quickchat/modules/relay"
)

// Module is the HTTP API module.
type Module struct {
	app    *fiber.App
	relay  *relay.Module
	images *imagecache.Store
	hub    *broadcast.Hub
	port   string
	logger *slog.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)

// NewModule creates the API module.
func NewModule(relayModule *relay.Module, images *imagecache.Store) *Module {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return &Module{
		relay:  relayModule,
		images: images,
		port:   port,
		logger: slog.Default(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// SetHub sets the broadcast hub (wired from main.go).
func (m *Module) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// Start initializes the Fiber server.
func (m *Module) Start(_ context.Context) error {
	if m.hub == nil {
		return fmt.Errorf("broadcast hub dependency not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "QuickChat Relay",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		BodyLimit:             16 * 1024 * 1024,
		ReadTimeout:           30 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	m.app.Use(recover.New())

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:5173"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Accept",
	}))

	m.setupRoutes()

	// Start server in goroutine with startup error detection.
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "port", m.port)
	return nil
}

// Stop gracefully shuts down the server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

// errorHandler handles Fiber errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
