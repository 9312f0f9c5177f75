package api

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/example/quickchat/modules/broadcast"
	"github.com/example/quickchat/modules/imagecache"
)

// setupRoutes configures all HTTP routes.
func (m *Module) setupRoutes() {
	m.app.Get("/health", m.healthHandler)

	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	chat := m.app.Group("/api/chat")
	chat.Post("/upload", m.uploadImage)

	m.app.Get("/api/images/:id", m.getImage)
}

// healthHandler handles GET /health.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// handleWebSocket drives one client channel. The read loop owns the session:
// frames are dispatched in arrival order, and close or error funnels into the
// same teardown.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	sess := m.relay.NewSession()
	client := broadcast.NewClient(sess.ID(), c)
	m.hub.Register(client)

	defer func() {
		m.hub.Unregister(sess.ID())
		sess.Close()
	}()

	m.logger.Info("websocket connected", "session", sess.ID())

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Error("websocket read error", "session", sess.ID(), "error", err)
			}
			break
		}
		sess.HandleFrame(raw)
	}

	m.logger.Info("websocket disconnected", "session", sess.ID())
}

// uploadImage handles POST /api/chat/upload (multipart field "file").
func (m *Module) uploadImage(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "file field is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "failed to open uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "failed to read uploaded file",
		})
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	id, err := m.images.Put(data, ext)
	if err != nil {
		m.logger.Error("image upload failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "storage_error",
			Message: "failed to store image",
		})
	}

	m.logger.Info("image uploaded", "id", id, "size", len(data))
	return c.JSON(UploadResponse{
		URL:       "/api/images/" + id,
		ImageFlag: true,
	})
}

// getImage handles GET /api/images/:id. Absent and expired entries both
// report 404.
func (m *Module) getImage(c *fiber.Ctx) error {
	id := c.Params("id")

	data, err := m.images.Get(id)
	if err != nil {
		if errors.Is(err, imagecache.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "not_found",
				Message: "image not found or expired",
			})
		}
		m.logger.Error("image read failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "storage_error",
			Message: "failed to read image",
		})
	}

	c.Type(strings.TrimPrefix(filepath.Ext(id), "."))
	return c.Send(data)
}
