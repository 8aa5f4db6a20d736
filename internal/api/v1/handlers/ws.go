package handlers

import (
	"tasks-api/internal/api/v1/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RequireUpgrade lets only websocket handshakes through to TaskEvents.
func (h *Handler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return response.Fail(c, fiber.StatusUpgradeRequired, "Websocket upgrade required")
}

// TaskEvents streams task change events until the client disconnects.
// Anything the client sends is discarded.
func (h *Handler) TaskEvents() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client := h.deps.Hub.Register(conn)
		if client == nil {
			return
		}
		defer h.deps.Hub.Unregister(client)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
