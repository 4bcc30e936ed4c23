package server

import (
	"ember/internal/middleware"
	"ember/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade rejects plain HTTP requests to the realtime endpoint.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	return c.Next()
}

// WebSocketHandler handles GET /api/ws
// @Summary Realtime endpoint
// @Description Authenticate with ?ticket=, a bearer token or ?token=, then send {"type":"identify","userId":N}.
// @Tags realtime
// @Param ticket query string false "Single-use ticket"
// @Param token query string false "Access token"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} object{error=string,code=string}
// @Failure 426 {object} object{error=string,code=string}
// @Router /ws [get]
func (s *Server) WebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)
		if userID == 0 {
			_ = conn.Close()
			return
		}

		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		s.bus.Serve(conn, userID)
	})
}
