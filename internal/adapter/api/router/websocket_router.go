package router

import (
	"github.com/labstack/echo/v4"

	"alumniconnect/internal/adapter/api/handler"
	"alumniconnect/internal/adapter/api/middleware"
)

// SetupWebSocketRouter sets up the live feed WebSocket route.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware) {
	// Auth middleware accepts the token via query param for upgrade requests.
	e.GET("/v1/ws", wsHandler.HandleWebSocket, authMiddleware.Authenticate)
}
