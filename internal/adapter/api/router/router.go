package router

import (
	"github.com/labstack/echo/v4"

	"alumniconnect/internal/adapter/api/handler"
	"alumniconnect/internal/adapter/api/middleware"
)

func Setup(e *echo.Echo, messagingHandler *handler.MessagingHandler, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware) {
	SetupMessagingRouter(e, messagingHandler, authMiddleware)
	SetupWebSocketRouter(e, wsHandler, authMiddleware)
}
