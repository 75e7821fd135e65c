package router

import (
	"github.com/labstack/echo/v4"

	"alumniconnect/internal/adapter/api/handler"
	"alumniconnect/internal/adapter/api/middleware"
)

// SetupMessagingRouter sets up conversation and contact routes.
func SetupMessagingRouter(e *echo.Echo, messagingHandler *handler.MessagingHandler, authMiddleware *middleware.AuthMiddleware) {
	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.POST("", messagingHandler.ResolveConversation)        // POST /v1/conversations - find or create a conversation with a recipient
	conversations.GET("", messagingHandler.ListConversations)           // GET /v1/conversations - list the caller's conversations
	conversations.GET("/:id", messagingHandler.GetConversation)         // GET /v1/conversations/:id
	conversations.POST("/:id/messages", messagingHandler.SendMessage)   // POST /v1/conversations/:id/messages
	conversations.PUT("/:id/read", messagingHandler.MarkConversationRead) // PUT /v1/conversations/:id/read

	connections := e.Group("/v1/connections")
	connections.Use(authMiddleware.Authenticate)
	connections.GET("", messagingHandler.ListContacts) // GET /v1/connections - accepted connections for the new-message picker
}
