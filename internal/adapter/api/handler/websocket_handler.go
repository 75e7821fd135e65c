package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "alumniconnect/internal/infrastructure/websocket"
	"alumniconnect/internal/usecase"
	"alumniconnect/pkg/errors"
	"alumniconnect/pkg/response"
)

// WebSocketHandler upgrades a surface connection and binds it to a live-view
// session. Each connection serves exactly one surface; a browser with the
// inbox page and the sidebar widget both mounted opens two connections, each
// with its own subscriptions.
type WebSocketHandler struct {
	manager *ws.Manager
	feed    *usecase.LiveFeed
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Restrict to known origins in production
	},
}

func NewWebSocketHandler(manager *ws.Manager, feed *usecase.LiveFeed) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		feed:    feed,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID, ok := c.Get("uid").(string)
	if !ok || userID == "" {
		return response.Error(c, errors.Unauthorized("Authentication required", nil))
	}

	surface := c.QueryParam("surface")
	if surface == "" {
		surface = "inbox"
	}
	if surface != "inbox" && surface != "sidebar" {
		return response.Error(c, errors.BadRequest("Unknown surface", nil))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	// The session outlives the HTTP request; its lifetime is bounded by the
	// connection (ReadPump unregistering) or manager shutdown, not by the
	// request context.
	session, err := h.feed.Attach(context.Background(), userID, surface)
	if err != nil {
		conn.Close()
		return err
	}

	client := &ws.Client{
		ID:         uuid.New().String(),
		UserID:     userID,
		Surface:    surface,
		Conn:       conn,
		Controller: session,
	}

	h.manager.Register <- client

	go client.ReadPump(h.manager)
	go client.WritePump()

	return nil
}
