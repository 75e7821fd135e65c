package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"alumniconnect/internal/usecase"
	"alumniconnect/pkg/errors"
	"alumniconnect/pkg/response"
)

type MessagingHandler struct {
	messaging *usecase.MessagingUseCase
}

func NewMessagingHandler(messaging *usecase.MessagingUseCase) *MessagingHandler {
	return &MessagingHandler{
		messaging: messaging,
	}
}

type resolveConversationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"max=4000"`
}

// ResolveConversation finds or creates the canonical conversation between the
// authenticated user and the recipient.
func (h *MessagingHandler) ResolveConversation(c echo.Context) error {
	var req resolveConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conversation, err := h.messaging.Resolve(c.Request().Context(), userID, req.RecipientID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, conversation)
}

// ListConversations returns the user's conversations, newest activity first.
func (h *MessagingHandler) ListConversations(c echo.Context) error {
	userID := c.Get("uid").(string)

	conversations, err := h.messaging.ListConversations(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversations)
}

// GetConversation returns one conversation the user participates in.
func (h *MessagingHandler) GetConversation(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	conversation, err := h.messaging.GetConversation(c.Request().Context(), conversationID, userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversation)
}

// SendMessage appends a message to the conversation. An empty or
// whitespace-only text is a no-op rather than a failure; the client keeps
// its input either way.
func (h *MessagingHandler) SendMessage(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.messaging.Send(c.Request().Context(), conversationID, userID, req.Text)
	if err != nil {
		if errors.Is(err, "EMPTY_MESSAGE") {
			return response.Success(c, nil)
		}
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkConversationRead advances the user's read cursor to now.
func (h *MessagingHandler) MarkConversationRead(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.messaging.MarkRead(c.Request().Context(), conversationID, userID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// ListContacts returns the "start new chat" candidates from the user's
// connection graph.
func (h *MessagingHandler) ListContacts(c echo.Context) error {
	userID := c.Get("uid").(string)

	contacts, err := h.messaging.ListContacts(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, contacts)
}
