package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"alumniconnect/internal/domain/entity"
	"alumniconnect/internal/domain/repository"
	"alumniconnect/internal/infrastructure/ratelimit"
	"alumniconnect/pkg/errors"
	"alumniconnect/pkg/logger"
)

// MessagingUseCase is the only entry point the presentation layer may use for
// conversations: resolve, send, markRead, and the list/stream projections.
// Ordering, dedup, and unread logic stay behind it.
type MessagingUseCase struct {
	convRepo    repository.ConversationRepository
	profileRepo repository.ProfileRepository
	connRepo    repository.ConnectionRepository
	rateLimiter *ratelimit.RateLimiter
}

func NewMessagingUseCase(
	convRepo repository.ConversationRepository,
	profileRepo repository.ProfileRepository,
	connRepo repository.ConnectionRepository,
) *MessagingUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &MessagingUseCase{
		convRepo:    convRepo,
		profileRepo: profileRepo,
		connRepo:    connRepo,
		rateLimiter: rateLimiter,
	}
}

// ConversationResponse decorates a conversation with the counterpart's
// directory profile and the viewer's derived unread flag.
type ConversationResponse struct {
	*entity.Conversation
	OtherUser *entity.Profile `json:"other_user,omitempty"`
	Unread    bool            `json:"unread"`
}

// Resolve maps a "start chatting with user B" intent to the single canonical
// conversation for the pair, creating one only if none exists. The
// check-and-create runs as one conditional transaction keyed by the canonical
// pair, so two racing resolvers for the same new pair end up on one document.
func (uc *MessagingUseCase) Resolve(ctx context.Context, userID, recipientID string) (*ConversationResponse, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "start_conversation")
	if !allowed {
		logger.Warn("Resolve rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before starting another conversation", waitTime)
	}

	if recipientID == "" {
		return nil, errors.BadRequest("Recipient is required", nil)
	}
	if userID == recipientID {
		return nil, errors.BadRequest("You cannot start a conversation with yourself", nil)
	}

	recipient, err := uc.profileRepo.GetByID(ctx, recipientID)
	if err != nil {
		logger.Error("Resolve: recipient %s not found: %v", recipientID, err)
		return nil, errors.NotFound("Recipient", err)
	}

	conv, created, err := uc.convRepo.CreateIfAbsent(ctx, entity.SortedPair(userID, recipientID))
	if err != nil {
		logger.Error("Resolve: failed for pair (%s, %s): %v", userID, recipientID, err)
		return nil, err
	}
	if created {
		logger.Info("Resolve: created conversation %s", conv.ID)
	}

	return &ConversationResponse{
		Conversation: conv,
		OtherUser:    recipient,
		Unread:       conv.UnreadFor(userID),
	}, nil
}

// Send appends a message to the conversation log and advances its activity
// marker. Empty text (after trimming) is a no-op the UI does not surface as a
// failure. Append order as accepted by the store is the display order; the
// sender's clock only labels the message.
func (uc *MessagingUseCase) Send(ctx context.Context, conversationID, senderID, text string) (*entity.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errors.EmptyMessage()
	}

	allowed, waitTime := uc.rateLimiter.Allow(senderID, "send_message")
	if !allowed {
		logger.Warn("Send rate limited: user %s must wait %v", senderID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message", waitTime)
	}

	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		logger.Warn("Send rejected: user %s is not a participant in conversation %s", senderID, conversationID)
		return nil, errors.NotAParticipant(senderID)
	}

	message := entity.Message{
		SenderID: senderID,
		Text:     trimmed,
		SentAt:   time.Now(),
	}

	if err := uc.convRepo.AppendMessage(ctx, conversationID, message); err != nil {
		logger.Error("Send: append failed for conversation %s: %v", conversationID, err)
		return nil, err
	}

	return &message, nil
}

// MarkRead records that the user has seen the conversation up to now. The
// cursor write is an idempotent upsert, so both surfaces marking the same
// conversation open is harmless.
func (uc *MessagingUseCase) MarkRead(ctx context.Context, conversationID, userID string) error {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		logger.Warn("MarkRead rejected: user %s is not a participant in conversation %s", userID, conversationID)
		return errors.NotAParticipant(userID)
	}

	return uc.convRepo.SetReadCursor(ctx, conversationID, userID)
}

// GetConversation returns a single decorated conversation after the
// participant guard.
func (uc *MessagingUseCase) GetConversation(ctx context.Context, conversationID, userID string) (*ConversationResponse, error) {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, errors.NotAParticipant(userID)
	}

	return uc.decorate(ctx, conv, userID), nil
}

// ListConversations returns the viewer's conversations sorted by last
// activity, newest first. The store's native ordering cannot be composed with
// the participant filter, so the sort happens here on every read.
func (uc *MessagingUseCase) ListConversations(ctx context.Context, userID string) ([]*ConversationResponse, error) {
	conversations, err := uc.convRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	return uc.Project(ctx, conversations, userID), nil
}

// Project turns a conversation-list snapshot into the decorated, freshly
// sorted view both UI surfaces render. Unread flags are recomputed on every
// snapshot, never cached.
func (uc *MessagingUseCase) Project(ctx context.Context, conversations []*entity.Conversation, userID string) []*ConversationResponse {
	responses := make([]*ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		responses = append(responses, uc.decorate(ctx, conv, userID))
	}

	sort.SliceStable(responses, func(i, j int) bool {
		return responses[i].LastActivityAt.After(responses[j].LastActivityAt)
	})

	return responses
}

// ListContacts returns the profiles the user may start a new conversation
// with, from the read-only connection graph.
func (uc *MessagingUseCase) ListContacts(ctx context.Context, userID string) ([]*entity.Profile, error) {
	ids, err := uc.connRepo.ListConnectedTo(ctx, userID)
	if err != nil {
		return nil, err
	}

	profiles := make([]*entity.Profile, 0, len(ids))
	for _, id := range ids {
		profile, err := uc.profileRepo.GetByID(ctx, id)
		if err != nil {
			logger.Warn("ListContacts: profile %s not found: %v", id, err)
			continue
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

// StreamConversations opens a live conversation-list subscription for the
// user. The channel closes when ctx is cancelled.
func (uc *MessagingUseCase) StreamConversations(ctx context.Context, userID string) (<-chan []*entity.Conversation, error) {
	return uc.convRepo.SubscribeForUser(ctx, userID)
}

// StreamConversation opens a live single-conversation subscription after the
// participant guard. The channel closes when ctx is cancelled.
func (uc *MessagingUseCase) StreamConversation(ctx context.Context, conversationID, userID string) (<-chan *entity.Conversation, error) {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, errors.NotAParticipant(userID)
	}

	return uc.convRepo.Subscribe(ctx, conversationID)
}

func (uc *MessagingUseCase) decorate(ctx context.Context, conv *entity.Conversation, userID string) *ConversationResponse {
	resp := &ConversationResponse{
		Conversation: conv,
		Unread:       conv.UnreadFor(userID),
	}

	if otherID := conv.Counterpart(userID); otherID != "" {
		otherUser, err := uc.profileRepo.GetByID(ctx, otherID)
		if err == nil {
			resp.OtherUser = otherUser
		} else {
			logger.Warn("Counterpart profile %s not found for conversation %s: %v", otherID, conv.ID, err)
		}
	}

	return resp
}
