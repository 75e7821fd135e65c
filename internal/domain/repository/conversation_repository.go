package repository

import (
	"context"

	"alumniconnect/internal/domain/entity"
)

// ConversationRepository is the contract the messaging core relies on from the
// document store. Appends are all-or-nothing per call; subscriptions
// re-deliver the full current document or result set on every change and
// terminate when the supplied context is cancelled.
type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	GetByParticipants(ctx context.Context, pair []string) (*entity.Conversation, error)

	// CreateIfAbsent creates the conversation for the canonical pair as a
	// single conditional transaction keyed by the pair, returning the
	// existing conversation when one is already present. The boolean reports
	// whether a new conversation was created.
	CreateIfAbsent(ctx context.Context, pair []string) (*entity.Conversation, bool, error)

	AppendMessage(ctx context.Context, conversationID string, message entity.Message) error
	SetReadCursor(ctx context.Context, conversationID, userID string) error

	ListByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error)

	SubscribeForUser(ctx context.Context, userID string) (<-chan []*entity.Conversation, error)
	Subscribe(ctx context.Context, conversationID string) (<-chan *entity.Conversation, error)
}
