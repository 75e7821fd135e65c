package repository

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"alumniconnect/internal/domain/entity"
	"alumniconnect/internal/domain/repository"
	"alumniconnect/pkg/errors"
)

const conversationsCollection = "conversations"

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(conversationsCollection).Doc(id)
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, classifyStoreError("Failed to get conversation", err)
	}

	return decodeConversation(doc)
}

func (r *firestoreConversationRepository) GetByParticipants(ctx context.Context, pair []string) (*entity.Conversation, error) {
	// The document ID is the canonical pair key, so the exact-match lookup is
	// a direct document read rather than a query.
	return r.GetByID(ctx, entity.PairKey(pair[0], pair[1]))
}

func (r *firestoreConversationRepository) CreateIfAbsent(ctx context.Context, pair []string) (*entity.Conversation, bool, error) {
	ref := r.doc(entity.PairKey(pair[0], pair[1]))

	var existing *entity.Conversation
	created := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing = nil
		created = false

		doc, err := tx.Get(ref)
		if err == nil {
			conv, decodeErr := decodeConversation(doc)
			if decodeErr != nil {
				return decodeErr
			}
			existing = conv
			return nil
		}
		if status.Code(err) != codes.NotFound {
			return err
		}

		created = true
		return tx.Create(ref, map[string]interface{}{
			"participants":   entity.SortedPair(pair[0], pair[1]),
			"messages":       []entity.Message{},
			"lastSenderId":   "",
			"readCursors":    map[string]interface{}{},
			"createdAt":      firestore.ServerTimestamp,
			"lastActivityAt": firestore.ServerTimestamp,
		})
	})
	if err != nil {
		log.Printf("Firestore error while resolving conversation for pair %v: %v", pair, err)
		return nil, false, classifyStoreError("Failed to resolve conversation", err)
	}

	if existing != nil {
		return existing, false, nil
	}

	// Re-read so the caller sees the server-resolved timestamps.
	doc, err := ref.Get(ctx)
	if err != nil {
		return nil, false, classifyStoreError("Failed to read created conversation", err)
	}
	conv, err := decodeConversation(doc)
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

func (r *firestoreConversationRepository) AppendMessage(ctx context.Context, conversationID string, message entity.Message) error {
	// One update call keeps the append all-or-nothing: the array element, the
	// last-sender marker, and the activity timestamp land together or not at
	// all. The element's own sentAt stays client-assigned because Firestore
	// rejects ServerTimestamp inside an ArrayUnion value.
	_, err := r.doc(conversationID).Update(ctx, []firestore.Update{
		{Path: "messages", Value: firestore.ArrayUnion(message)},
		{Path: "lastSenderId", Value: message.SenderID},
		{Path: "lastActivityAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		log.Printf("Firestore error while appending message to conversation %s: %v", conversationID, err)
		return classifyStoreError("Failed to append message", err)
	}

	return nil
}

func (r *firestoreConversationRepository) SetReadCursor(ctx context.Context, conversationID, userID string) error {
	_, err := r.doc(conversationID).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"readCursors", userID}, Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		log.Printf("Firestore error while setting read cursor on conversation %s for user %s: %v", conversationID, userID, err)
		return classifyStoreError("Failed to set read cursor", err)
	}

	return nil
}

func (r *firestoreConversationRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	docs, err := r.participantQuery(userID).Documents(ctx).GetAll()
	if err != nil {
		log.Printf("Firestore error while listing conversations for user %s: %v", userID, err)
		return nil, classifyStoreError("Failed to list conversations", err)
	}

	conversations := make([]*entity.Conversation, 0, len(docs))
	for _, doc := range docs {
		conv, err := decodeConversation(doc)
		if err != nil {
			log.Printf("Skipping malformed conversation document %s: %v", doc.Ref.ID, err)
			continue
		}
		conversations = append(conversations, conv)
	}

	return conversations, nil
}

func (r *firestoreConversationRepository) SubscribeForUser(ctx context.Context, userID string) (<-chan []*entity.Conversation, error) {
	iter := r.participantQuery(userID).Snapshots(ctx)
	ch := make(chan []*entity.Conversation, 1)

	go func() {
		defer iter.Stop()
		defer close(ch)

		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					log.Printf("Conversation-list subscription for user %s ended: %v", userID, err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				log.Printf("Conversation-list snapshot read failed for user %s: %v", userID, err)
				return
			}

			conversations := make([]*entity.Conversation, 0, len(docs))
			for _, doc := range docs {
				conv, err := decodeConversation(doc)
				if err != nil {
					continue
				}
				conversations = append(conversations, conv)
			}

			select {
			case ch <- conversations:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func (r *firestoreConversationRepository) Subscribe(ctx context.Context, conversationID string) (<-chan *entity.Conversation, error) {
	iter := r.doc(conversationID).Snapshots(ctx)
	ch := make(chan *entity.Conversation, 1)

	go func() {
		defer iter.Stop()
		defer close(ch)

		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					log.Printf("Conversation subscription %s ended: %v", conversationID, err)
				}
				return
			}
			if !snap.Exists() {
				continue
			}

			conv, err := decodeConversation(snap)
			if err != nil {
				log.Printf("Skipping malformed snapshot of conversation %s: %v", conversationID, err)
				continue
			}

			select {
			case ch <- conv:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func (r *firestoreConversationRepository) participantQuery(userID string) firestore.Query {
	// The array-contains participant filter cannot be combined with a
	// server-side order here without a composite index, so callers re-sort
	// each snapshot by lastActivityAt.
	return r.client.Collection(conversationsCollection).Where("participants", "array-contains", userID)
}

func decodeConversation(doc *firestore.DocumentSnapshot) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	conv.ID = doc.Ref.ID
	return &conv, nil
}

// classifyStoreError separates transient store outages, which callers surface
// as "try again", from everything else.
func classifyStoreError(message string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return errors.StoreUnavailable(message, err)
	}
	return errors.Internal(message, err)
}
