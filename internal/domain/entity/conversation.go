package entity

import (
	"sort"
	"time"
)

// Conversation is the durable record of a two-party message thread. The
// document ID is the canonical participant-pair key, so at most one
// conversation can exist for any pair.
type Conversation struct {
	ID             string               `json:"id" firestore:"-"`
	Participants   []string             `json:"participants" firestore:"participants"`
	Messages       []Message            `json:"messages" firestore:"messages"`
	LastSenderID   string               `json:"last_sender_id,omitempty" firestore:"lastSenderId,omitempty"`
	LastActivityAt time.Time            `json:"last_activity_at" firestore:"lastActivityAt"`
	CreatedAt      time.Time            `json:"created_at" firestore:"createdAt"`
	ReadCursors    map[string]time.Time `json:"read_cursors" firestore:"readCursors"`
}

// Message is owned exclusively by its parent conversation. SentAt is assigned
// by the sender's clock and is a display label only; the position in the
// Messages slice (store-append order) is the authoritative display order.
type Message struct {
	SenderID string    `json:"sender_id" firestore:"senderId"`
	Text     string    `json:"text" firestore:"text"`
	SentAt   time.Time `json:"sent_at" firestore:"sentAt"`
}

// SortedPair returns the canonical participant pair for two user IDs.
func SortedPair(a, b string) []string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair
}

// PairKey derives the conversation document ID from the canonical pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Counterpart returns the other side of the pair, or "" when userID is not a
// participant.
func (c *Conversation) Counterpart(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// UnreadFor reports whether the conversation has activity the given user has
// not seen. A conversation whose latest message was authored by the viewer is
// never unread, which keeps the flag race-free without a markRead after every
// send. An empty conversation is never unread.
func (c *Conversation) UnreadFor(userID string) bool {
	if len(c.Messages) == 0 {
		return false
	}
	if c.LastSenderID == userID {
		return false
	}
	cursor, ok := c.ReadCursors[userID]
	if !ok {
		return true
	}
	return c.LastActivityAt.After(cursor)
}

// LastMessage returns the newest message in append order, or nil when the log
// is empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}
