package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSortedPair(t *testing.T) {
	assert.Equal(t, []string{"alice", "bob"}, SortedPair("bob", "alice"))
	assert.Equal(t, []string{"alice", "bob"}, SortedPair("alice", "bob"))
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "alice_bob", PairKey("alice", "bob"))
	assert.Equal(t, "alice_bob", PairKey("bob", "alice"))
	assert.NotEqual(t, PairKey("alice", "bob"), PairKey("alice", "carol"))
}

func TestHasParticipantAndCounterpart(t *testing.T) {
	conv := &Conversation{Participants: []string{"alice", "bob"}}

	assert.True(t, conv.HasParticipant("alice"))
	assert.True(t, conv.HasParticipant("bob"))
	assert.False(t, conv.HasParticipant("mallory"))

	assert.Equal(t, "bob", conv.Counterpart("alice"))
	assert.Equal(t, "alice", conv.Counterpart("bob"))
}

func TestUnreadFor(t *testing.T) {
	now := time.Now()

	t.Run("empty conversation is never unread", func(t *testing.T) {
		conv := &Conversation{
			Participants:   []string{"alice", "bob"},
			LastActivityAt: now,
		}
		assert.False(t, conv.UnreadFor("alice"))
		assert.False(t, conv.UnreadFor("bob"))
	})

	t.Run("no cursor means unread", func(t *testing.T) {
		conv := &Conversation{
			Participants:   []string{"alice", "bob"},
			Messages:       []Message{{SenderID: "alice", Text: "hi"}},
			LastSenderID:   "alice",
			LastActivityAt: now,
		}
		assert.True(t, conv.UnreadFor("bob"))
	})

	t.Run("self-authored latest message is never unread", func(t *testing.T) {
		conv := &Conversation{
			Participants:   []string{"alice", "bob"},
			Messages:       []Message{{SenderID: "alice", Text: "hi"}},
			LastSenderID:   "alice",
			LastActivityAt: now,
		}
		assert.False(t, conv.UnreadFor("alice"))
	})

	t.Run("stale cursor means unread", func(t *testing.T) {
		conv := &Conversation{
			Participants:   []string{"alice", "bob"},
			Messages:       []Message{{SenderID: "alice", Text: "hi"}},
			LastSenderID:   "alice",
			LastActivityAt: now,
			ReadCursors:    map[string]time.Time{"bob": now.Add(-time.Minute)},
		}
		assert.True(t, conv.UnreadFor("bob"))
	})

	t.Run("fresh cursor means read", func(t *testing.T) {
		conv := &Conversation{
			Participants:   []string{"alice", "bob"},
			Messages:       []Message{{SenderID: "alice", Text: "hi"}},
			LastSenderID:   "alice",
			LastActivityAt: now,
			ReadCursors:    map[string]time.Time{"bob": now.Add(time.Second)},
		}
		assert.False(t, conv.UnreadFor("bob"))
	})
}

func TestLastMessage(t *testing.T) {
	conv := &Conversation{Participants: []string{"alice", "bob"}}
	assert.Nil(t, conv.LastMessage())

	conv.Messages = []Message{
		{SenderID: "alice", Text: "first"},
		{SenderID: "bob", Text: "second"},
	}
	assert.Equal(t, "second", conv.LastMessage().Text)
}
