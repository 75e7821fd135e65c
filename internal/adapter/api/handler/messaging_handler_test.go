package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumniconnect/internal/adapter/api"
	"alumniconnect/internal/domain/entity"
	"alumniconnect/internal/usecase"
	"alumniconnect/pkg/errors"
)

// memoryConversationRepo backs the handler tests with a map-based store. The
// streaming half of the contract is unused over plain HTTP, so those methods
// return channels that close immediately.
type memoryConversationRepo struct {
	mu    sync.Mutex
	convs map[string]*entity.Conversation
}

func newMemoryConversationRepo() *memoryConversationRepo {
	return &memoryConversationRepo{convs: make(map[string]*entity.Conversation)}
}

func (r *memoryConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conv, nil
}

func (r *memoryConversationRepo) GetByParticipants(ctx context.Context, pair []string) (*entity.Conversation, error) {
	return r.GetByID(ctx, entity.PairKey(pair[0], pair[1]))
}

func (r *memoryConversationRepo) CreateIfAbsent(ctx context.Context, pair []string) (*entity.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := entity.PairKey(pair[0], pair[1])
	if conv, ok := r.convs[key]; ok {
		return conv, false, nil
	}
	now := time.Now()
	conv := &entity.Conversation{
		ID:             key,
		Participants:   append([]string(nil), pair...),
		Messages:       []entity.Message{},
		LastActivityAt: now,
		CreatedAt:      now,
		ReadCursors:    map[string]time.Time{},
	}
	r.convs[key] = conv
	return conv, true, nil
}

func (r *memoryConversationRepo) AppendMessage(ctx context.Context, conversationID string, message entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[conversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	conv.Messages = append(conv.Messages, message)
	conv.LastSenderID = message.SenderID
	conv.LastActivityAt = time.Now()
	return nil
}

func (r *memoryConversationRepo) SetReadCursor(ctx context.Context, conversationID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[conversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	conv.ReadCursors[userID] = time.Now()
	return nil
}

func (r *memoryConversationRepo) ListByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Conversation
	for _, conv := range r.convs {
		if conv.HasParticipant(userID) {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (r *memoryConversationRepo) SubscribeForUser(ctx context.Context, userID string) (<-chan []*entity.Conversation, error) {
	ch := make(chan []*entity.Conversation)
	close(ch)
	return ch, nil
}

func (r *memoryConversationRepo) Subscribe(ctx context.Context, conversationID string) (<-chan *entity.Conversation, error) {
	ch := make(chan *entity.Conversation)
	close(ch)
	return ch, nil
}

type memoryProfileRepo struct {
	profiles map[string]*entity.Profile
}

func (r *memoryProfileRepo) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, errors.NotFound("Profile", nil)
	}
	return profile, nil
}

type memoryConnectionRepo struct {
	connections map[string][]string
}

func (r *memoryConnectionRepo) ListConnectedTo(ctx context.Context, userID string) ([]string, error) {
	return r.connections[userID], nil
}

func newTestHandler() (*MessagingHandler, *echo.Echo, *memoryConversationRepo) {
	convRepo := newMemoryConversationRepo()
	profileRepo := &memoryProfileRepo{profiles: map[string]*entity.Profile{
		"alice": {ID: "alice", Name: "Alice Chen"},
		"bob":   {ID: "bob", Name: "Bob Santos"},
	}}
	connRepo := &memoryConnectionRepo{connections: map[string][]string{
		"alice": {"bob"},
	}}

	uc := usecase.NewMessagingUseCase(convRepo, profileRepo, connRepo)

	e := echo.New()
	e.Validator = api.NewValidator()

	return NewMessagingHandler(uc), e, convRepo
}

func newAuthedContext(e *echo.Echo, method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("uid", userID)
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestResolveConversationCreates(t *testing.T) {
	h, e, _ := newTestHandler()

	c, rec := newAuthedContext(e, http.MethodPost, "/v1/conversations", `{"recipient_id":"bob"}`, "alice")
	require.NoError(t, h.ResolveConversation(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope["success"])

	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, entity.PairKey("alice", "bob"), data["id"])
	assert.Equal(t, "Bob Santos", data["other_user"].(map[string]interface{})["name"])
}

func TestResolveConversationRequiresRecipient(t *testing.T) {
	h, e, _ := newTestHandler()

	c, rec := newAuthedContext(e, http.MethodPost, "/v1/conversations", `{}`, "alice")
	require.NoError(t, h.ResolveConversation(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "VALIDATION_ERROR", envelope["error"].(map[string]interface{})["code"])
}

func TestResolveConversationUnknownRecipient(t *testing.T) {
	h, e, _ := newTestHandler()

	c, rec := newAuthedContext(e, http.MethodPost, "/v1/conversations", `{"recipient_id":"nobody"}`, "alice")
	require.NoError(t, h.ResolveConversation(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageCreatesMessage(t *testing.T) {
	h, e, repo := newTestHandler()
	conv, _, err := repo.CreateIfAbsent(context.Background(), entity.SortedPair("alice", "bob"))
	require.NoError(t, err)

	c, rec := newAuthedContext(e, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", `{"text":"hello bob"}`, "alice")
	c.SetParamNames("id")
	c.SetParamValues(conv.ID)
	require.NoError(t, h.SendMessage(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "hello bob", data["text"])
	assert.Equal(t, "alice", data["sender_id"])

	stored, err := repo.GetByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 1)
}

func TestSendMessageEmptyTextIsANoOp(t *testing.T) {
	h, e, repo := newTestHandler()
	conv, _, err := repo.CreateIfAbsent(context.Background(), entity.SortedPair("alice", "bob"))
	require.NoError(t, err)

	c, rec := newAuthedContext(e, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", `{"text":"   "}`, "alice")
	c.SetParamNames("id")
	c.SetParamValues(conv.ID)
	require.NoError(t, h.SendMessage(c))

	// Not an error to the sender; nothing is stored.
	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope["success"])

	stored, err := repo.GetByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Messages)
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	h, e, repo := newTestHandler()
	conv, _, err := repo.CreateIfAbsent(context.Background(), entity.SortedPair("alice", "bob"))
	require.NoError(t, err)

	c, rec := newAuthedContext(e, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", `{"text":"hi"}`, "mallory")
	c.SetParamNames("id")
	c.SetParamValues(conv.ID)
	require.NoError(t, h.SendMessage(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "NOT_A_PARTICIPANT", envelope["error"].(map[string]interface{})["code"])
}

func TestMarkConversationRead(t *testing.T) {
	h, e, repo := newTestHandler()
	conv, _, err := repo.CreateIfAbsent(context.Background(), entity.SortedPair("alice", "bob"))
	require.NoError(t, err)

	c, rec := newAuthedContext(e, http.MethodPut, "/v1/conversations/"+conv.ID+"/read", "", "bob")
	c.SetParamNames("id")
	c.SetParamValues(conv.ID)
	require.NoError(t, h.MarkConversationRead(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := repo.GetByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.ReadCursors, "bob")
}

func TestGetConversationNotFound(t *testing.T) {
	h, e, _ := newTestHandler()

	c, rec := newAuthedContext(e, http.MethodGet, "/v1/conversations/missing", "", "alice")
	c.SetParamNames("id")
	c.SetParamValues("missing")
	require.NoError(t, h.GetConversation(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConversations(t *testing.T) {
	h, e, repo := newTestHandler()
	_, _, err := repo.CreateIfAbsent(context.Background(), entity.SortedPair("alice", "bob"))
	require.NoError(t, err)

	c, rec := newAuthedContext(e, http.MethodGet, "/v1/conversations", "", "alice")
	require.NoError(t, h.ListConversations(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Len(t, envelope["data"].([]interface{}), 1)
}

func TestListContacts(t *testing.T) {
	h, e, _ := newTestHandler()

	c, rec := newAuthedContext(e, http.MethodGet, "/v1/connections", "", "alice")
	require.NoError(t, h.ListContacts(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	contacts := envelope["data"].([]interface{})
	require.Len(t, contacts, 1)
	assert.Equal(t, "bob", contacts[0].(map[string]interface{})["id"])
}
