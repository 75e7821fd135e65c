package usecase

import (
	"context"
	"encoding/json"
	"sync"

	"alumniconnect/internal/domain/entity"
	"alumniconnect/pkg/logger"
)

// ViewState tracks the lifecycle of one open conversation view:
// closed -> loading -> ready -> closed. Re-opening restarts the cycle so the
// subscription behind a ready view is always live.
type ViewState string

const (
	ViewClosed  ViewState = "closed"
	ViewLoading ViewState = "loading"
	ViewReady   ViewState = "ready"
)

const (
	frameConversationList  = "conversation_list"
	frameConversationState = "conversation_state"
	frameConversation      = "conversation"
)

type listFrame struct {
	Type          string                  `json:"type"`
	Surface       string                  `json:"surface"`
	Conversations []*ConversationResponse `json:"conversations"`
}

type stateFrame struct {
	Type           string    `json:"type"`
	Surface        string    `json:"surface"`
	ConversationID string    `json:"conversation_id"`
	State          ViewState `json:"state"`
}

type conversationFrame struct {
	Type         string                `json:"type"`
	Surface      string                `json:"surface"`
	Conversation *ConversationResponse `json:"conversation"`
}

// LiveFeed projects store state onto independently-lifecycled UI surfaces.
// Each surface holds its own subscriptions; surfaces never talk to each
// other, so the inbox page and the sidebar widget agree only because both
// observe the same store.
type LiveFeed struct {
	messaging *MessagingUseCase
}

func NewLiveFeed(messaging *MessagingUseCase) *LiveFeed {
	return &LiveFeed{
		messaging: messaging,
	}
}

// SurfaceSession is one mounted surface for one user: a live
// conversation-list subscription plus at most one open conversation view.
type SurfaceSession struct {
	feed    *LiveFeed
	userID  string
	surface string

	ctx    context.Context
	cancel context.CancelFunc
	frames chan []byte

	mu         sync.Mutex
	closed     bool
	state      ViewState
	openID     string
	openGen    int
	openCancel context.CancelFunc
}

// Attach mounts a surface: it opens the conversation-list subscription and
// starts projecting snapshots into frames. The session lives until Close or
// until ctx is cancelled.
func (f *LiveFeed) Attach(ctx context.Context, userID, surface string) (*SurfaceSession, error) {
	sessionCtx, cancel := context.WithCancel(ctx)

	listCh, err := f.messaging.StreamConversations(sessionCtx, userID)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &SurfaceSession{
		feed:    f,
		userID:  userID,
		surface: surface,
		ctx:     sessionCtx,
		cancel:  cancel,
		frames:  make(chan []byte, 64),
		state:   ViewClosed,
	}

	go s.pumpList(listCh)

	logger.Info("Surface %q attached for user %s", surface, userID)
	return s, nil
}

// Frames is the stream of JSON frames for the client owning this surface.
func (s *SurfaceSession) Frames() <-chan []byte {
	return s.frames
}

// Done is closed when the session ends; no frames are produced after that.
func (s *SurfaceSession) Done() <-chan struct{} {
	return s.ctx.Done()
}

// OpenConversation transitions the view to loading, marks the conversation
// read, and subscribes to it; the first snapshot flips the view to ready. Any
// previously open view is closed first.
func (s *SurfaceSession) OpenConversation(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.openCancel != nil {
		s.openCancel()
		s.openCancel = nil
	}
	s.openGen++
	gen := s.openGen
	s.openID = id
	s.state = ViewLoading

	openCtx, openCancel := context.WithCancel(s.ctx)
	s.openCancel = openCancel
	s.emitLocked(stateFrame{Type: frameConversationState, Surface: s.surface, ConversationID: id, State: ViewLoading})
	s.mu.Unlock()

	// Opening counts as reading; the cursor upsert is idempotent, so a second
	// surface opening the same conversation is harmless.
	if err := s.feed.messaging.MarkRead(s.ctx, id, s.userID); err != nil {
		logger.Warn("Surface %q: markRead on open of %s failed: %v", s.surface, id, err)
	}

	ch, err := s.feed.messaging.StreamConversation(openCtx, id, s.userID)
	if err != nil {
		s.mu.Lock()
		if s.openGen == gen {
			s.openID = ""
			s.state = ViewClosed
			s.openCancel = nil
			s.emitLocked(stateFrame{Type: frameConversationState, Surface: s.surface, ConversationID: id, State: ViewClosed})
		}
		s.mu.Unlock()
		openCancel()
		return err
	}

	go s.pumpConversation(gen, id, ch)
	return nil
}

// CloseConversation tears down the open view. The subscription is cancelled
// and no further frames for that conversation are emitted.
func (s *SurfaceSession) CloseConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openCancel != nil {
		s.openCancel()
		s.openCancel = nil
	}
	if s.openID == "" {
		return
	}
	id := s.openID
	s.openGen++
	s.openID = ""
	s.state = ViewClosed
	s.emitLocked(stateFrame{Type: frameConversationState, Surface: s.surface, ConversationID: id, State: ViewClosed})
}

// Close unmounts the surface and cancels every subscription it holds.
func (s *SurfaceSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.state = ViewClosed
	s.openID = ""
	s.openCancel = nil
	s.cancel()
	logger.Info("Surface %q detached for user %s", s.surface, s.userID)
}

// State reports the current view state and open conversation, if any.
func (s *SurfaceSession) State() (ViewState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.openID
}

func (s *SurfaceSession) pumpList(ch <-chan []*entity.Conversation) {
	for conversations := range ch {
		projected := s.feed.messaging.Project(s.ctx, conversations, s.userID)

		s.mu.Lock()
		s.emitLocked(listFrame{Type: frameConversationList, Surface: s.surface, Conversations: projected})
		s.mu.Unlock()
	}

	// The list subscription is the session's backbone; when the store ends
	// it, the surface is dead.
	s.Close()
}

func (s *SurfaceSession) pumpConversation(gen int, id string, ch <-chan *entity.Conversation) {
	first := true
	for conv := range ch {
		decorated := s.feed.messaging.decorate(s.ctx, conv, s.userID)

		s.mu.Lock()
		if s.openGen != gen {
			s.mu.Unlock()
			return
		}
		if first {
			first = false
			s.state = ViewReady
			s.emitLocked(stateFrame{Type: frameConversationState, Surface: s.surface, ConversationID: id, State: ViewReady})
		}
		s.emitLocked(conversationFrame{Type: frameConversation, Surface: s.surface, Conversation: decorated})
		s.mu.Unlock()
	}
}

// emitLocked serializes and queues a frame. Callers hold s.mu, which is what
// guarantees nothing is emitted after Close or after a view's generation is
// superseded. A full buffer drops the frame; the next store snapshot carries
// the complete state again.
func (s *SurfaceSession) emitLocked(frame interface{}) {
	if s.closed {
		return
	}

	data, err := json.Marshal(frame)
	if err != nil {
		logger.Error("Surface %q: frame marshal failed: %v", s.surface, err)
		return
	}

	select {
	case s.frames <- data:
	default:
		logger.Warn("Surface %q for user %s is slow; dropping frame", s.surface, s.userID)
	}
}
