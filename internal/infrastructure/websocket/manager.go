package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// SurfaceController is the live-view session a client drives over its
// websocket: open/close a conversation view, and the outbound frame stream.
type SurfaceController interface {
	OpenConversation(id string) error
	CloseConversation()
	Frames() <-chan []byte
	Done() <-chan struct{}
	Close()
}

// Client is one websocket connection bound to one UI surface. A user with the
// inbox page and the sidebar both mounted holds two clients.
type Client struct {
	ID         string
	UserID     string
	Surface    string
	Conn       *websocket.Conn
	Controller SurfaceController

	writeMu sync.Mutex
}

// write serializes connection writes; frames and error replies come from
// different goroutines and gorilla connections allow one writer at a time.
func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// Manager tracks active surface connections so they can be counted and torn
// down together on shutdown.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the registry loop. When ctx is cancelled every remaining
// client's controller is closed, which ends its pumps.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client.ID] = client
				m.mutex.Unlock()
				log.Printf("Surface connection registered: user=%s surface=%s", client.UserID, client.Surface)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if _, ok := m.clients[client.ID]; ok {
					delete(m.clients, client.ID)
					client.Controller.Close()
				}
				m.mutex.Unlock()
				log.Printf("Surface connection unregistered: user=%s surface=%s", client.UserID, client.Surface)

			case <-ctx.Done():
				m.mutex.Lock()
				for id, client := range m.clients {
					client.Controller.Close()
					client.Conn.Close()
					delete(m.clients, id)
				}
				m.mutex.Unlock()
				return
			}
		}
	}()
}

// ConnectionCount reports the number of live surface connections.
func (m *Manager) ConnectionCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// inboundFrame is what a surface client may send: view control only. Message
// sends and read marks go through the HTTP API.
type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
}

const (
	inboundOpenConversation  = "open_conversation"
	inboundCloseConversation = "close_conversation"
)

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ReadPump consumes view-control frames from the connection until it drops,
// then unregisters the client.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error for user %s: %v", c.UserID, err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("discarding malformed frame from user %s: %v", c.UserID, err)
			continue
		}

		switch frame.Type {
		case inboundOpenConversation:
			if err := c.Controller.OpenConversation(frame.ConversationID); err != nil {
				c.sendError(err)
			}
		case inboundCloseConversation:
			c.Controller.CloseConversation()
		}
	}
}

// WritePump forwards controller frames to the connection until the session
// ends or the write fails.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		select {
		case frame := <-c.Controller.Frames():
			if err := c.write(websocket.TextMessage, frame); err != nil {
				log.Printf("websocket write error for user %s: %v", c.UserID, err)
				return
			}

		case <-c.Controller.Done():
			c.write(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) sendError(err error) {
	data, marshalErr := json.Marshal(errorFrame{Type: "error", Message: err.Error()})
	if marshalErr != nil {
		return
	}
	if writeErr := c.write(websocket.TextMessage, data); writeErr != nil {
		log.Printf("websocket error-frame write failed for user %s: %v", c.UserID, writeErr)
	}
}
