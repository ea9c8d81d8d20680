// Package hub tracks real-time connections grouped by conversation.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrBufferFull is returned when a connection's send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// ErrStopped is returned when the hub is no longer running.
var ErrStopped = errors.New("hub stopped")

const sendBufferSize = 256

// Connection represents a single WebSocket connection.
type Connection struct {
	ID             string
	ConversationID string
	UserID         string
	Conn           *websocket.Conn
	Send           chan []byte
	mu             sync.Mutex
}

// Hub manages all WebSocket connections.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Groups maps conversation_id to the set of connection IDs
	groups map[string]map[string]bool

	unregister chan *Connection
	broadcast  chan *groupMessage
	done       chan struct{}
	stopped    bool

	logger *zap.Logger
	mu     sync.RWMutex
}

type groupMessage struct {
	ConversationID string
	Data           []byte
}

// NewHub creates a new Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		groups:      make(map[string]map[string]bool),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *groupMessage, sendBufferSize),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run starts the hub's main loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case conn := <-h.unregister:
			h.remove(conn)

		case msg := <-h.broadcast:
			var full []*Connection
			h.mu.RLock()
			for connID := range h.groups[msg.ConversationID] {
				conn, ok := h.connections[connID]
				if !ok {
					continue
				}
				select {
				case conn.Send <- msg.Data:
				default:
					full = append(full, conn)
				}
			}
			h.mu.RUnlock()
			for _, conn := range full {
				h.logger.Warn("connection buffer full, closing", zap.String("connection_id", conn.ID))
				h.remove(conn)
			}
		}
	}
}

func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if group := h.groups[conn.ConversationID]; group != nil {
		delete(group, conn.ID)
		if len(group) == 0 {
			delete(h.groups, conn.ConversationID)
		}
	}
	close(conn.Send)
	h.logger.Debug("connection unregistered", zap.String("connection_id", conn.ID))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		close(conn.Send)
		delete(h.connections, id)
	}
	h.groups = make(map[string]map[string]bool)
	h.stopped = true
}

// NewConnection creates a connection bound to a conversation. It is not
// registered until Register is called.
func (h *Hub) NewConnection(ws *websocket.Conn, conversationID, userID string) *Connection {
	return &Connection{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		UserID:         userID,
		Conn:           ws,
		Send:           make(chan []byte, sendBufferSize),
	}
}

// Register adds a connection to its conversation group. The connection can
// receive messages as soon as Register returns.
func (h *Hub) Register(conn *Connection) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return ErrStopped
	}
	h.connections[conn.ID] = conn
	if h.groups[conn.ConversationID] == nil {
		h.groups[conn.ConversationID] = make(map[string]bool)
	}
	h.groups[conn.ConversationID][conn.ID] = true
	h.logger.Debug("connection registered",
		zap.String("connection_id", conn.ID),
		zap.String("conversation_id", conn.ConversationID))
	return nil
}

// Unregister removes a connection and closes its send channel.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Broadcast sends data to every connection of a conversation.
func (h *Hub) Broadcast(conversationID string, data []byte) {
	select {
	case h.broadcast <- &groupMessage{ConversationID: conversationID, Data: data}:
	case <-h.done:
	}
}

// BroadcastJSON sends v as JSON to every connection of a conversation.
func (h *Hub) BroadcastJSON(conversationID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(conversationID, data)
	return nil
}

// SendJSONToConnection sends v as JSON to a single connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return ErrStopped
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// GetGroupCount returns the number of conversations with subscribers.
func (h *Hub) GetGroupCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups)
}

// SubscriberCount returns the number of connections of a conversation.
func (h *Hub) SubscriberCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[conversationID])
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
