package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub tracks live connections keyed by user id and groups them into session
// rooms for targeted broadcasts. A reconnecting user replaces their old
// connection; membership in session rooms is untouched by the swap.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection // user id -> connection
	sessions    map[uuid.UUID][]uuid.UUID // session id -> member user ids
	logger      zerolog.Logger
}

// NewHub creates an empty connection hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		sessions:    make(map[uuid.UUID][]uuid.UUID),
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// RegisterConnection binds a connection to a user, closing any previous one.
func (h *Hub) RegisterConnection(userID uuid.UUID, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.connections[userID]; exists {
		old.Close()
	}
	h.connections[userID] = conn
	h.logger.Info().Str("user_id", userID.String()).Msg("connection registered")
}

// UnregisterConnection drops a user's connection and their room memberships.
// Only removes the given connection, so a reconnect that already replaced it
// is not clobbered by the old read loop winding down.
func (h *Hub) UnregisterConnection(userID uuid.UUID, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, exists := h.connections[userID]
	if !exists || current != conn {
		return
	}
	current.Close()
	delete(h.connections, userID)

	for sessionID, members := range h.sessions {
		for i, id := range members {
			if id == userID {
				h.sessions[sessionID] = append(members[:i], members[i+1:]...)
				break
			}
		}
	}
	h.logger.Info().Str("user_id", userID.String()).Msg("connection unregistered")
}

// JoinSession adds a user to a session room.
func (h *Hub) JoinSession(sessionID, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.sessions[sessionID]
	for _, id := range members {
		if id == userID {
			return
		}
	}
	h.sessions[sessionID] = append(members, userID)
}

// LeaveSession removes a user from a session room.
func (h *Hub) LeaveSession(sessionID, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.sessions[sessionID]
	for i, id := range members {
		if id == userID {
			h.sessions[sessionID] = append(members[:i], members[i+1:]...)
			break
		}
	}
}

// SessionMembers reports how many users a session room holds.
func (h *Hub) SessionMembers(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// CloseSession drops the whole room, without closing member connections.
func (h *Hub) CloseSession(sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}

// BroadcastToSession sends a message to every member of a session room.
func (h *Hub) BroadcastToSession(sessionID uuid.UUID, msg Message) {
	h.mu.RLock()
	members := make([]uuid.UUID, len(h.sessions[sessionID]))
	copy(members, h.sessions[sessionID])
	h.mu.RUnlock()

	for _, userID := range members {
		if err := h.SendToUser(userID, msg); err != nil {
			h.logger.Debug().Err(err).Str("user_id", userID.String()).Msg("broadcast send skipped")
		}
	}
}

// SendToUser delivers a message to one user's connection.
func (h *Hub) SendToUser(userID uuid.UUID, msg Message) error {
	h.mu.RLock()
	conn, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return ErrConnectionNotFound
	}
	return conn.Send(msg)
}

// Connection wraps a websocket with a buffered send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a raw websocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts the connection down. Idempotent.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump drains the send queue onto the wire.
func (c *Connection) WritePump() {
	defer c.conn.Close()

	for msg := range c.sendCh {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Warn().Err(err).Msg("write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump reads messages and hands them to the handler until the peer goes
// away. Read deadline extends on pong.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			return
		}
		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "User connection not found"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
