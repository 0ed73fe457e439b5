package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The daemon binds loopback by default; origin checks add nothing
		// for non-browser clients talking to localhost.
		return true
	},
}

// handleWebSocket upgrades the connection and attaches it to the hub.
// Authentication uses a query parameter because browsers cannot set
// headers on WebSocket handshakes.
func (s *Server) handleWebSocket(c *gin.Context) {
	if s.auth != nil {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if _, err := s.auth.ValidateToken(token); err != nil {
			slog.Debug("WebSocket auth failed", "remote", c.ClientIP(), "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "remote", c.ClientIP(), "error", err)
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: ws,
		send: make(chan Message, sendBufferSize),
	}
	s.hub.add(cl)

	// Prime the new client with the current state so it does not have to
	// wait for the next tick.
	for _, msg := range s.stateMessages() {
		select {
		case cl.send <- msg:
		default:
		}
	}

	go s.readPump(cl)
	go writePump(cl)
}

// stateMessages builds the catch-up sequence for a freshly connected
// client: the candidate list, the active selection and the last
// snapshot, in that order.
func (s *Server) stateMessages() []Message {
	now := time.Now()
	msgs := []Message{{
		Type:      MessageCandidates,
		Timestamp: now,
		Data:      CandidatesPayload{Interfaces: s.engine.Candidates()},
	}}
	if active, ok := s.engine.Active(); ok {
		msgs = append(msgs, Message{Type: MessageSelection, Timestamp: now, Data: active})
	}
	if snap, ok := s.engine.LastSnapshot(); ok {
		msgs = append(msgs, Message{Type: MessageUpdate, Timestamp: snap.Timestamp, Data: snap})
	}
	return msgs
}

// readPump consumes client messages until the connection drops. The
// stream is effectively one-way; only pings get a reply.
func (s *Server) readPump(cl *client) {
	defer func() {
		s.hub.remove(cl.id)
		_ = cl.conn.Close()
	}()

	cl.conn.SetPongHandler(func(string) error { return nil })

	for {
		var msg Message
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Debug("WebSocket read failed", "client", cl.id, "error", err)
			}
			return
		}

		switch msg.Type {
		case "ping":
			select {
			case cl.send <- Message{Type: MessagePong, Timestamp: time.Now()}:
			default:
			}
		default:
			slog.Debug("Ignoring WebSocket message", "client", cl.id, "type", msg.Type)
		}
	}
}

// writePump drains the client's send queue onto the wire. The hub closes
// the queue on unregister, which ends the loop with a close frame.
func writePump(cl *client) {
	defer func() { _ = cl.conn.Close() }()

	for msg := range cl.send {
		if err := cl.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
