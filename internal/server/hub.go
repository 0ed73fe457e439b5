package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message types pushed to WebSocket clients. The stream mirrors the
// monitor's callback surface one to one.
const (
	// MessageUpdate carries a throughput snapshot.
	MessageUpdate = "update"
	// MessageNoData marks a tick that only established a baseline.
	MessageNoData = "no_data"
	// MessageUnavailable signals that no interface is measurable.
	MessageUnavailable = "unavailable"
	// MessageCandidates carries the refreshed candidate list.
	MessageCandidates = "candidates"
	// MessageSelection announces the active interface.
	MessageSelection = "selection"
	// MessagePong answers a client ping.
	MessagePong = "pong"
)

// sendBufferSize bounds the per-client outbound queue. A client that
// cannot keep up loses messages instead of stalling the broadcast.
const sendBufferSize = 256

// Message is the envelope for everything sent over a WebSocket
// connection.
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// client is one connected WebSocket peer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

// Hub fans monitor events out to all connected WebSocket clients. A
// single goroutine owns the client set; registration, removal and
// broadcasting are serialized through its channels. A client whose send
// queue is full when a broadcast arrives is disconnected rather than
// left to fall arbitrarily far behind the stream.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	register   chan *client
	unregister chan string
	broadcast  chan Message

	done     chan struct{}
	stopOnce sync.Once

	// onCount, when set, receives the client count after every change.
	onCount func(int)
}

// NewHub creates a hub. The caller starts it with Run.
func NewHub(onCount func(int)) *Hub {
	return &Hub{
		clients:    make(map[string]*client),
		register:   make(chan *client),
		unregister: make(chan string),
		broadcast:  make(chan Message, 256),
		done:       make(chan struct{}),
		onCount:    onCount,
	}
}

// Run owns the hub event loop. It returns when Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, cl := range h.clients {
				close(cl.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.notifyCount()
			return

		case cl := <-h.register:
			h.mu.Lock()
			h.clients[cl.id] = cl
			total := len(h.clients)
			h.mu.Unlock()
			h.notifyCount()
			slog.Debug("WebSocket client connected", "client", cl.id, "total", total)

		case id := <-h.unregister:
			h.mu.Lock()
			if cl, exists := h.clients[id]; exists {
				delete(h.clients, id)
				close(cl.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.notifyCount()
			slog.Debug("WebSocket client disconnected", "client", id, "total", total)

		case msg := <-h.broadcast:
			var stalled []string
			h.mu.RLock()
			for id, cl := range h.clients {
				select {
				case cl.send <- msg:
				default:
					// Client's send queue is full; it is too slow to keep
					// the stream and gets disconnected below.
					stalled = append(stalled, id)
				}
			}
			h.mu.RUnlock()

			for _, id := range stalled {
				h.mu.Lock()
				if cl, exists := h.clients[id]; exists {
					delete(h.clients, id)
					close(cl.send)
				}
				h.mu.Unlock()
				h.notifyCount()
				slog.Debug("WebSocket client dropped, send queue full", "client", id)
			}
		}
	}
}

// Stop shuts the hub down and disconnects every client. It is
// idempotent.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Broadcast queues a message for every connected client. Messages are
// dropped rather than blocking when the hub is saturated or stopped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// add hands a new client to the run loop.
func (h *Hub) add(cl *client) {
	select {
	case h.register <- cl:
	case <-h.done:
	}
}

// remove asks the run loop to drop a client.
func (h *Hub) remove(id string) {
	select {
	case h.unregister <- id:
	case <-h.done:
	}
}

func (h *Hub) notifyCount() {
	if h.onCount != nil {
		h.onCount(h.ClientCount())
	}
}
