package notification

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/internal/observability/metrics"
)

// sendBuffer bounds the per-client queue; a client that cannot drain it
// in time is dropped rather than stalling dispatch for everyone else.
const sendBuffer = 16

type client struct {
	conn           *websocket.Conn
	organizationID string

	// mu serializes enqueue against close so a detach landing mid-broadcast
	// can never hit a send on a closed channel.
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue queues payload for the write pump. It reports false only when the
// buffer is full; a payload arriving after close is silently dropped.
func (c *client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close shuts the send channel exactly once and reports whether this call
// was the one that did it.
func (c *client) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

// Hub fans dispatched events out to connected WebSocket clients. Events
// carrying an organization ID only reach clients of that organization;
// events without one (e.g. account lockouts) reach every client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Register attaches a connection to the hub and starts its write pump.
// The returned function detaches the client again.
func (h *Hub) Register(conn *websocket.Conn, organizationID string) func() {
	c := &client{
		conn:           conn,
		organizationID: organizationID,
		send:           make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.ClientConnected()

	go func() {
		for msg := range c.send {
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("websocket write failed, dropping client",
					slog.String("error", err.Error()),
				)
				h.remove(c)
				return
			}
		}
	}()

	return func() { h.remove(c) }
}

// Broadcast queues an event for every client in scope. Clients whose send
// buffer is full are dropped.
func (h *Hub) Broadcast(event domain.Event, payload []byte) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if event.OrganizationID == "" || c.organizationID == event.OrganizationID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(payload) {
			h.logger.Warn("slow notification consumer dropped")
			h.remove(c)
		}
	}
}

// ClientCount returns the number of attached clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	if c.close() {
		_ = c.conn.Close()
		metrics.ClientDisconnected()
	}
}
