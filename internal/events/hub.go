package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub fans emitted events out to connected WebSocket clients.
type Hub struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	broadcast   chan WebSocketMessage
	stop        chan struct{}
	upgrader    websocket.Upgrader
}

// Connection represents one subscribed client.
type Connection struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan WebSocketMessage
	LastActivity time.Time
}

// NewHub creates a hub and starts its broadcast loop.
func NewHub() *Hub {
	h := &Hub{
		connections: make(map[string]*Connection),
		broadcast:   make(chan WebSocketMessage, 256),
		stop:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// In production, implement proper origin checking
				return true
			},
		},
	}
	go h.run()
	return h
}

// HandleConnection upgrades an HTTP request and registers the client.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Connection{
		ID:           uuid.New().String(),
		Conn:         conn,
		Send:         make(chan WebSocketMessage, 256),
		LastActivity: time.Now(),
	}

	h.mu.Lock()
	h.connections[c.ID] = c
	h.mu.Unlock()

	go h.writePump(c)
	return nil
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(msg WebSocketMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Slow consumers must not block ledger operations.
	}
}

// Close stops the broadcast loop and drops all connections.
func (h *Hub) Close() {
	close(h.stop)
}

func (h *Hub) run() {
	for {
		select {
		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.connections {
				select {
				case c.Send <- msg:
				default:
					// Drop frame for clients that cannot keep up.
				}
			}
			h.mu.RUnlock()
		case <-h.stop:
			h.mu.Lock()
			for id, c := range h.connections {
				close(c.Send)
				c.Conn.Close()
				delete(h.connections, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) writePump(c *Connection) {
	defer func() {
		h.mu.Lock()
		delete(h.connections, c.ID)
		h.mu.Unlock()
		c.Conn.Close()
	}()

	for msg := range c.Send {
		c.LastActivity = time.Now()
		if err := c.Conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
