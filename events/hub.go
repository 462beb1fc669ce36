package events

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// Event describes one catalogue mutation for connected UIs.
type Event struct {
	Type      string `json:"type"`
	Action    string `json:"action"`
	ID        uint64 `json:"id,omitempty"`
	ProjectID uint64 `json:"project_id,omitempty"`
}

// Hub fans catalogue change events out to websocket subscribers. A nil hub
// is valid and drops every event, so callers never have to guard Publish.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*subscriber
}

// subscriber serializes writes to one connection. gorilla/websocket allows
// at most one concurrent writer per connection, and mutating handlers run
// concurrently.
type subscriber struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *subscriber) write(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*subscriber)}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = &subscriber{conn: conn}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
}

// Publish sends the event to every subscriber. Clients that cannot keep up
// within the write timeout are dropped rather than blocking the mutation
// path.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: marshal event: %v", err)
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.clients))
	for _, sub := range h.clients {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.write(payload); err != nil {
			h.remove(sub.conn)
		}
	}
}

// SubscriberCount reports the number of connected clients.
func (h *Hub) SubscriberCount() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
