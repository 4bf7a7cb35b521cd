package httpapi

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/astromechza/ticktrack/pkg/store"
)

// Event announces that a document was replaced.
type Event struct {
	Kind store.Kind `json:"kind"`
	At   time.Time  `json:"at"`
}

// Hub fans document events out to connected watchers. The mutex is held
// across writes so a connection only ever sees whole messages.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	_ = conn.Close()
}

// Broadcast sends the event to every watcher, dropping connections that
// fail to accept it.
func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(event); err != nil {
			slog.Info("dropping watcher", "err", err)
			delete(h.conns, conn)
			_ = conn.Close()
		}
	}
}
