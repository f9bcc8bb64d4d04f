package stream

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one streaming client. The recording it is currently feeding is
// explicit connection state: at most one per channel, empty when none.
type Conn struct {
	ID          string
	WS          *websocket.Conn
	ConnectedAt time.Time
	RemoteAddr  string

	// activeID is the recording this channel's binary frames belong to.
	// Only the connection's read loop touches it.
	activeID string
}

// Registry tracks connected streaming clients.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Conn),
	}
}

// Add registers a connection.
func (r *Registry) Add(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[conn.ID] = conn
}

// Remove drops a connection.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, id)
}

// Count returns the number of connected clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// CloseAll closes every connection's underlying socket. Each read loop then
// unwinds through its own teardown path.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		conn.WS.Close()
	}
}
