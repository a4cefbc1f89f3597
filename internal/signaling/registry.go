package signaling

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kerry-okpere/ai-video-conferencing/internal/logging"
	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
)

// Registry tracks every open connection by client id.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Register assigns the client a fresh id and marks it open.
func (r *Registry) Register(c *Client) string {
	c.ID = uuid.NewString()
	c.open.Store(true)

	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()

	return c.ID
}

// Unregister removes the client and closes its outbound queue. It reports
// false when the id was not registered.
func (r *Registry) Unregister(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		return false
	}
	delete(r.clients, clientID)
	c.open.Store(false)
	close(c.Send)

	return true
}

// Broadcast encodes msg once and queues it for every open client except
// excludeID. An empty excludeID reaches everyone.
func (r *Registry) Broadcast(excludeID string, msg any) {
	data, err := protocol.Encode(msg)
	if err != nil {
		r.log.Error("failed to encode broadcast", logging.Err(err))
		return
	}
	r.BroadcastRaw(excludeID, data)
}

// BroadcastRaw is Broadcast for an already encoded record.
func (r *Registry) BroadcastRaw(excludeID string, data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, c := range r.clients {
		if id == excludeID || !c.Open() {
			continue
		}
		if !c.enqueue(data) {
			r.log.Debug("outbound queue full, dropping message", slog.String("client_id", id))
		}
	}
}

// Send queues msg for a single client. Unknown or closed clients are
// skipped silently.
func (r *Registry) Send(clientID string, msg any) {
	data, err := protocol.Encode(msg)
	if err != nil {
		r.log.Error("failed to encode message", logging.Err(err))
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[clientID]
	if !ok || !c.Open() {
		return
	}
	if !c.enqueue(data) {
		r.log.Debug("outbound queue full, dropping message", slog.String("client_id", clientID))
	}
}

func (r *Registry) Has(clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[clientID]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// CloseAll unregisters every client.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.clients {
		delete(r.clients, id)
		c.open.Store(false)
		close(c.Send)
	}
}
