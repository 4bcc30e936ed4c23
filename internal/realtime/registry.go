package realtime

import (
	"sync"

	"ember/internal/observability"
)

// Registry maps each user to their single identified session. A newer
// identify displaces the older session for delivery without closing it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint]*Client
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uint]*Client)}
}

// Register makes c the session for userID and returns the session it
// displaced, if any.
func (r *Registry) Register(userID uint, c *Client) *Client {
	r.mu.Lock()
	prev := r.sessions[userID]
	r.sessions[userID] = c
	n := len(r.sessions)
	r.mu.Unlock()

	observability.IdentifiedSessions.Set(float64(n))
	if prev == c {
		return nil
	}
	return prev
}

// Unregister removes the mapping for userID only while it still points at c.
func (r *Registry) Unregister(userID uint, c *Client) bool {
	r.mu.Lock()
	current, ok := r.sessions[userID]
	removed := ok && current == c
	if removed {
		delete(r.sessions, userID)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if removed {
		observability.IdentifiedSessions.Set(float64(n))
	}
	return removed
}

// Lookup returns the session registered for userID.
func (r *Registry) Lookup(userID uint) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[userID]
	return c, ok
}

// Len returns the number of identified users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
