// Package session tracks live WebSocket connections per user so the
// notification dispatcher can push to whoever is online. The registry is an
// injected capability, never a process-wide singleton, which keeps delivery
// testable with a fake.
package session

import "sync"

// Registry is the capability the dispatcher depends on. Delivery is
// best-effort by contract: a zero return means nobody was reachable and that
// is not an error.
type Registry interface {
	SendToUser(userID uint64, payload []byte) int
}

// Hub indexes clients by user, then by session id, so one user may hold
// several live connections (phone + browser).
type Hub struct {
	mu       sync.RWMutex
	byUser   map[uint64]map[string]*Client
	shutdown bool
}

func NewHub() *Hub {
	return &Hub{byUser: make(map[uint64]map[string]*Client)}
}

// Register adds a client. Rejected (returns false) after Shutdown.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shutdown {
		return false
	}
	sessions, ok := h.byUser[c.UserID()]
	if !ok {
		sessions = make(map[string]*Client)
		h.byUser[c.UserID()] = sessions
	}
	sessions[c.SessionID()] = c
	return true
}

// Unregister removes a client. Only deletes when the stored client is the
// same instance, so a concurrent replacement is never dropped by mistake.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.byUser[c.UserID()]
	if !ok {
		return
	}
	current, ok := sessions[c.SessionID()]
	if !ok || current != c {
		return
	}
	delete(sessions, c.SessionID())
	if len(sessions) == 0 {
		delete(h.byUser, c.UserID())
	}
}

// SendToUser enqueues payload on every live session of the user and returns
// how many accepted it.
func (h *Hub) SendToUser(userID uint64, payload []byte) int {
	h.mu.RLock()
	sessions, ok := h.byUser[userID]
	if !ok || len(sessions) == 0 {
		h.mu.RUnlock()
		return 0
	}
	clients := make([]*Client, 0, len(sessions))
	for _, c := range sessions {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		if c.Enqueue(payload) {
			sent++
		}
	}
	return sent
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, sessions := range h.byUser {
		n += len(sessions)
	}
	return n
}

// Shutdown closes every connection and blocks new registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return
	}
	h.shutdown = true

	var clients []*Client
	for _, sessions := range h.byUser {
		for _, c := range sessions {
			clients = append(clients, c)
		}
	}
	h.byUser = make(map[uint64]map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
