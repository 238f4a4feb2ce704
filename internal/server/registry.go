package server

import (
	"sync"
)

// SessionRegistry is the single owner of the authenticated user id to
// live connection association. It keeps a reverse index so teardown on
// transport close is O(1) rather than a scan over every session.
type SessionRegistry struct {
	mu       sync.RWMutex
	byUser   map[int]*Client
	byClient map[*Client]int
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byUser:   make(map[int]*Client),
		byClient: make(map[*Client]int),
	}
}

// Register binds userId to c. A prior connection for the same user is
// evicted (last-authenticated wins) and returned so the caller can
// account for it; a prior user on the same connection is unbound.
func (r *SessionRegistry) Register(userId int, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevUser, ok := r.byClient[c]; ok && prevUser != userId {
		delete(r.byUser, prevUser)
	}

	evicted := r.byUser[userId]
	if evicted != nil && evicted != c {
		delete(r.byClient, evicted)
	} else {
		evicted = nil
	}

	r.byUser[userId] = c
	r.byClient[c] = userId

	return evicted
}

func (r *SessionRegistry) Lookup(userId int) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byUser[userId]
	return c, ok
}

// UserFor resolves the authenticated user behind a connection. A false
// return means the connection never completed the auth handshake.
func (r *SessionRegistry) UserFor(c *Client) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userId, ok := r.byClient[c]
	return userId, ok
}

// UnregisterClient removes the session owned by c, if any.
func (r *SessionRegistry) UnregisterClient(c *Client) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userId, ok := r.byClient[c]
	if !ok {
		return 0, false
	}

	delete(r.byClient, c)
	// Only drop the forward mapping if it still points at this
	// connection; a newer login may already own it.
	if r.byUser[userId] == c {
		delete(r.byUser, userId)
	}

	return userId, true
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byClient)
}
