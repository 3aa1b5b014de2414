package server

import (
	"sync"

	"github.com/google/uuid"
)

// registry is the ClientId -> Session session table. A nil map value is a
// reservation: a handshake in flight that has claimed a ClientId but not
// yet produced a live Session, so a concurrent duplicate handshake attempt
// for the same id is rejected before either socket finishes upgrading.
type registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[uuid.UUID]*Session)}
}

// reserve claims id for an in-flight handshake. It fails if id is already
// reserved or occupied by a live session.
func (r *registry) reserve(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return false
	}
	r.sessions[id] = nil
	return true
}

// commit replaces a reservation with the live session.
func (r *registry) commit(id uuid.UUID, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = s
}

// release drops a reservation or a session, but only if it still matches s.
// A nil s matches only an uncommitted reservation; it is used on the
// handshake-failure path before commit.
func (r *registry) release(id uuid.UUID, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[id]; ok && cur == s {
		delete(r.sessions, id)
	}
}

func (r *registry) get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s != nil {
			n++
		}
	}
	return n
}

func (r *registry) all() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
