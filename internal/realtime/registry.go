package realtime

import "sync"

// Session is a live push channel to one connected client.
type Session interface {
	Send(event string, payload any) error
}

// Registry maps a transport identity (auth uid) to its single active
// session. A new registration silently replaces an older session for the
// same identity: last-connect-wins, no multi-device fan-out. State is
// process-local and ephemeral; a restart correctly loses it because the
// underlying connections are lost too.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Register binds identity to session, returning the session it replaced, if any.
func (r *Registry) Register(identity string, session Session) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.sessions[identity]
	r.sessions[identity] = session
	return prev
}

// Unregister removes the mapping unconditionally; no-op if absent.
func (r *Registry) Unregister(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, identity)
}

// UnregisterSession removes the mapping only while it still points at the
// given session. A stale session disconnecting must not evict its
// replacement.
func (r *Registry) UnregisterSession(identity string, session Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[identity] != session {
		return false
	}
	delete(r.sessions, identity)
	return true
}

// Lookup returns the live session for identity, if any.
func (r *Registry) Lookup(identity string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[identity]
	return session, ok
}

// Sessions returns a snapshot of all connected sessions.
func (r *Registry) Sessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		all = append(all, session)
	}
	return all
}

// OnlineIdentities returns a snapshot of connected identities.
func (r *Registry) OnlineIdentities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for identity := range r.sessions {
		ids = append(ids, identity)
	}
	return ids
}
