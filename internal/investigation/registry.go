package investigation

import "sync"

// Registry hands out one Session per browser session ID. Sessions live in
// memory only; they are dropped on process restart and are not shared across
// IDs.
type Registry struct {
	newSession func() *Session

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(newSession func() *Session) *Registry {
	return &Registry{
		newSession: newSession,
		sessions:   make(map[string]*Session),
	}
}

// Get returns the session for the given ID, creating it on first use.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		session = r.newSession()
		r.sessions[id] = session
	}
	return session
}

// Drop forgets the session for the given ID.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
