package dispatch

import (
	"sync"

	"github.com/rfoster/cuecall/internal/cue"
)

// Session is the per-connection command context: which event the operator is
// driving and the cue directory built from its snapshot. Keeping this on a
// session object instead of process globals lets one process serve several
// events without cross-talk.
type Session struct {
	mu  sync.RWMutex
	dir *cue.Directory
}

func NewSession() *Session {
	return &Session{}
}

// Directory returns the session's cue directory, nil before set-event.
func (s *Session) Directory() *cue.Directory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir
}

// SetDirectory replaces the backing snapshot wholesale.
func (s *Session) SetDirectory(d *cue.Directory) {
	s.mu.Lock()
	s.dir = d
	s.mu.Unlock()
}

// EventID returns the loaded event, or zero.
func (s *Session) EventID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dir == nil {
		return 0
	}
	return s.dir.EventID()
}

// SessionRegistry hands out sessions by key. The wire ingress keys sessions
// by sender address; the HTTP fallback keys them by event.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// Get returns the session for key, creating it on first use.
func (r *SessionRegistry) Get(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		s = NewSession()
		r.sessions[key] = s
	}
	return s
}

// Remove drops a session, e.g. when a wire sender goes away.
func (r *SessionRegistry) Remove(key string) {
	r.mu.Lock()
	delete(r.sessions, key)
	r.mu.Unlock()
}
