package geoguesser

import (
	"sync"
)

// Sessions by channel id. A channel has at most one session, whatever its state
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func busy(existing *Session) error {
	switch existing.State() {
	case StateSelectingMode, StateInitializing:
		return ErrSessionStarting
	default:
		return ErrSessionActive
	}
}

// Reserve the channel while the host picks a mode
func (r *Registry) Reserve(channelID string, hostID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[channelID]; ok {
		return nil, busy(existing)
	}
	session := NewSession(channelID, hostID)
	r.sessions[channelID] = session
	return session, nil
}

// Register a session that is about to initialize. A reservation made by
// the same host is taken over, anything else in the channel is an error
func (r *Registry) Begin(channelID string, hostID string, mode Mode) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[channelID]; ok {
		if existing.State() != StateSelectingMode {
			return nil, busy(existing)
		}
		if existing.HostID != hostID {
			return nil, ErrUnauthorized
		}
		existing.begin(mode)
		return existing, nil
	}
	session := NewSession(channelID, hostID)
	session.begin(mode)
	r.sessions[channelID] = session
	return session, nil
}

func (r *Registry) Get(channelID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[channelID]
	return session, ok
}

// Remove the session if it is still the one registered for its channel
func (r *Registry) Remove(session *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[session.ChannelID] != session {
		return false
	}
	delete(r.sessions, session.ChannelID)
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}
