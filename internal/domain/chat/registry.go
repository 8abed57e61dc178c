package chat

import "sync"

// SessionRegistry tracks live sessions, the participant each belongs to, and
// conversation fan-out groups. A single-instance deployment uses the
// in-memory implementation; a multi-instance deployment can substitute a
// shared-store implementation behind the same interface (presence visibility
// for that case is covered by PresenceStore).
type SessionRegistry interface {
	// Register idempotently binds a session, overwriting any prior binding
	// for the same session id.
	Register(s *Session)

	// Unregister removes the binding if present. It returns the removed
	// session and whether it was the participant's last live session.
	// Unregistering an unknown session id is a no-op, not an error.
	Unregister(sessionID string) (s *Session, wasLast bool, ok bool)

	// Get returns the session bound to sessionID. The second return value
	// guards every operation that requires a sender identity.
	Get(sessionID string) (*Session, bool)

	// SessionsFor returns all live sessions belonging to a participant.
	SessionsFor(participantID string) []*Session

	// Join adds the session to a conversation's fan-out group.
	Join(sessionID, conversationID string)

	// InGroup reports whether the session has joined the conversation.
	InGroup(sessionID, conversationID string) bool

	// GroupSessions returns the live sessions currently in a conversation's
	// fan-out group.
	GroupSessions(conversationID string) []*Session

	// All returns every live session.
	All() []*Session

	// OnlineUsers returns the de-duplicated set of registered participants;
	// a participant with several live sessions appears once.
	OnlineUsers() []OnlineUser
}

// InMemoryRegistry is the single-instance SessionRegistry. All operations
// are atomic with respect to concurrent register/unregister calls; the
// mutex is never held across I/O.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session            // session id -> session
	byUser   map[string]map[string]struct{} // participant id -> session ids
	groups   map[string]map[string]struct{} // conversation id -> session ids
	joined   map[string]map[string]struct{} // session id -> conversation ids
}

// NewInMemoryRegistry creates an empty registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		sessions: make(map[string]*Session),
		byUser:   make(map[string]map[string]struct{}),
		groups:   make(map[string]map[string]struct{}),
		joined:   make(map[string]map[string]struct{}),
	}
}

func (r *InMemoryRegistry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-registration rebinds the session: drop the old participant index
	// entry but keep conversation memberships, which belong to the
	// connection rather than the participant.
	if prev, ok := r.sessions[s.ID]; ok {
		r.removeUserIndex(prev)
	}

	r.sessions[s.ID] = s
	if r.byUser[s.UserID] == nil {
		r.byUser[s.UserID] = make(map[string]struct{})
	}
	r.byUser[s.UserID][s.ID] = struct{}{}
}

func (r *InMemoryRegistry) Unregister(sessionID string) (*Session, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false, false
	}

	delete(r.sessions, sessionID)
	r.removeUserIndex(s)

	for convID := range r.joined[sessionID] {
		if members, ok := r.groups[convID]; ok {
			delete(members, sessionID)
			if len(members) == 0 {
				delete(r.groups, convID)
			}
		}
	}
	delete(r.joined, sessionID)

	_, stillOnline := r.byUser[s.UserID]
	return s, !stillOnline, true
}

// removeUserIndex drops the session from its participant's index. Caller
// holds the write lock.
func (r *InMemoryRegistry) removeUserIndex(s *Session) {
	if ids, ok := r.byUser[s.UserID]; ok {
		delete(ids, s.ID)
		if len(ids) == 0 {
			delete(r.byUser, s.UserID)
		}
	}
}

func (r *InMemoryRegistry) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

func (r *InMemoryRegistry) SessionsFor(participantID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Session
	for id := range r.byUser[participantID] {
		if s, ok := r.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *InMemoryRegistry) Join(sessionID, conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return
	}

	if r.groups[conversationID] == nil {
		r.groups[conversationID] = make(map[string]struct{})
	}
	r.groups[conversationID][sessionID] = struct{}{}

	if r.joined[sessionID] == nil {
		r.joined[sessionID] = make(map[string]struct{})
	}
	r.joined[sessionID][conversationID] = struct{}{}
}

func (r *InMemoryRegistry) InGroup(sessionID, conversationID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.joined[sessionID][conversationID]
	return ok
}

func (r *InMemoryRegistry) GroupSessions(conversationID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Session
	for id := range r.groups[conversationID] {
		if s, ok := r.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *InMemoryRegistry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *InMemoryRegistry) OnlineUsers() []OnlineUser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]OnlineUser, 0, len(r.byUser))
	for userID, ids := range r.byUser {
		for id := range ids {
			if s, ok := r.sessions[id]; ok {
				out = append(out, OnlineUser{
					UserID:   userID,
					UserName: s.UserName,
					Role:     s.Role,
				})
				break
			}
		}
	}
	return out
}
