package chat

import (
	"sync"
	"time"
)

// ConversationID derives the stable conversation id for a participant pair.
// The two ids are sorted lexicographically before joining, so the id is
// order-independent: ConversationID(a, b) == ConversationID(b, a). The whole
// messaging model depends on this symmetry.
func ConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "room_" + a + "_" + b
}

// Resolver lazily materializes in-memory conversation metadata. Conversations
// are never persisted here: after a restart the cache rebuilds from the first
// startConversation referencing each id, while the authoritative history
// stays in the message store.
type Resolver struct {
	mu            sync.Mutex
	conversations map[string]*Conversation

	now func() time.Time
}

// NewResolver creates an empty conversation cache.
func NewResolver() *Resolver {
	return &Resolver{
		conversations: make(map[string]*Conversation),
		now:           time.Now,
	}
}

// Ensure returns the cached conversation, creating it with the given
// participants if absent.
func (r *Resolver) Ensure(id string, participants [2]string) Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		conv = &Conversation{
			ID:           id,
			Participants: participants,
			LastActivity: r.now(),
		}
		r.conversations[id] = conv
	}
	return *conv
}

// Get returns the cached conversation for id, if any.
func (r *Resolver) Get(id string) (Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return Conversation{}, false
	}
	return *conv, true
}

// Touch updates the conversation's last-activity timestamp. Called on every
// successful send.
func (r *Resolver) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conv, ok := r.conversations[id]; ok {
		conv.LastActivity = r.now()
	}
}
