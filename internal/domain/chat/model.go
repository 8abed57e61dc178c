package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message is the durable record of one direct message. Sender name and role
// are captured at send time so history renders without a directory join;
// they deliberately go stale if the sender's profile later changes.
type Message struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"roomId"`
	SenderID       string    `db:"sender_id" json:"senderId"`
	ReceiverID     string    `db:"receiver_id" json:"receiverId"`
	Content        string    `db:"content" json:"content"`
	MessageType    string    `db:"message_type" json:"messageType"`
	SenderName     string    `db:"sender_name" json:"senderName"`
	SenderRole     string    `db:"sender_role" json:"senderRole"`
	IsRead         bool      `db:"is_read" json:"isRead"`
	CreatedAt      time.Time `db:"created_at" json:"timestamp"`
}

// Conversation is the in-memory metadata for a pairwise thread. It is a
// cache of derived facts: identity comes from the participant pair and
// history lives in the message store, so a restart simply rebuilds it on
// first reference.
type Conversation struct {
	ID           string    `json:"roomId"`
	Participants [2]string `json:"participants"`
	LastActivity time.Time `json:"lastActivity"`
}

// Profile is the directory view of a participant as the chat core needs it.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"type"`
}

// ConversationSummary is the per-requester rollup of one conversation:
// its most recent message, how many messages addressed to the requester
// are still unread, and who the other participant is.
type ConversationSummary struct {
	ConversationID  string    `json:"roomId"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	UnreadCount     int       `json:"unreadCount"`
	OtherUser       Profile   `json:"otherUser"`
}

// Sink is the outbound half of a session's transport channel. TrySend must
// never block; returning false means the event was dropped, which every
// caller treats as best-effort delivery.
type Sink interface {
	TrySend(data []byte) bool
}

// Session binds one live transport connection to a registered participant.
// Sessions are ephemeral and owned by the registry; they are never persisted.
type Session struct {
	ID       string
	UserID   string
	UserName string
	Role     string

	sink Sink
}

// NewSession creates a session for the given connection and participant.
func NewSession(id, userID, userName, role string, sink Sink) *Session {
	if userName == "" {
		userName = userID
	}
	return &Session{
		ID:       id,
		UserID:   userID,
		UserName: userName,
		Role:     role,
		sink:     sink,
	}
}

// Deliver queues data on the session's transport channel. Delivery to a
// session whose connection is gone is a no-op.
func (s *Session) Deliver(data []byte) bool {
	if s.sink == nil {
		return false
	}
	return s.sink.TrySend(data)
}
