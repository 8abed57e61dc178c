package chat

import (
	"context"

	"github.com/google/uuid"
)

// MessageRepository is the durable message store consumed by the router and
// the conversation aggregator. The core only ever appends messages or flips
// their read flag; retention and deletion are outside its scope.
type MessageRepository interface {
	// Append durably stores a message, assigning its id. A failed append is
	// terminal for that send attempt.
	Append(ctx context.Context, m *Message) error

	// ListByConversation returns a conversation's messages ordered by
	// creation time ascending.
	ListByConversation(ctx context.Context, conversationID string) ([]*Message, error)

	// ListForParticipant returns every message where the participant is
	// sender or receiver.
	ListForParticipant(ctx context.Context, participantID string) ([]*Message, error)

	// MarkRead flips the read flag for exactly the given message ids and
	// returns the number of rows updated.
	MarkRead(ctx context.Context, ids []uuid.UUID) (int64, error)

	// CountUnread returns the number of unread messages addressed to the
	// participant across all conversations.
	CountUnread(ctx context.Context, participantID string) (int, error)
}
