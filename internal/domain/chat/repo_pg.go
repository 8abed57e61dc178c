package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type messageRepoPG struct{ pool *pgxpool.Pool }

// NewMessageRepoPG creates the PostgreSQL-backed message store.
func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

const messageCols = `id, conversation_id, sender_id, receiver_id, content, message_type,
	sender_name, sender_role, is_read, created_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Content,
		&m.MessageType, &m.SenderName, &m.SenderRole, &m.IsRead, &m.CreatedAt)
	return &m, err
}

func (r *messageRepoPG) Append(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_message (id, conversation_id, sender_id, receiver_id, content,
			message_type, sender_name, sender_role, is_read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		m.ID, m.ConversationID, m.SenderID, m.ReceiverID, m.Content,
		m.MessageType, m.SenderName, m.SenderRole, m.IsRead, m.CreatedAt)
	return err
}

func (r *messageRepoPG) ListByConversation(ctx context.Context, conversationID string) ([]*Message, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+messageCols+`
		FROM chat_message WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *messageRepoPG) ListForParticipant(ctx context.Context, participantID string) ([]*Message, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+messageCols+`
		FROM chat_message WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id DESC`,
		participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *messageRepoPG) MarkRead(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_message SET is_read = TRUE WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *messageRepoPG) CountUnread(ctx context.Context, participantID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_message WHERE receiver_id = $1 AND is_read = FALSE`,
		participantID).Scan(&count)
	return count, err
}
