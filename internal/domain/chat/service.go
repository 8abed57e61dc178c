package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ProfileResolver looks up a participant's directory profile. The chat core
// treats participant ids as opaque, so resolution lives behind this seam and
// the directory domain plugs in at wiring time.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, id string) (*Profile, error)
}

// Service answers the read-side questions about a participant's
// conversations: what threads exist, what was said last, and how much is
// unread. It derives everything from the message store on each call rather
// than keeping materialized state.
type Service struct {
	messages  MessageRepository
	directory ProfileResolver
	logger    zerolog.Logger
}

// NewService wires the aggregator over the message store and the directory.
func NewService(messages MessageRepository, directory ProfileResolver, logger zerolog.Logger) *Service {
	return &Service{
		messages:  messages,
		directory: directory,
		logger:    logger,
	}
}

// ConversationsFor returns one summary per conversation the participant is
// part of, most recently active first. Unread counts only cover messages
// addressed to the participant. A directory miss for the other participant
// degrades to the name and role captured on their messages.
func (s *Service) ConversationsFor(ctx context.Context, participantID string) ([]*ConversationSummary, error) {
	msgs, err := s.messages.ListForParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", participantID, err)
	}

	// Messages arrive newest first, so the first message seen per
	// conversation is its last message and first-seen order is already the
	// final sort order.
	summaries := make([]*ConversationSummary, 0)
	byConv := make(map[string]*ConversationSummary)
	otherIDs := make(map[string]string)

	for _, m := range msgs {
		otherID := m.ReceiverID
		if otherID == participantID {
			otherID = m.SenderID
		}

		sum, ok := byConv[m.ConversationID]
		if !ok {
			sum = &ConversationSummary{
				ConversationID:  m.ConversationID,
				LastMessage:     m.Content,
				LastMessageTime: m.CreatedAt,
			}
			byConv[m.ConversationID] = sum
			otherIDs[m.ConversationID] = otherID
			summaries = append(summaries, sum)
		}

		if m.ReceiverID == participantID && !m.IsRead {
			sum.UnreadCount++
		}

		// Capture the freshest denormalized identity of the other
		// participant in case the directory cannot resolve them.
		if m.SenderID == otherID && sum.OtherUser.Name == "" {
			sum.OtherUser = Profile{ID: otherID, Name: m.SenderName, Role: m.SenderRole}
		}
	}

	for _, sum := range summaries {
		otherID := otherIDs[sum.ConversationID]
		profile, err := s.directory.ResolveProfile(ctx, otherID)
		if err != nil {
			s.logger.Warn().Err(err).Str("participant_id", otherID).Msg("resolve profile")
			if sum.OtherUser.ID == "" {
				sum.OtherUser = Profile{ID: otherID, Name: otherID}
			}
			// Degraded rendering still carries an email and a role.
			if sum.OtherUser.Email == "" {
				sum.OtherUser.Email = otherID
			}
			if sum.OtherUser.Role == "" {
				sum.OtherUser.Role = "Unknown"
			}
			continue
		}
		sum.OtherUser = *profile
	}

	return summaries, nil
}

// UnreadCount returns the number of unread messages addressed to the
// participant across all conversations.
func (s *Service) UnreadCount(ctx context.Context, participantID string) (int, error) {
	n, err := s.messages.CountUnread(ctx, participantID)
	if err != nil {
		return 0, fmt.Errorf("count unread for %s: %w", participantID, err)
	}
	return n, nil
}
