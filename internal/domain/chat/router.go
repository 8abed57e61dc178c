package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Router orchestrates the realtime messaging flow: it validates sender
// registration, persists messages before any broadcast, maintains
// conversation metadata, fans events out to live sessions, and publishes
// presence transitions.
//
// Durability precedes visibility: a message is broadcast only after the
// store confirms the append. There is no retry; a failed append is terminal
// for that send attempt and the client resubmits.
type Router struct {
	registry SessionRegistry
	resolver *Resolver
	messages MessageRepository
	presence PresenceStore // optional shared presence, may be nil
	logger   zerolog.Logger

	now func() time.Time
}

// NewRouter wires the router over its collaborators.
func NewRouter(registry SessionRegistry, resolver *Resolver, messages MessageRepository, logger zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		resolver: resolver,
		messages: messages,
		logger:   logger,
		now:      time.Now,
	}
}

// WithPresence attaches a shared presence store for multi-instance
// deployments.
func (r *Router) WithPresence(store PresenceStore) *Router {
	r.presence = store
	return r
}

// Register binds a session to a participant and announces the participant as
// online to every connected session. Re-registering an existing session id
// overwrites the prior binding.
func (r *Router) Register(ctx context.Context, sessionID string, sink Sink, req RegisterRequest) {
	s := NewSession(sessionID, req.UserID, req.UserName, req.Role, sink)
	r.registry.Register(s)

	r.logger.Info().
		Str("session_id", sessionID).
		Str("user_id", s.UserID).
		Str("role", s.Role).
		Msg("session registered")

	if r.presence != nil {
		if err := r.presence.SetOnline(ctx, OnlineUser{UserID: s.UserID, UserName: s.UserName, Role: s.Role}); err != nil {
			r.logger.Warn().Err(err).Str("user_id", s.UserID).Msg("presence store set online failed")
		}
	}

	r.broadcastAll(EventUserStatusChanged, UserStatusEvent{
		UserID:    s.UserID,
		UserName:  s.UserName,
		Role:      s.Role,
		Status:    "online",
		Timestamp: r.now(),
	})
}

// Disconnect removes the session and, when it was the participant's last
// live session, announces the participant as offline. Unknown session ids
// are a no-op: the transport may close before registration ever happened.
func (r *Router) Disconnect(ctx context.Context, sessionID string) {
	s, wasLast, ok := r.registry.Unregister(sessionID)
	if !ok {
		return
	}

	r.logger.Info().
		Str("session_id", sessionID).
		Str("user_id", s.UserID).
		Bool("last_session", wasLast).
		Msg("session disconnected")

	if !wasLast {
		return
	}

	if r.presence != nil {
		if err := r.presence.SetOffline(ctx, s.UserID); err != nil {
			r.logger.Warn().Err(err).Str("user_id", s.UserID).Msg("presence store set offline failed")
		}
	}

	r.broadcastAll(EventUserStatusChanged, UserStatusEvent{
		UserID:    s.UserID,
		UserName:  s.UserName,
		Role:      s.Role,
		Status:    "offline",
		Timestamp: r.now(),
	})
}

// StartConversation resolves the conversation for the caller and the target
// participant, joins the caller to its fan-out group, and delivers the
// stored history to the caller. A history load failure is reported on the
// caller's channel but does not abort the join: the conversation stays
// usable for new messages.
func (r *Router) StartConversation(ctx context.Context, sessionID string, req StartConversationRequest) error {
	s, ok := r.registry.Get(sessionID)
	if !ok {
		return ErrNotRegistered
	}

	convID := ConversationID(s.UserID, req.TargetUserID)
	participants := [2]string{s.UserID, req.TargetUserID}
	if participants[1] < participants[0] {
		participants[0], participants[1] = participants[1], participants[0]
	}
	r.resolver.Ensure(convID, participants)

	r.registry.Join(sessionID, convID)
	r.sendTo(s, EventConversationStarted, ConversationStartedEvent{RoomID: convID})

	history, err := r.messages.ListByConversation(ctx, convID)
	if err != nil {
		r.logger.Error().Err(err).Str("conversation_id", convID).Msg("load message history")
		r.sendTo(s, EventError, ErrorEvent{Message: "Failed to load message history"})
		return nil
	}
	if history == nil {
		history = []*Message{}
	}

	r.sendTo(s, EventMessageHistory, MessageHistoryEvent{RoomID: convID, Messages: history})
	return nil
}

// SendMessage persists the message and, only after the store confirms it,
// fans it out to every live session in the conversation. Receiver sessions
// that are online but not joined to the conversation get a lightweight
// preview instead of the full message.
func (r *Router) SendMessage(ctx context.Context, sessionID string, req SendMessageRequest) error {
	s, ok := r.registry.Get(sessionID)
	if !ok {
		return ErrNotRegistered
	}

	if _, ok := r.resolver.Get(req.RoomID); !ok {
		return ErrConversationNotFound
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = "text"
	}

	msg := &Message{
		ConversationID: req.RoomID,
		SenderID:       s.UserID,
		ReceiverID:     req.ReceiverID,
		Content:        req.Content,
		MessageType:    messageType,
		SenderName:     s.UserName,
		SenderRole:     s.Role,
		IsRead:         false,
		CreatedAt:      r.now(),
	}

	// At most one persistence attempt; nothing is broadcast on failure.
	if err := r.messages.Append(ctx, msg); err != nil {
		r.logger.Error().Err(err).
			Str("conversation_id", req.RoomID).
			Str("sender_id", s.UserID).
			Msg("persist message")
		return fmt.Errorf("persist message: %w", err)
	}

	r.resolver.Touch(req.RoomID)

	data, err := EncodeEvent(EventNewMessage, msg)
	if err != nil {
		r.logger.Error().Err(err).Msg("encode message event")
		return nil
	}
	for _, member := range r.registry.GroupSessions(req.RoomID) {
		member.Deliver(data)
	}

	// Every receiver session outside the conversation group gets a preview,
	// so a participant elsewhere in the app learns a message arrived.
	preview := NewConversationEvent{
		RoomID:      req.RoomID,
		LastMessage: req.Content,
		SenderID:    s.UserID,
		SenderName:  s.UserName,
		SenderRole:  s.Role,
		Timestamp:   msg.CreatedAt,
	}
	for _, receiver := range r.registry.SessionsFor(req.ReceiverID) {
		if !r.registry.InGroup(receiver.ID, req.RoomID) {
			r.sendTo(receiver, EventNewConversation, preview)
		}
	}

	return nil
}

// MarkAsRead flips the read flag for the given message ids and broadcasts a
// read event to the conversation. The event is only emitted after the store
// confirms the update, so the sender's UI never shows a false read receipt.
func (r *Router) MarkAsRead(ctx context.Context, sessionID string, req MarkAsReadRequest) error {
	if _, ok := r.resolver.Get(req.RoomID); !ok {
		return ErrConversationNotFound
	}

	ids, err := parseMessageIDs(req.MessageIDs)
	if err != nil {
		return fmt.Errorf("parse message ids: %w", err)
	}

	if _, err := r.messages.MarkRead(ctx, ids); err != nil {
		r.logger.Error().Err(err).Str("conversation_id", req.RoomID).Msg("mark messages read")
		return fmt.Errorf("mark messages read: %w", err)
	}

	event := MessagesReadEvent{RoomID: req.RoomID, MessageIDs: req.MessageIDs}
	data, err := EncodeEvent(EventMessagesRead, event)
	if err != nil {
		r.logger.Error().Err(err).Msg("encode read event")
		return nil
	}
	for _, member := range r.registry.GroupSessions(req.RoomID) {
		member.Deliver(data)
	}

	return nil
}

// Typing broadcasts an ephemeral typing indicator to every other session in
// the conversation. Fire-and-forget: no persistence, no delivery guarantee,
// no error path.
func (r *Router) Typing(sessionID string, req TypingRequest) {
	s, ok := r.registry.Get(sessionID)
	if !ok || req.RoomID == "" {
		return
	}

	data, err := EncodeEvent(EventUserTyping, TypingEvent{
		UserID:   s.UserID,
		UserName: s.UserName,
		IsTyping: req.IsTyping,
		RoomID:   req.RoomID,
	})
	if err != nil {
		return
	}

	for _, member := range r.registry.GroupSessions(req.RoomID) {
		if member.ID == sessionID {
			continue
		}
		member.Deliver(data)
	}
}

// OnlineUsers returns the de-duplicated set of currently registered
// participants, preferring the shared presence store when configured.
func (r *Router) OnlineUsers(ctx context.Context) []OnlineUser {
	if r.presence != nil {
		users, err := r.presence.OnlineUsers(ctx)
		if err == nil {
			return users
		}
		r.logger.Warn().Err(err).Msg("presence store list failed, using local registry")
	}
	return r.registry.OnlineUsers()
}

// broadcastAll delivers an event to every connected session. Delivery to a
// session whose connection vanished in the meantime is a no-op.
func (r *Router) broadcastAll(event string, payload interface{}) {
	data, err := EncodeEvent(event, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("event", event).Msg("encode broadcast event")
		return
	}
	for _, s := range r.registry.All() {
		s.Deliver(data)
	}
}

func parseMessageIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("message id %q: %w", r, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// sendTo delivers an event to a single session, best-effort.
func (r *Router) sendTo(s *Session, event string, payload interface{}) {
	data, err := EncodeEvent(event, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("event", event).Msg("encode event")
		return
	}
	s.Deliver(data)
}
