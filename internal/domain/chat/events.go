package chat

import (
	"encoding/json"
	"time"
)

// Wire event names shared by clients and server. Inbound events carry a
// payload in the envelope's data field; outbound events reuse the same
// envelope shape.
const (
	EventRegister          = "register"
	EventStartConversation = "startConversation"
	EventSendMessage       = "sendMessage"
	EventMarkAsRead        = "markAsRead"
	EventTyping            = "typing"
	EventGetOnlineUsers    = "getOnlineUsers"

	EventUserStatusChanged   = "user-status-changed"
	EventConversationStarted = "conversationStarted"
	EventMessageHistory      = "messageHistory"
	EventNewMessage          = "newMessage"
	EventNewConversation     = "newConversation"
	EventMessagesRead        = "messagesRead"
	EventUserTyping          = "userTyping"
	EventOnlineUsers         = "onlineUsers"
	EventError               = "error"
)

// Envelope frames every event on the per-session channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent frames a payload into an envelope ready for the wire.
func EncodeEvent(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// -- Inbound payloads --

type RegisterRequest struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	Role     string `json:"role"`
}

type StartConversationRequest struct {
	TargetUserID string `json:"targetUserId"`
}

type SendMessageRequest struct {
	RoomID      string `json:"roomId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType,omitempty"`
	ReceiverID  string `json:"receiverId"`
}

type MarkAsReadRequest struct {
	RoomID     string   `json:"roomId"`
	MessageIDs []string `json:"messageIds"`
}

type TypingRequest struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

// -- Outbound payloads --

type UserStatusEvent struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type ConversationStartedEvent struct {
	RoomID string `json:"roomId"`
}

type MessageHistoryEvent struct {
	RoomID   string     `json:"roomId"`
	Messages []*Message `json:"messages"`
}

// NewConversationEvent is the lightweight preview sent to a receiver who is
// online but not joined to the conversation.
type NewConversationEvent struct {
	RoomID      string    `json:"roomId"`
	LastMessage string    `json:"lastMessage"`
	SenderID    string    `json:"senderId"`
	SenderName  string    `json:"senderName"`
	SenderRole  string    `json:"senderRole"`
	Timestamp   time.Time `json:"timestamp"`
}

type MessagesReadEvent struct {
	RoomID     string   `json:"roomId"`
	MessageIDs []string `json:"messageIds"`
}

type TypingEvent struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
	RoomID   string `json:"roomId"`
}

type OnlineUser struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
