package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/craftelle/carechat/internal/platform/websocket"
)

type stubConn struct{}

func (stubConn) ReadMessage() (int, []byte, error)  { return 0, nil, errors.New("closed") }
func (stubConn) WriteMessage(int, []byte) error     { return nil }
func (stubConn) Close() error                       { return nil }

func newTestGateway(repo MessageRepository) (*Gateway, *Router) {
	router := NewRouter(NewInMemoryRegistry(), NewResolver(), repo, zerolog.Nop())
	return NewGateway(router, 16, zerolog.Nop()), router
}

func frame(t *testing.T, event string, payload interface{}) []byte {
	t.Helper()
	data, err := EncodeEvent(event, payload)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func nextEvent(t *testing.T, client *websocket.Client) Envelope {
	t.Helper()
	select {
	case data := <-client.Send:
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("malformed envelope %s: %v", data, err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("no event on client channel")
		return Envelope{}
	}
}

func expectError(t *testing.T, client *websocket.Client, want string) {
	t.Helper()
	for i := 0; i < 8; i++ {
		env := nextEvent(t, client)
		if env.Event != EventError {
			continue
		}
		var e ErrorEvent
		json.Unmarshal(env.Data, &e)
		if e.Message != want {
			t.Errorf("expected error %q, got %q", want, e.Message)
		}
		return
	}
	t.Fatalf("no error event seen, wanted %q", want)
}

func TestGatewayRequiresRegistration(t *testing.T) {
	g, _ := newTestGateway(newMockMessageRepo())
	client := websocket.NewClient(stubConn{}, 16)
	ctx := context.Background()

	g.dispatch(ctx, client, frame(t, EventSendMessage, SendMessageRequest{RoomID: "room_a_b"}))
	expectError(t, client, "You must register first")

	g.dispatch(ctx, client, frame(t, EventStartConversation, StartConversationRequest{TargetUserID: "bob"}))
	expectError(t, client, "You must register first")
}

func TestGatewayConversationNotFound(t *testing.T) {
	g, _ := newTestGateway(newMockMessageRepo())
	client := websocket.NewClient(stubConn{}, 16)
	ctx := context.Background()

	g.dispatch(ctx, client, frame(t, EventRegister, RegisterRequest{UserID: "alice", Role: "patient"}))
	g.dispatch(ctx, client, frame(t, EventSendMessage, SendMessageRequest{RoomID: "room_nope", Content: "hi"}))
	expectError(t, client, "Conversation not found")
}

func TestGatewaySendMessageRoundTrip(t *testing.T) {
	repo := newMockMessageRepo()
	g, _ := newTestGateway(repo)
	client := websocket.NewClient(stubConn{}, 16)
	ctx := context.Background()

	g.dispatch(ctx, client, frame(t, EventRegister, RegisterRequest{UserID: "alice", Role: "patient"}))
	g.dispatch(ctx, client, frame(t, EventStartConversation, StartConversationRequest{TargetUserID: "bob"}))
	g.dispatch(ctx, client, frame(t, EventSendMessage, SendMessageRequest{
		RoomID:     "room_alice_bob",
		Content:    "hello",
		ReceiverID: "bob",
	}))

	if len(repo.messages) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(repo.messages))
	}

	// alice is in the room, so her own message comes back as newMessage.
	var sawNewMessage bool
	for i := 0; i < 8 && !sawNewMessage; i++ {
		if nextEvent(t, client).Event == EventNewMessage {
			sawNewMessage = true
		}
	}
	if !sawNewMessage {
		t.Error("expected newMessage echo to the sender's session")
	}
}

func TestGatewaySendFailureString(t *testing.T) {
	repo := newMockMessageRepo()
	repo.appendErr = errors.New("disk full")
	g, _ := newTestGateway(repo)
	client := websocket.NewClient(stubConn{}, 16)
	ctx := context.Background()

	g.dispatch(ctx, client, frame(t, EventRegister, RegisterRequest{UserID: "alice", Role: "patient"}))
	g.dispatch(ctx, client, frame(t, EventStartConversation, StartConversationRequest{TargetUserID: "bob"}))
	g.dispatch(ctx, client, frame(t, EventSendMessage, SendMessageRequest{
		RoomID:     "room_alice_bob",
		Content:    "hello",
		ReceiverID: "bob",
	}))
	expectError(t, client, "Failed to send message")
}

func TestGatewayMarkAsReadFailureString(t *testing.T) {
	repo := newMockMessageRepo()
	repo.markErr = errors.New("db down")
	g, _ := newTestGateway(repo)
	client := websocket.NewClient(stubConn{}, 16)
	ctx := context.Background()

	g.dispatch(ctx, client, frame(t, EventRegister, RegisterRequest{UserID: "alice", Role: "patient"}))
	g.dispatch(ctx, client, frame(t, EventStartConversation, StartConversationRequest{TargetUserID: "bob"}))
	g.dispatch(ctx, client, frame(t, EventMarkAsRead, MarkAsReadRequest{
		RoomID:     "room_alice_bob",
		MessageIDs: []string{"11111111-1111-1111-1111-111111111111"},
	}))
	expectError(t, client, "Failed to mark messages as read")
}

func TestGatewayGetOnlineUsersWithoutRegistration(t *testing.T) {
	g, router := newTestGateway(newMockMessageRepo())
	register(router, "sess-x", "bob", "clinician")

	client := websocket.NewClient(stubConn{}, 16)
	g.dispatch(context.Background(), client, frame(t, EventGetOnlineUsers, nil))

	env := nextEvent(t, client)
	if env.Event != EventOnlineUsers {
		t.Fatalf("expected onlineUsers, got %q", env.Event)
	}
	var users []OnlineUser
	json.Unmarshal(env.Data, &users)
	if len(users) != 1 || users[0].UserID != "bob" {
		t.Errorf("unexpected online users %v", users)
	}
}

func TestGatewayDropsMalformedFrames(t *testing.T) {
	g, _ := newTestGateway(newMockMessageRepo())
	client := websocket.NewClient(stubConn{}, 16)
	ctx := context.Background()

	g.dispatch(ctx, client, []byte("{not json"))
	g.dispatch(ctx, client, frame(t, "someUnknownEvent", nil))

	select {
	case data := <-client.Send:
		t.Errorf("expected no reply to malformed input, got %s", data)
	default:
	}
}
