package chat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

// End-to-end flows over the router and the aggregator sharing one store,
// the way the server wires them.

func TestFlowOfflineReceiverCatchesUp(t *testing.T) {
	repo := newMockMessageRepo()
	router, _ := newTestRouter(repo)
	svc := NewService(repo, newMockDirectory(), zerolog.Nop())
	ctx := context.Background()

	// alice sends three messages while bob is entirely offline.
	register(router, "sess-a", "alice", "patient")
	router.StartConversation(ctx, "sess-a", StartConversationRequest{TargetUserID: "bob"})
	for _, content := range []string{"first", "second", "third"} {
		err := router.SendMessage(ctx, "sess-a", SendMessageRequest{
			RoomID:     "room_alice_bob",
			Content:    content,
			ReceiverID: "bob",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	// bob comes online and opens the conversation.
	bobSink := register(router, "sess-b", "bob", "clinician")
	if err := router.StartConversation(ctx, "sess-b", StartConversationRequest{TargetUserID: "alice"}); err != nil {
		t.Fatal(err)
	}

	var history MessageHistoryEvent
	json.Unmarshal(lastEvent(t, bobSink, EventMessageHistory), &history)
	if len(history.Messages) != 3 {
		t.Fatalf("expected 3 messages in history, got %d", len(history.Messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if history.Messages[i].Content != want {
			t.Errorf("history[%d] = %q, want %q", i, history.Messages[i].Content, want)
		}
	}

	summaries, err := svc.ConversationsFor(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(summaries))
	}
	if summaries[0].UnreadCount != 3 {
		t.Errorf("expected 3 unread, got %d", summaries[0].UnreadCount)
	}
	if summaries[0].LastMessage != "third" {
		t.Errorf("expected last message %q, got %q", "third", summaries[0].LastMessage)
	}
}

func TestFlowMarkAsReadDecrementsUnread(t *testing.T) {
	repo := newMockMessageRepo()
	router, _ := newTestRouter(repo)
	svc := NewService(repo, newMockDirectory(), zerolog.Nop())
	ctx := context.Background()

	register(router, "sess-a", "alice", "patient")
	register(router, "sess-b", "bob", "clinician")
	router.StartConversation(ctx, "sess-a", StartConversationRequest{TargetUserID: "bob"})
	router.StartConversation(ctx, "sess-b", StartConversationRequest{TargetUserID: "alice"})

	for _, content := range []string{"one", "two"} {
		router.SendMessage(ctx, "sess-a", SendMessageRequest{
			RoomID: "room_alice_bob", Content: content, ReceiverID: "bob",
		})
	}

	before, _ := svc.UnreadCount(ctx, "bob")
	if before != 2 {
		t.Fatalf("expected 2 unread before, got %d", before)
	}

	err := router.MarkAsRead(ctx, "sess-b", MarkAsReadRequest{
		RoomID:     "room_alice_bob",
		MessageIDs: []string{repo.messages[0].ID.String()},
	})
	if err != nil {
		t.Fatal(err)
	}

	after, _ := svc.UnreadCount(ctx, "bob")
	if after != before-1 {
		t.Errorf("expected unread to decrease by exactly 1, got %d -> %d", before, after)
	}

	summaries, err := svc.ConversationsFor(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if summaries[0].UnreadCount != 1 {
		t.Errorf("expected 1 unread in summary, got %d", summaries[0].UnreadCount)
	}
}

func TestFlowStartConversationEmptyHistory(t *testing.T) {
	router, _ := newTestRouter(newMockMessageRepo())
	ctx := context.Background()

	aliceSink := register(router, "sess-a", "alice", "patient")
	if err := router.StartConversation(ctx, "sess-a", StartConversationRequest{TargetUserID: "bob"}); err != nil {
		t.Fatal(err)
	}

	data := lastEvent(t, aliceSink, EventMessageHistory)

	// An empty history is an empty array on the wire, never null.
	var raw struct {
		Messages json.RawMessage `json:"messages"`
	}
	json.Unmarshal(data, &raw)
	if string(raw.Messages) != "[]" {
		t.Errorf("expected empty array history, got %s", raw.Messages)
	}
}
