package chat

import (
	"testing"
	"time"
)

func TestConversationIDSymmetric(t *testing.T) {
	a := ConversationID("alice", "bob")
	b := ConversationID("bob", "alice")
	if a != b {
		t.Errorf("expected symmetric ids, got %q and %q", a, b)
	}
	if a != "room_alice_bob" {
		t.Errorf("expected room_alice_bob, got %q", a)
	}
}

func TestConversationIDSelf(t *testing.T) {
	id := ConversationID("alice", "alice")
	if id != "room_alice_alice" {
		t.Errorf("expected room_alice_alice, got %q", id)
	}
}

func TestResolverEnsureIdempotent(t *testing.T) {
	r := NewResolver()

	first := r.Ensure("room_a_b", [2]string{"a", "b"})
	second := r.Ensure("room_a_b", [2]string{"a", "b"})

	if first.ID != second.ID {
		t.Errorf("expected same conversation, got %q and %q", first.ID, second.ID)
	}

	if _, ok := r.Get("room_a_b"); !ok {
		t.Error("expected conversation to exist after Ensure")
	}
	if _, ok := r.Get("room_x_y"); ok {
		t.Error("expected unknown conversation to be absent")
	}
}

func TestResolverTouchUpdatesActivity(t *testing.T) {
	r := NewResolver()
	current := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	r.Ensure("room_a_b", [2]string{"a", "b"})

	current = current.Add(time.Minute)
	r.Touch("room_a_b")

	conv, _ := r.Get("room_a_b")
	if !conv.LastActivity.Equal(current) {
		t.Errorf("expected last activity %v, got %v", current, conv.LastActivity)
	}

	// Touching an unknown conversation is a no-op.
	r.Touch("room_x_y")
}
