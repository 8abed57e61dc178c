package chat

import "errors"

// Sentinel errors for the user-visible failure modes of the router. None of
// them is fatal to the connection; the wire adapter turns each into an error
// event on the caller's channel.
var (
	// ErrNotRegistered is returned when a session attempts an operation
	// before registering.
	ErrNotRegistered = errors.New("you must register first")

	// ErrConversationNotFound is returned when an operation references a
	// conversation id that has not been started on this instance.
	ErrConversationNotFound = errors.New("conversation not found")
)
