package colloquy

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig is returned when the engine configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSessionNotFound is returned when a session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotActive is returned when an operation requires an active
	// session and the session is in any other status
	ErrSessionNotActive = errors.New("session not active")

	// ErrInvalidTransition is returned when a status change is not an edge
	// of the session transition graph
	ErrInvalidTransition = errors.New("invalid session transition")
)

// ConversationError represents an error with additional context
type ConversationError struct {
	Op        string // Operation that failed
	Err       error  // Underlying error
	SessionID string // Session ID if applicable
}

// Error implements the error interface
func (e *ConversationError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("%s (session=%s): %v", e.Op, e.SessionID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *ConversationError) Unwrap() error {
	return e.Err
}

// NewConversationError creates a new ConversationError
func NewConversationError(op string, err error) *ConversationError {
	return &ConversationError{Op: op, Err: err}
}

// NewConversationErrorWithSession creates a new ConversationError with session ID
func NewConversationErrorWithSession(op string, sessionID string, err error) *ConversationError {
	return &ConversationError{Op: op, Err: err, SessionID: sessionID}
}
