package colloquy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aeobrien/colloquy/sessionstate"
	"github.com/aeobrien/colloquy/storage"
)

// StartSession creates a new active session for the project. A project
// has at most one active session: if one exists it is paused first, as
// part of the same logical operation.
func (e *Engine) StartSession(ctx context.Context, projectID string, mode sessionstate.Mode, subMode sessionstate.SubMode) (*storage.Session, error) {
	const op = "start session"

	if !sessionstate.ValidPair(mode, subMode) {
		return nil, NewConversationError(op, fmt.Errorf("%w: invalid mode pair %q/%q", ErrInvalidConfig, mode, subMode))
	}

	existing, err := e.store.SessionByProjectAndStatus(ctx, projectID, sessionstate.StatusActive)
	switch {
	case err == nil:
		if _, err := e.TransitionSession(ctx, existing.ID, sessionstate.StatusPaused); err != nil {
			return nil, NewConversationErrorWithSession(op, existing.ID, err)
		}
	case errors.Is(err, storage.ErrNotFound):
		// No active session to displace.
	default:
		return nil, NewConversationError(op, err)
	}

	now := time.Now()
	session := &storage.Session{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		Mode:         mode,
		SubMode:      subMode,
		Status:       sessionstate.StatusActive,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := e.store.CreateSession(ctx, session); err != nil {
		return nil, NewConversationErrorWithSession(op, session.ID, err)
	}
	return session, nil
}

// ResumeSession reactivates a paused session. Any other current status,
// terminal ones included, is an invalid transition.
func (e *Engine) ResumeSession(ctx context.Context, sessionID string) (*storage.Session, error) {
	const op = "resume session"

	session, err := e.getSession(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != sessionstate.StatusPaused {
		return nil, NewConversationErrorWithSession(op, sessionID,
			fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, session.Status, sessionstate.StatusActive))
	}
	return e.TransitionSession(ctx, sessionID, sessionstate.StatusActive)
}

// PauseSession moves an active session to paused.
func (e *Engine) PauseSession(ctx context.Context, sessionID string) (*storage.Session, error) {
	return e.TransitionSession(ctx, sessionID, sessionstate.StatusPaused)
}

// TransitionSession moves a session along one edge of the status graph.
// CompletedAt is set exactly when the target status is terminal.
func (e *Engine) TransitionSession(ctx context.Context, sessionID string, to sessionstate.Status) (*storage.Session, error) {
	const op = "transition session"

	session, err := e.getSession(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if !sessionstate.CanTransition(session.Status, to) {
		return nil, NewConversationErrorWithSession(op, sessionID,
			fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, session.Status, to))
	}

	session.Status = to
	if to.IsTerminal() {
		now := time.Now()
		session.CompletedAt = &now
	}
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	return session, nil
}

// PausedSession returns the project's paused session, or nil when the
// project has none.
func (e *Engine) PausedSession(ctx context.Context, projectID string) (*storage.Session, error) {
	session, err := e.store.SessionByProjectAndStatus(ctx, projectID, sessionstate.StatusPaused)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, NewConversationError("paused session", err)
	}
	return session, nil
}

// AddMessage appends one turn to the session and advances the session's
// last-active timestamp to the message timestamp.
func (e *Engine) AddMessage(ctx context.Context, sessionID string, role storage.Role, content, voiceTranscript string) (*storage.Message, error) {
	const op = "add message"

	session, err := e.getSession(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}

	msg := &storage.Message{
		ID:              uuid.New().String(),
		SessionID:       sessionID,
		Role:            role,
		Content:         content,
		VoiceTranscript: voiceTranscript,
		CreatedAt:       time.Now(),
	}
	if err := e.store.AppendMessage(ctx, msg); err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}

	session.LastActiveAt = msg.CreatedAt
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	return msg, nil
}

func (e *Engine) getSession(ctx context.Context, op, sessionID string) (*storage.Session, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, NewConversationErrorWithSession(op, sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	return session, nil
}
