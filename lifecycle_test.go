package colloquy

import (
	"context"
	"errors"
	"testing"

	"github.com/aeobrien/colloquy/internal/testutil"
	"github.com/aeobrien/colloquy/sessionstate"
	"github.com/aeobrien/colloquy/storage"
)

func TestStartSession(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, testutil.NewScriptClient())

	session, err := engine.StartSession(ctx, "proj-1", sessionstate.ModeExploration, sessionstate.SubModeNone)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if session.Status != sessionstate.StatusActive {
		t.Errorf("status = %q, want %q", session.Status, sessionstate.StatusActive)
	}
	if session.ID == "" || session.ProjectID != "proj-1" {
		t.Errorf("bad session identity: %+v", session)
	}
	if session.CreatedAt.IsZero() || !session.LastActiveAt.Equal(session.CreatedAt) {
		t.Errorf("timestamps: created=%v lastActive=%v", session.CreatedAt, session.LastActiveAt)
	}
}

func TestStartSession_RejectsInvalidModePair(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, testutil.NewScriptClient())

	_, err := engine.StartSession(ctx, "proj-1", sessionstate.ModeExploration, sessionstate.SubModeCheckIn)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}

	_, err = engine.StartSession(ctx, "proj-1", sessionstate.ModeExecutionSupport, sessionstate.SubModeNone)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("execution without sub-mode: err = %v, want ErrInvalidConfig", err)
	}
}

func TestStartSession_PausesExistingActive(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, testutil.NewScriptClient())

	first, err := engine.StartSession(ctx, "proj-1", sessionstate.ModeExploration, sessionstate.SubModeNone)
	if err != nil {
		t.Fatalf("first StartSession: %v", err)
	}
	second, err := engine.StartSession(ctx, "proj-1", sessionstate.ModeDefinition, sessionstate.SubModeNone)
	if err != nil {
		t.Fatalf("second StartSession: %v", err)
	}

	reloaded, err := store.GetSession(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if reloaded.Status != sessionstate.StatusPaused {
		t.Errorf("first session status = %q, want %q", reloaded.Status, sessionstate.StatusPaused)
	}
	if second.Status != sessionstate.StatusActive {
		t.Errorf("second session status = %q, want %q", second.Status, sessionstate.StatusActive)
	}
}

func TestResumeSession(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, testutil.NewScriptClient())

	session, _ := engine.StartSession(ctx, "proj-1", sessionstate.ModePlanning, sessionstate.SubModeNone)
	if _, err := engine.PauseSession(ctx, session.ID); err != nil {
		t.Fatalf("PauseSession: %v", err)
	}

	resumed, err := engine.ResumeSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if resumed.Status != sessionstate.StatusActive {
		t.Errorf("status = %q, want %q", resumed.Status, sessionstate.StatusActive)
	}
}

func TestResumeSession_OnlyFromPaused(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, testutil.NewScriptClient())

	active, _ := engine.StartSession(ctx, "proj-1", sessionstate.ModePlanning, sessionstate.SubModeNone)
	if _, err := engine.ResumeSession(ctx, active.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("resume active: err = %v, want ErrInvalidTransition", err)
	}

	done, _ := engine.StartSession(ctx, "proj-2", sessionstate.ModePlanning, sessionstate.SubModeNone)
	if _, err := engine.TransitionSession(ctx, done.ID, sessionstate.StatusCompleted); err != nil {
		t.Fatalf("TransitionSession: %v", err)
	}
	if _, err := engine.ResumeSession(ctx, done.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("resume completed: err = %v, want ErrInvalidTransition", err)
	}
}

func TestTransitionSession_TerminalSetsCompletedAt(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, testutil.NewScriptClient())

	session, _ := engine.StartSession(ctx, "proj-1", sessionstate.ModePlanning, sessionstate.SubModeNone)

	paused, err := engine.TransitionSession(ctx, session.ID, sessionstate.StatusPaused)
	if err != nil {
		t.Fatalf("to paused: %v", err)
	}
	if paused.CompletedAt != nil {
		t.Error("CompletedAt set on non-terminal transition")
	}

	completed, err := engine.TransitionSession(ctx, session.ID, sessionstate.StatusCompleted)
	if err != nil {
		t.Fatalf("to completed: %v", err)
	}
	if completed.CompletedAt == nil {
		t.Error("CompletedAt not set on terminal transition")
	}
}

func TestTransitionSession_RejectsInvalidEdge(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, testutil.NewScriptClient())

	session, _ := engine.StartSession(ctx, "proj-1", sessionstate.ModePlanning, sessionstate.SubModeNone)
	if _, err := engine.TransitionSession(ctx, session.ID, sessionstate.StatusCompleted); err != nil {
		t.Fatalf("to completed: %v", err)
	}

	_, err := engine.TransitionSession(ctx, session.ID, sessionstate.StatusActive)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestPausedSession(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, testutil.NewScriptClient())

	got, err := engine.PausedSession(ctx, "proj-1")
	if err != nil {
		t.Fatalf("PausedSession: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil when no paused session exists", got)
	}

	session, _ := engine.StartSession(ctx, "proj-1", sessionstate.ModeExploration, sessionstate.SubModeNone)
	engine.PauseSession(ctx, session.ID)

	got, err = engine.PausedSession(ctx, "proj-1")
	if err != nil {
		t.Fatalf("PausedSession: %v", err)
	}
	if got == nil || got.ID != session.ID {
		t.Errorf("got %+v, want session %s", got, session.ID)
	}
}

func TestAddMessage(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, testutil.NewScriptClient())

	session, _ := engine.StartSession(ctx, "proj-1", sessionstate.ModeExploration, sessionstate.SubModeNone)

	msg, err := engine.AddMessage(ctx, session.ID, storage.RoleUser, "hello", "uh, hello")
	if err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if msg.Seq != 1 || msg.VoiceTranscript != "uh, hello" {
		t.Errorf("message: %+v", msg)
	}

	reloaded, _ := store.GetSession(ctx, session.ID)
	if !reloaded.LastActiveAt.Equal(msg.CreatedAt) {
		t.Errorf("LastActiveAt = %v, want %v", reloaded.LastActiveAt, msg.CreatedAt)
	}
}

func TestAddMessage_SessionNotFound(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, testutil.NewScriptClient())

	_, err := engine.AddMessage(ctx, "missing", storage.RoleUser, "hello", "")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}

	var convErr *ConversationError
	if !errors.As(err, &convErr) {
		t.Fatalf("err is not a ConversationError: %v", err)
	}
	if convErr.SessionID != "missing" {
		t.Errorf("SessionID = %q, want %q", convErr.SessionID, "missing")
	}
}
