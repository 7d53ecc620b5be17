package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aeobrien/colloquy/sessionstate"
)

// utcNow truncates to microseconds so timestamps survive a round trip
// through timestamptz columns unchanged.
func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// exerciseStore runs the behavioural suite shared by both backends.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	newSession := func(t *testing.T, projectID string, status sessionstate.Status, lastActive time.Time) *Session {
		t.Helper()
		s := &Session{
			ID:           uuid.New().String(),
			ProjectID:    projectID,
			Mode:         sessionstate.ModeExecutionSupport,
			SubMode:      sessionstate.SubModeCheckIn,
			Status:       status,
			CreatedAt:    lastActive.Add(-time.Hour),
			LastActiveAt: lastActive,
		}
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		return s
	}

	t.Run("session round trip", func(t *testing.T) {
		created := newSession(t, uuid.New().String(), sessionstate.StatusActive, utcNow())

		got, err := store.GetSession(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if got.ProjectID != created.ProjectID || got.Mode != created.Mode || got.SubMode != created.SubMode {
			t.Errorf("got %+v, want %+v", got, created)
		}
		if got.Status != sessionstate.StatusActive || got.CompletedAt != nil {
			t.Errorf("status %q, completedAt %v", got.Status, got.CompletedAt)
		}
		if !got.LastActiveAt.Equal(created.LastActiveAt) {
			t.Errorf("LastActiveAt = %v, want %v", got.LastActiveAt, created.LastActiveAt)
		}
	})

	t.Run("update session", func(t *testing.T) {
		s := newSession(t, uuid.New().String(), sessionstate.StatusActive, utcNow())

		now := utcNow()
		s.Status = sessionstate.StatusCompleted
		s.CompletedAt = &now
		if err := store.UpdateSession(ctx, s); err != nil {
			t.Fatalf("UpdateSession: %v", err)
		}

		got, _ := store.GetSession(ctx, s.ID)
		if got.Status != sessionstate.StatusCompleted {
			t.Errorf("status = %q", got.Status)
		}
		if got.CompletedAt == nil || !got.CompletedAt.Equal(now) {
			t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, now)
		}
	})

	t.Run("session not found", func(t *testing.T) {
		if _, err := store.GetSession(ctx, uuid.New().String()); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetSession: err = %v, want ErrNotFound", err)
		}
		missing := &Session{ID: uuid.New().String(), Status: sessionstate.StatusActive,
			Mode: sessionstate.ModePlanning, CreatedAt: time.Now(), LastActiveAt: time.Now()}
		if err := store.UpdateSession(ctx, missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateSession: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("session by project and status", func(t *testing.T) {
		projectID := uuid.New().String()
		active := newSession(t, projectID, sessionstate.StatusActive, utcNow())
		newSession(t, projectID, sessionstate.StatusPaused, utcNow())

		got, err := store.SessionByProjectAndStatus(ctx, projectID, sessionstate.StatusActive)
		if err != nil {
			t.Fatalf("SessionByProjectAndStatus: %v", err)
		}
		if got.ID != active.ID {
			t.Errorf("got %s, want %s", got.ID, active.ID)
		}

		_, err = store.SessionByProjectAndStatus(ctx, projectID, sessionstate.StatusCompleted)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("no match: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("sessions paused before", func(t *testing.T) {
		projectID := uuid.New().String()
		now := utcNow()
		stale := newSession(t, projectID, sessionstate.StatusPaused, now.Add(-48*time.Hour))
		newSession(t, projectID, sessionstate.StatusPaused, now.Add(-time.Hour))
		newSession(t, projectID, sessionstate.StatusActive, now.Add(-48*time.Hour))

		got, err := store.SessionsPausedBefore(ctx, now.Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("SessionsPausedBefore: %v", err)
		}
		var ids []string
		for _, s := range got {
			if s.ProjectID == projectID {
				ids = append(ids, s.ID)
			}
		}
		if len(ids) != 1 || ids[0] != stale.ID {
			t.Errorf("got %v, want [%s]", ids, stale.ID)
		}
	})

	t.Run("messages", func(t *testing.T) {
		s := newSession(t, uuid.New().String(), sessionstate.StatusActive, utcNow())

		first := &Message{SessionID: s.ID, Role: RoleUser, Content: "hello", VoiceTranscript: "um, hello"}
		if err := store.AppendMessage(ctx, first); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
		if first.ID == "" || first.Seq != 1 {
			t.Errorf("first message: id=%q seq=%d", first.ID, first.Seq)
		}

		second := &Message{SessionID: s.ID, Role: RoleAssistant, Content: "hi there"}
		if err := store.AppendMessage(ctx, second); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
		if second.Seq != 2 {
			t.Errorf("second message seq = %d, want 2", second.Seq)
		}

		msgs, err := store.GetMessages(ctx, s.ID)
		if err != nil {
			t.Fatalf("GetMessages: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("len(msgs) = %d, want 2", len(msgs))
		}
		if msgs[0].Content != "hello" || msgs[0].VoiceTranscript != "um, hello" {
			t.Errorf("first turn: %+v", msgs[0])
		}
		if msgs[1].Role != RoleAssistant || msgs[1].Content != "hi there" {
			t.Errorf("second turn: %+v", msgs[1])
		}
	})

	t.Run("summaries", func(t *testing.T) {
		projectID := uuid.New().String()
		s := newSession(t, projectID, sessionstate.StatusCompleted, utcNow())

		in, out := 321, 123
		record := &Summary{
			ID:               uuid.New().String(),
			SessionID:        s.ID,
			Mode:             s.Mode,
			SubMode:          s.SubMode,
			CompletionStatus: CompletionCompleted,
			Established: Established{
				Decisions:    []string{"weekly check-ins"},
				ProgressMade: []string{"outline finished"},
			},
			Observed: Observed{Patterns: []string{"works in short bursts"}},
			Next: NextSteps{
				NextActions:   []string{"book studio time"},
				SuggestedMode: "planning",
			},
			StartedAt:    utcNow().Add(-30 * time.Minute),
			EndedAt:      utcNow(),
			Duration:     30 * time.Minute,
			MessageCount: 6,
			InputTokens:  &in,
			OutputTokens: &out,
			CreatedAt:    utcNow(),
		}
		if err := store.SaveSummary(ctx, record); err != nil {
			t.Fatalf("SaveSummary: %v", err)
		}

		got, err := store.GetSummary(ctx, s.ID)
		if err != nil {
			t.Fatalf("GetSummary: %v", err)
		}
		if got.CompletionStatus != CompletionCompleted {
			t.Errorf("CompletionStatus = %q", got.CompletionStatus)
		}
		if len(got.Established.Decisions) != 1 || got.Established.Decisions[0] != "weekly check-ins" {
			t.Errorf("Established = %+v", got.Established)
		}
		if got.Next.SuggestedMode != "planning" {
			t.Errorf("SuggestedMode = %q", got.Next.SuggestedMode)
		}
		if got.Duration != 30*time.Minute || got.MessageCount != 6 {
			t.Errorf("duration %v, count %d", got.Duration, got.MessageCount)
		}
		if got.InputTokens == nil || *got.InputTokens != 321 {
			t.Errorf("InputTokens = %v", got.InputTokens)
		}

		byProject, err := store.SummariesByProject(ctx, projectID)
		if err != nil {
			t.Fatalf("SummariesByProject: %v", err)
		}
		if len(byProject) != 1 || byProject[0].SessionID != s.ID {
			t.Errorf("byProject = %+v", byProject)
		}

		if _, err := store.GetSummary(ctx, uuid.New().String()); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing summary: err = %v, want ErrNotFound", err)
		}
	})
}
