// Package storage defines the persistence contract for the conversation
// engine: session CRUD, an append-only message log, and summary records.
//
// Two implementations ship with the module: PostgresStore (pgx/v5) for
// server deployments and SQLiteStore (modernc.org/sqlite) for the local
// single-user app. Each store call is atomic on its own; the engine does not
// assume atomicity across calls.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aeobrien/colloquy/sessionstate"
)

// ErrNotFound is returned when a session, message, or summary does not exist.
var ErrNotFound = errors.New("not found")

// Store is the storage interface the conversation engine depends on.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	SessionsByProject(ctx context.Context, projectID string) ([]*Session, error)
	// SessionByProjectAndStatus returns ErrNotFound when no session matches.
	SessionByProjectAndStatus(ctx context.Context, projectID string, status sessionstate.Status) (*Session, error)
	SessionsByStatus(ctx context.Context, status sessionstate.Status) ([]*Session, error)
	// SessionsPausedBefore returns paused sessions whose last activity is
	// older than the cutoff. Used by the auto-summarisation pass.
	SessionsPausedBefore(ctx context.Context, cutoff time.Time) ([]*Session, error)

	// Message operations. Messages are append-only: AppendMessage assigns
	// the next sequence number within the session and never overwrites.
	AppendMessage(ctx context.Context, msg *Message) error
	GetMessages(ctx context.Context, sessionID string) ([]*Message, error)

	// Summary operations. SaveSummary upserts by session: a session has at
	// most one summary, created at termination.
	SaveSummary(ctx context.Context, summary *Summary) error
	GetSummary(ctx context.Context, sessionID string) (*Summary, error)
	SummariesByProject(ctx context.Context, projectID string) ([]*Summary, error)
}

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session represents a conversation session owned by a project.
type Session struct {
	ID           string               `json:"id"`
	ProjectID    string               `json:"project_id"`
	Mode         sessionstate.Mode    `json:"mode"`
	SubMode      sessionstate.SubMode `json:"sub_mode,omitempty"`
	Status       sessionstate.Status  `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
	LastActiveAt time.Time            `json:"last_active_at"`
	// CompletedAt is set if and only if Status is terminal.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Message is one turn of a session. Immutable once appended; totally ordered
// by (Seq, CreatedAt) within its session.
type Message struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Seq       int    `json:"seq"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	// VoiceTranscript carries the raw speech-to-text output when the turn
	// was dictated, before any cleanup. Empty for typed turns.
	VoiceTranscript string    `json:"voice_transcript,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CompletionStatus records how a summarised session ended.
type CompletionStatus string

const (
	CompletionCompleted      CompletionStatus = "completed"
	CompletionUserEnded      CompletionStatus = "incomplete_user_ended"
	CompletionAutoSummarised CompletionStatus = "auto_summarised"
)

// Established is what the conversation settled: decisions made, facts
// learned, progress recorded.
type Established struct {
	Decisions    []string `json:"decisions"`
	FactsLearned []string `json:"facts_learned"`
	ProgressMade []string `json:"progress_made"`
}

// Observed is what the model noticed about the user's working patterns.
type Observed struct {
	Patterns  []string `json:"patterns"`
	Concerns  []string `json:"concerns"`
	Strengths []string `json:"strengths"`
}

// NextSteps is the forward-looking section of a summary.
type NextSteps struct {
	NextActions   []string `json:"next_actions"`
	OpenQuestions []string `json:"open_questions"`
	SuggestedMode string   `json:"suggested_mode,omitempty"`
}

// Summary is the structured end-of-session record. At most one per session.
type Summary struct {
	ID               string               `json:"id"`
	SessionID        string               `json:"session_id"`
	Mode             sessionstate.Mode    `json:"mode"`
	SubMode          sessionstate.SubMode `json:"sub_mode,omitempty"`
	CompletionStatus CompletionStatus     `json:"completion_status"`

	Established Established `json:"content_established"`
	Observed    Observed    `json:"content_observed"`
	Next        NextSteps   `json:"what_comes_next"`

	// ModePayload carries the optional mode-specific variant (for example
	// the deliverable list an exploration session produced). Opaque to the
	// engine.
	ModePayload json.RawMessage `json:"mode_payload,omitempty"`

	StartedAt    time.Time     `json:"started_at"`
	EndedAt      time.Time     `json:"ended_at"`
	Duration     time.Duration `json:"duration"`
	MessageCount int           `json:"message_count"`
	InputTokens  *int          `json:"input_tokens,omitempty"`
	OutputTokens *int          `json:"output_tokens,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
