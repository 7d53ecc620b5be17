package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aeobrien/colloquy/sessionstate"
)

// PostgresStore implements Store using PostgreSQL with pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS colloquy_sessions (
	id UUID PRIMARY KEY,
	project_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	sub_mode TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	last_active_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS colloquy_sessions_project_status
	ON colloquy_sessions (project_id, status);
CREATE INDEX IF NOT EXISTS colloquy_sessions_status_last_active
	ON colloquy_sessions (status, last_active_at);

CREATE TABLE IF NOT EXISTS colloquy_messages (
	id UUID PRIMARY KEY,
	session_id UUID NOT NULL REFERENCES colloquy_sessions(id),
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	voice_transcript TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (session_id, seq)
);

CREATE TABLE IF NOT EXISTS colloquy_summaries (
	id UUID PRIMARY KEY,
	session_id UUID NOT NULL UNIQUE REFERENCES colloquy_sessions(id),
	mode TEXT NOT NULL,
	sub_mode TEXT NOT NULL DEFAULT '',
	completion_status TEXT NOT NULL,
	established JSONB NOT NULL,
	observed JSONB NOT NULL,
	next_steps JSONB NOT NULL,
	mode_payload JSONB,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	message_count INTEGER NOT NULL,
	input_tokens INTEGER,
	output_tokens INTEGER,
	created_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the engine's tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

const sessionColumns = `id, project_id, mode, sub_mode, status, created_at, last_active_at, completed_at`

// CreateSession persists a new session. Assigns an ID when unset.
func (s *PostgresStore) CreateSession(ctx context.Context, session *Session) error {
	if session.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.LastActiveAt.IsZero() {
		session.LastActiveAt = session.CreatedAt
	}

	query := `
		INSERT INTO colloquy_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, query,
		session.ID, session.ProjectID, string(session.Mode), string(session.SubMode),
		string(session.Status), session.CreatedAt, session.LastActiveAt, session.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM colloquy_sessions WHERE id = $1`
	session, err := scanSessionRow(s.pool.QueryRow(ctx, query, sessionID))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// UpdateSession persists the mutable session fields.
func (s *PostgresStore) UpdateSession(ctx context.Context, session *Session) error {
	query := `
		UPDATE colloquy_sessions
		SET status = $2, last_active_at = $3, completed_at = $4
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		session.ID, string(session.Status), session.LastActiveAt, session.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", session.ID, ErrNotFound)
	}
	return nil
}

// SessionsByProject retrieves all sessions for a project, newest first.
func (s *PostgresStore) SessionsByProject(ctx context.Context, projectID string) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM colloquy_sessions WHERE project_id = $1 ORDER BY created_at DESC`
	return s.querySessions(ctx, query, projectID)
}

// SessionByProjectAndStatus retrieves the project's most recent session in
// the given status. Returns ErrNotFound when there is none.
func (s *PostgresStore) SessionByProjectAndStatus(ctx context.Context, projectID string, status sessionstate.Status) (*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM colloquy_sessions
		WHERE project_id = $1 AND status = $2
		ORDER BY last_active_at DESC
		LIMIT 1
	`
	session, err := scanSessionRow(s.pool.QueryRow(ctx, query, projectID, string(status)))
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// SessionsByStatus retrieves all sessions in the given status.
func (s *PostgresStore) SessionsByStatus(ctx context.Context, status sessionstate.Status) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM colloquy_sessions WHERE status = $1 ORDER BY last_active_at ASC`
	return s.querySessions(ctx, query, string(status))
}

// SessionsPausedBefore retrieves paused sessions last active before the cutoff.
func (s *PostgresStore) SessionsPausedBefore(ctx context.Context, cutoff time.Time) ([]*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM colloquy_sessions
		WHERE status = $1 AND last_active_at < $2
		ORDER BY last_active_at ASC
	`
	return s.querySessions(ctx, query, string(sessionstate.StatusPaused), cutoff)
}

func (s *PostgresStore) querySessions(ctx context.Context, query string, args ...any) ([]*Session, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSessionRow(row rowScanner) (*Session, error) {
	var session Session
	var mode, subMode, status string
	err := row.Scan(
		&session.ID,
		&session.ProjectID,
		&mode,
		&subMode,
		&status,
		&session.CreatedAt,
		&session.LastActiveAt,
		&session.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	session.Mode = sessionstate.Mode(mode)
	session.SubMode = sessionstate.SubMode(subMode)
	session.Status = sessionstate.Status(status)
	return &session, nil
}

// AppendMessage appends a message, assigning the next sequence number within
// the session. The unique (session_id, seq) constraint makes concurrent
// appends on the same session fail rather than interleave.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO colloquy_messages (id, session_id, seq, role, content, voice_transcript, created_at)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM colloquy_messages WHERE session_id = $2),
			$3, $4, $5, $6)
		RETURNING seq
	`
	err := s.pool.QueryRow(ctx, query,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, msg.VoiceTranscript, msg.CreatedAt,
	).Scan(&msg.Seq)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// GetMessages retrieves all messages for a session in append order.
func (s *PostgresStore) GetMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	query := `
		SELECT id, session_id, seq, role, content, voice_transcript, created_at
		FROM colloquy_messages
		WHERE session_id = $1
		ORDER BY seq ASC
	`
	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var role string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Seq, &role, &msg.Content, &msg.VoiceTranscript, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = Role(role)
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// SaveSummary upserts the session's summary.
func (s *PostgresStore) SaveSummary(ctx context.Context, summary *Summary) error {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	establishedJSON, err := json.Marshal(summary.Established)
	if err != nil {
		return fmt.Errorf("failed to marshal established section: %w", err)
	}
	observedJSON, err := json.Marshal(summary.Observed)
	if err != nil {
		return fmt.Errorf("failed to marshal observed section: %w", err)
	}
	nextJSON, err := json.Marshal(summary.Next)
	if err != nil {
		return fmt.Errorf("failed to marshal next section: %w", err)
	}

	query := `
		INSERT INTO colloquy_summaries (id, session_id, mode, sub_mode, completion_status,
			established, observed, next_steps, mode_payload,
			started_at, ended_at, duration_ms, message_count,
			input_tokens, output_tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (session_id) DO UPDATE SET
			completion_status = EXCLUDED.completion_status,
			established = EXCLUDED.established,
			observed = EXCLUDED.observed,
			next_steps = EXCLUDED.next_steps,
			mode_payload = EXCLUDED.mode_payload,
			ended_at = EXCLUDED.ended_at,
			duration_ms = EXCLUDED.duration_ms,
			message_count = EXCLUDED.message_count,
			input_tokens = EXCLUDED.input_tokens,
			output_tokens = EXCLUDED.output_tokens
	`
	_, err = s.pool.Exec(ctx, query,
		summary.ID, summary.SessionID, string(summary.Mode), string(summary.SubMode),
		string(summary.CompletionStatus), establishedJSON, observedJSON, nextJSON,
		[]byte(summary.ModePayload), summary.StartedAt, summary.EndedAt,
		summary.Duration.Milliseconds(), summary.MessageCount,
		summary.InputTokens, summary.OutputTokens, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// GetSummary retrieves a session's summary.
func (s *PostgresStore) GetSummary(ctx context.Context, sessionID string) (*Summary, error) {
	query := summaryQuery + ` WHERE session_id = $1`
	summary, err := scanSummaryRow(s.pool.QueryRow(ctx, query, sessionID))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("summary for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return summary, nil
}

// SummariesByProject retrieves all summaries for a project's sessions, in
// session end order.
func (s *PostgresStore) SummariesByProject(ctx context.Context, projectID string) ([]*Summary, error) {
	query := summaryQuery + `
		WHERE session_id IN (SELECT id FROM colloquy_sessions WHERE project_id = $1)
		ORDER BY ended_at ASC
	`
	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		summary, err := scanSummaryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}
	return summaries, nil
}

const summaryQuery = `
	SELECT id, session_id, mode, sub_mode, completion_status,
	       established, observed, next_steps, mode_payload,
	       started_at, ended_at, duration_ms, message_count,
	       input_tokens, output_tokens, created_at
	FROM colloquy_summaries
`

func scanSummaryRow(row rowScanner) (*Summary, error) {
	var summary Summary
	var mode, subMode, completion string
	var establishedJSON, observedJSON, nextJSON, payloadJSON []byte
	var durationMs int64

	err := row.Scan(
		&summary.ID,
		&summary.SessionID,
		&mode,
		&subMode,
		&completion,
		&establishedJSON,
		&observedJSON,
		&nextJSON,
		&payloadJSON,
		&summary.StartedAt,
		&summary.EndedAt,
		&durationMs,
		&summary.MessageCount,
		&summary.InputTokens,
		&summary.OutputTokens,
		&summary.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	summary.Mode = sessionstate.Mode(mode)
	summary.SubMode = sessionstate.SubMode(subMode)
	summary.CompletionStatus = CompletionStatus(completion)
	summary.Duration = time.Duration(durationMs) * time.Millisecond
	summary.ModePayload = json.RawMessage(payloadJSON)

	if err := json.Unmarshal(establishedJSON, &summary.Established); err != nil {
		return nil, fmt.Errorf("failed to unmarshal established section: %w", err)
	}
	if err := json.Unmarshal(observedJSON, &summary.Observed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal observed section: %w", err)
	}
	if err := json.Unmarshal(nextJSON, &summary.Next); err != nil {
		return nil, fmt.Errorf("failed to unmarshal next section: %w", err)
	}

	return &summary, nil
}
