package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aeobrien/colloquy/sessionstate"
)

const defaultDBName = "colloquy.db"

// SQLiteStore implements Store on a local SQLite database. This is the
// storage backend for the single-user desktop deployment.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the SQLite database under
// workspace/.colloquy/ with foreign keys on, and ensures the schema.
func OpenSQLite(ctx context.Context, workspace string) (*SQLiteStore, error) {
	if workspace == "" {
		workspace = "."
	}
	dir := filepath.Join(workspace, ".colloquy")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", filepath.Join(dir, defaultDBName))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an already-open database handle. EnsureSchema is the
// caller's responsibility.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS colloquy_sessions (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	sub_mode TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	last_active_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS colloquy_sessions_project_status
	ON colloquy_sessions (project_id, status);

CREATE TABLE IF NOT EXISTS colloquy_messages (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES colloquy_sessions(id),
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	voice_transcript TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	UNIQUE (session_id, seq)
);

CREATE TABLE IF NOT EXISTS colloquy_summaries (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL UNIQUE REFERENCES colloquy_sessions(id),
	mode TEXT NOT NULL,
	sub_mode TEXT NOT NULL DEFAULT '',
	completion_status TEXT NOT NULL,
	established TEXT NOT NULL,
	observed TEXT NOT NULL,
	next_steps TEXT NOT NULL,
	mode_payload TEXT,
	started_at TIMESTAMP NOT NULL,
	ended_at TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	message_count INTEGER NOT NULL,
	input_tokens INTEGER,
	output_tokens INTEGER,
	created_at TIMESTAMP NOT NULL
);
`

// EnsureSchema creates the engine's tables if they do not exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CreateSession persists a new session. Assigns an ID when unset.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO colloquy_sessions (id, project_id, mode, sub_mode, status, created_at, last_active_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.ProjectID, string(session.Mode), string(session.SubMode),
		string(session.Status), session.CreatedAt, session.LastActiveAt, nullableTime(session.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, mode, sub_mode, status, created_at, last_active_at, completed_at
		 FROM colloquy_sessions WHERE id = ?`, sessionID)
	session, err := scanSQLiteSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// UpdateSession persists the mutable session fields.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *Session) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE colloquy_sessions SET status = ?, last_active_at = ?, completed_at = ? WHERE id = ?`,
		string(session.Status), session.LastActiveAt, nullableTime(session.CompletedAt), session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", session.ID, ErrNotFound)
	}
	return nil
}

// SessionsByProject retrieves all sessions for a project, newest first.
func (s *SQLiteStore) SessionsByProject(ctx context.Context, projectID string) ([]*Session, error) {
	return s.querySessions(ctx,
		`SELECT id, project_id, mode, sub_mode, status, created_at, last_active_at, completed_at
		 FROM colloquy_sessions WHERE project_id = ? ORDER BY created_at DESC`, projectID)
}

// SessionByProjectAndStatus retrieves the project's most recent session in
// the given status. Returns ErrNotFound when there is none.
func (s *SQLiteStore) SessionByProjectAndStatus(ctx context.Context, projectID string, status sessionstate.Status) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, mode, sub_mode, status, created_at, last_active_at, completed_at
		 FROM colloquy_sessions WHERE project_id = ? AND status = ?
		 ORDER BY last_active_at DESC LIMIT 1`, projectID, string(status))
	session, err := scanSQLiteSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// SessionsByStatus retrieves all sessions in the given status.
func (s *SQLiteStore) SessionsByStatus(ctx context.Context, status sessionstate.Status) ([]*Session, error) {
	return s.querySessions(ctx,
		`SELECT id, project_id, mode, sub_mode, status, created_at, last_active_at, completed_at
		 FROM colloquy_sessions WHERE status = ? ORDER BY last_active_at ASC`, string(status))
}

// SessionsPausedBefore retrieves paused sessions last active before the cutoff.
func (s *SQLiteStore) SessionsPausedBefore(ctx context.Context, cutoff time.Time) ([]*Session, error) {
	return s.querySessions(ctx,
		`SELECT id, project_id, mode, sub_mode, status, created_at, last_active_at, completed_at
		 FROM colloquy_sessions WHERE status = ? AND last_active_at < ?
		 ORDER BY last_active_at ASC`, string(sessionstate.StatusPaused), cutoff)
}

func (s *SQLiteStore) querySessions(ctx context.Context, query string, args ...any) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSQLiteSession(row rowScanner) (*Session, error) {
	var session Session
	var mode, subMode, status string
	var completed sql.NullTime
	err := row.Scan(&session.ID, &session.ProjectID, &mode, &subMode, &status,
		&session.CreatedAt, &session.LastActiveAt, &completed)
	if err != nil {
		return nil, err
	}
	session.Mode = sessionstate.Mode(mode)
	session.SubMode = sessionstate.SubMode(subMode)
	session.Status = sessionstate.Status(status)
	if completed.Valid {
		t := completed.Time
		session.CompletedAt = &t
	}
	return &session, nil
}

// AppendMessage appends a message inside a transaction so the sequence
// assignment and insert are atomic.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM colloquy_messages WHERE session_id = ?`,
		msg.SessionID).Scan(&seq); err != nil {
		return fmt.Errorf("failed to assign sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO colloquy_messages (id, session_id, seq, role, content, voice_transcript, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, seq, string(msg.Role), msg.Content, msg.VoiceTranscript, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	msg.Seq = seq
	return nil
}

// GetMessages retrieves all messages for a session in append order.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, seq, role, content, voice_transcript, created_at
		 FROM colloquy_messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
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
	return messages, rows.Err()
}

// SaveSummary upserts the session's summary.
func (s *SQLiteStore) SaveSummary(ctx context.Context, summary *Summary) error {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO colloquy_summaries (id, session_id, mode, sub_mode, completion_status,
			established, observed, next_steps, mode_payload,
			started_at, ended_at, duration_ms, message_count,
			input_tokens, output_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET
			completion_status = excluded.completion_status,
			established = excluded.established,
			observed = excluded.observed,
			next_steps = excluded.next_steps,
			mode_payload = excluded.mode_payload,
			ended_at = excluded.ended_at,
			duration_ms = excluded.duration_ms,
			message_count = excluded.message_count,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens`,
		summary.ID, summary.SessionID, string(summary.Mode), string(summary.SubMode),
		string(summary.CompletionStatus), string(establishedJSON), string(observedJSON), string(nextJSON),
		nullableString(string(summary.ModePayload)), summary.StartedAt, summary.EndedAt,
		summary.Duration.Milliseconds(), summary.MessageCount,
		summary.InputTokens, summary.OutputTokens, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// GetSummary retrieves a session's summary.
func (s *SQLiteStore) GetSummary(ctx context.Context, sessionID string) (*Summary, error) {
	row := s.db.QueryRowContext(ctx, sqliteSummaryQuery+` WHERE session_id = ?`, sessionID)
	summary, err := scanSQLiteSummary(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("summary for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return summary, nil
}

// SummariesByProject retrieves all summaries for a project's sessions, in
// session end order.
func (s *SQLiteStore) SummariesByProject(ctx context.Context, projectID string) ([]*Summary, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSummaryQuery+`
		WHERE session_id IN (SELECT id FROM colloquy_sessions WHERE project_id = ?)
		ORDER BY ended_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		summary, err := scanSQLiteSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

const sqliteSummaryQuery = `
	SELECT id, session_id, mode, sub_mode, completion_status,
	       established, observed, next_steps, mode_payload,
	       started_at, ended_at, duration_ms, message_count,
	       input_tokens, output_tokens, created_at
	FROM colloquy_summaries
`

func scanSQLiteSummary(row rowScanner) (*Summary, error) {
	var summary Summary
	var mode, subMode, completion string
	var establishedJSON, observedJSON, nextJSON string
	var payloadJSON sql.NullString
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
	if payloadJSON.Valid {
		summary.ModePayload = json.RawMessage(payloadJSON.String)
	}

	if err := json.Unmarshal([]byte(establishedJSON), &summary.Established); err != nil {
		return nil, fmt.Errorf("failed to unmarshal established section: %w", err)
	}
	if err := json.Unmarshal([]byte(observedJSON), &summary.Observed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal observed section: %w", err)
	}
	if err := json.Unmarshal([]byte(nextJSON), &summary.Next); err != nil {
		return nil, fmt.Errorf("failed to unmarshal next section: %w", err)
	}

	return &summary, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
