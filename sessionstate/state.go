// Package sessionstate defines the status machine for conversation sessions.
//
// A session is a bounded multi-turn conversation scoped to one project and
// one mode. Each session has a status that progresses through the state
// machine until reaching a terminal status.
//
// Status graph:
//
//	active -> paused                  (user steps away, or a new session starts)
//	active -> completed               (conversation finished while live)
//	paused -> active                  (resume)
//	paused -> completed               (user ends a paused session)
//	paused -> pending_auto_summary    (stale, summary attempts exhausted)
//	paused -> auto_summarised         (stale, summary generated)
//	pending_auto_summary -> pending_auto_summary (retry pass, idempotent)
//	pending_auto_summary -> auto_summarised      (retry succeeded)
//	pending_auto_summary -> completed            (user ends it before a retry lands)
//
// Terminal statuses (completed, auto_summarised) cannot transition further.
// Every other (from, to) pair is invalid.
package sessionstate

// Status represents the current lifecycle status of a session.
type Status string

const (
	// StatusActive indicates the session is the live conversation for its
	// project. At most one session per project is active at any instant.
	StatusActive Status = "active"

	// StatusPaused indicates the session was set aside and can be resumed.
	StatusPaused Status = "paused"

	// StatusCompleted indicates the session finished through the
	// conversation manager (system-driven or user-initiated end).
	StatusCompleted Status = "completed"

	// StatusPendingAutoSummary indicates a stale session whose summary
	// generation has failed; it is retried on every reconciliation pass.
	StatusPendingAutoSummary Status = "pending_auto_summary"

	// StatusAutoSummarised indicates a stale session that was closed out by
	// the reconciliation pass with a generated summary.
	StatusAutoSummarised Status = "auto_summarised"
)

// AllStatuses returns all possible session statuses.
func AllStatuses() []Status {
	return []Status{
		StatusActive,
		StatusPaused,
		StatusCompleted,
		StatusPendingAutoSummary,
		StatusAutoSummarised,
	}
}

// TerminalStatuses returns all terminal (final) statuses.
func TerminalStatuses() []Status {
	return []Status{
		StatusCompleted,
		StatusAutoSummarised,
	}
}

// IsValid returns true if the status is a valid Status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted,
		StatusPendingAutoSummary, StatusAutoSummarised:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status is a terminal (final) status.
// Terminal statuses cannot transition to any other status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusAutoSummarised:
		return true
	default:
		return false
	}
}

// transitions holds the fixed directed graph of permitted status edges.
var transitions = map[Status][]Status{
	StatusActive:             {StatusPaused, StatusCompleted},
	StatusPaused:             {StatusActive, StatusCompleted, StatusPendingAutoSummary, StatusAutoSummarised},
	StatusPendingAutoSummary: {StatusPendingAutoSummary, StatusAutoSummarised, StatusCompleted},
}

// CanTransition returns true if the edge from -> to is in the status graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
