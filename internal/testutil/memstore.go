package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aeobrien/colloquy/sessionstate"
	"github.com/aeobrien/colloquy/storage"
)

// MemStore is an in-memory storage.Store for unit tests. Safe for
// concurrent use; all returned records are copies.
type MemStore struct {
	mu        sync.Mutex
	sessions  map[string]*storage.Session
	messages  map[string][]*storage.Message
	summaries map[string]*storage.Summary
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions:  make(map[string]*storage.Session),
		messages:  make(map[string][]*storage.Message),
		summaries: make(map[string]*storage.Summary),
	}
}

func (m *MemStore) CreateSession(_ context.Context, session *storage.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *MemStore) GetSession(_ context.Context, sessionID string) (*storage.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemStore) UpdateSession(_ context.Context, session *storage.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *MemStore) SessionsByProject(_ context.Context, projectID string) ([]*storage.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.Session
	for _, s := range m.sessions {
		if s.ProjectID == projectID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSessions(out)
	return out, nil
}

func (m *MemStore) SessionByProjectAndStatus(_ context.Context, projectID string, status sessionstate.Status) (*storage.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ProjectID == projectID && s.Status == status {
			cp := *s
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *MemStore) SessionsByStatus(_ context.Context, status sessionstate.Status) ([]*storage.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.Session
	for _, s := range m.sessions {
		if s.Status == status {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSessions(out)
	return out, nil
}

func (m *MemStore) SessionsPausedBefore(_ context.Context, cutoff time.Time) ([]*storage.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.Session
	for _, s := range m.sessions {
		if s.Status == sessionstate.StatusPaused && s.LastActiveAt.Before(cutoff) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSessions(out)
	return out, nil
}

func (m *MemStore) AppendMessage(_ context.Context, msg *storage.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[msg.SessionID]; !ok {
		return storage.ErrNotFound
	}
	msg.Seq = len(m.messages[msg.SessionID]) + 1
	cp := *msg
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], &cp)
	return nil
}

func (m *MemStore) GetMessages(_ context.Context, sessionID string) ([]*storage.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[sessionID]
	out := make([]*storage.Message, 0, len(msgs))
	for _, msg := range msgs {
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemStore) SaveSummary(_ context.Context, summary *storage.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *summary
	m.summaries[summary.SessionID] = &cp
	return nil
}

func (m *MemStore) GetSummary(_ context.Context, sessionID string) (*storage.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[sessionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemStore) SummariesByProject(_ context.Context, projectID string) ([]*storage.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.Summary
	for _, s := range m.summaries {
		session, ok := m.sessions[s.SessionID]
		if !ok || session.ProjectID != projectID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func sortSessions(sessions []*storage.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
