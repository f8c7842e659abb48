package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for single-node deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
	maxTurns int
}

func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]Turn),
		maxTurns: maxTurns,
	}
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sessions[sessionID]
	for _, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		history = append(history, t)
	}
	if s.maxTurns > 0 && len(history) > s.maxTurns {
		history = history[len(history)-s.maxTurns:]
	}
	s.sessions[sessionID] = history
	return nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.sessions[sessionID]
	out := make([]Turn, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
