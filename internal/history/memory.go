// Package history persists finished triage sessions and session feedback.
//
// All stores keep records in insertion order per user and only support
// clearing a user's history in bulk.
package history

import (
	"context"
	"sync"

	"medtriage/internal/triage"
)

// MemoryStore is a process-local store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	records  []triage.HistoryRecord
	feedback []triage.Feedback
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, rec triage.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, userID string) ([]triage.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []triage.HistoryRecord{}
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (triage.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return triage.HistoryRecord{}, triage.ErrRecordNotFound
}

func (s *MemoryStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	for _, r := range s.records {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

func (s *MemoryStore) SaveFeedback(ctx context.Context, f triage.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, f)
	return nil
}
