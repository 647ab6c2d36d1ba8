package triage

import (
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Session is one conversational triage exchange. The transcript is
// append-only; messages are never edited or removed.
type Session struct {
	ID        string
	UserID    string
	Intake    PatientIntake
	CreatedAt time.Time

	mu         sync.RWMutex
	transcript []ChatMessage
	status     Status
	result     *AnalysisResult
	touchedAt  time.Time

	// turn admits at most one outstanding remote call per session.
	turn *semaphore.Weighted
}

func newSession(id, userID string, intake PatientIntake, now time.Time) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		Intake:    intake,
		CreatedAt: now,
		status:    StatusCollecting,
		touchedAt: now,
		turn:      semaphore.NewWeighted(1),
	}
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Transcript returns a copy of the messages exchanged so far.
func (s *Session) Transcript() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transcript)
}

// Result is nil until the session reaches Completed or Failed.
func (s *Session) Result() *AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}

func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touchedAt
}

func (s *Session) append(at time.Time, msgs ...ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, msgs...)
	s.touchedAt = at
}

// advance moves the session from one status to the next and reports whether
// the session was in the expected status.
func (s *Session) advance(from, to Status, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != from {
		return false
	}
	s.status = to
	s.touchedAt = at
	return true
}

func (s *Session) finish(result AnalysisResult, at time.Time) bool {
	to := StatusCompleted
	if result.Fallback {
		to = StatusFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusAnalyzing {
		return false
	}
	s.status = to
	s.result = &result
	s.touchedAt = at
	return true
}

// SessionView is the JSON shape of a session returned to clients.
type SessionView struct {
	ID         string          `json:"id"`
	Status     Status          `json:"status"`
	Intake     PatientIntake   `json:"intake"`
	Transcript []ChatMessage   `json:"transcript"`
	Result     *AnalysisResult `json:"result,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func (s *Session) View() SessionView {
	return SessionView{
		ID:         s.ID,
		Status:     s.Status(),
		Intake:     s.Intake,
		Transcript: s.Transcript(),
		Result:     s.Result(),
		CreatedAt:  s.CreatedAt,
	}
}
