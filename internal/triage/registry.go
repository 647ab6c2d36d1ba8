package triage

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"medtriage/internal/observability"
)

// Registry holds live sessions in memory. Sessions are ephemeral; only the
// assembled history record is persisted.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()
	observability.SetActiveSessions(n)
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Evict drops sessions idle since before now-idle and returns how many
// were removed. Dropped sessions may still have a turn in flight; its reply
// lands on an unreachable session.
func (r *Registry) Evict(now time.Time, idle time.Duration) int {
	cutoff := now.Add(-idle)

	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		if s.LastActivity().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	observability.SetActiveSessions(n)
	return removed
}

// StartJanitor schedules periodic eviction on a cron spec such as "@every 5m".
// The caller stops the returned scheduler.
func (r *Registry) StartJanitor(spec string, idle time.Duration, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := r.Evict(time.Now(), idle); n > 0 {
			logger.Info("evicted idle sessions", zap.Int("count", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
