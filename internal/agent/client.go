package agent

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"medtriage/internal/triage"
)

type Config struct {
	// Provider is "groq" or "gemini".
	Provider string
	APIKey   string
	BaseURL  string
	Model    string

	// RequestsPerMinute caps calls to the provider; 0 disables the limit.
	RequestsPerMinute float64
	Burst             int
	// Timeout bounds each remote call; 0 leaves the caller's deadline alone.
	Timeout time.Duration
}

// New builds the reasoner for the configured provider, wrapped with the
// local quota and per-call timeout.
func New(ctx context.Context, cfg Config) (triage.Reasoner, error) {
	var r triage.Reasoner
	switch cfg.Provider {
	case "", "groq":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY not set")
		}
		r = NewGroqClient(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		g, err := NewGeminiClient(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		r = g
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.Provider)
	}

	if cfg.Timeout > 0 {
		r = WithTimeout(r, cfg.Timeout)
	}
	if cfg.RequestsPerMinute > 0 {
		r = NewRateLimited(r, cfg.RequestsPerMinute, cfg.Burst)
	}
	return r, nil
}

// RateLimited rejects calls once the local budget is spent instead of
// waiting for tokens. Callers see triage.ErrRateLimited.
type RateLimited struct {
	next    triage.Reasoner
	limiter *rate.Limiter
}

func NewRateLimited(next triage.Reasoner, perMinute float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60), burst),
	}
}

func (r *RateLimited) Chat(ctx context.Context, system string, prior []triage.ChatMessage, text string) (string, error) {
	if !r.limiter.Allow() {
		return "", fmt.Errorf("chat: %w", triage.ErrRateLimited)
	}
	return r.next.Chat(ctx, system, prior, text)
}

func (r *RateLimited) Analyze(ctx context.Context, patient triage.PatientContext) (string, error) {
	if !r.limiter.Allow() {
		return "", fmt.Errorf("analyze: %w", triage.ErrRateLimited)
	}
	return r.next.Analyze(ctx, patient)
}

type timeoutReasoner struct {
	next    triage.Reasoner
	timeout time.Duration
}

// WithTimeout bounds every call to next with its own deadline.
func WithTimeout(next triage.Reasoner, d time.Duration) triage.Reasoner {
	return &timeoutReasoner{next: next, timeout: d}
}

func (t *timeoutReasoner) Chat(ctx context.Context, system string, prior []triage.ChatMessage, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Chat(ctx, system, prior, text)
}

func (t *timeoutReasoner) Analyze(ctx context.Context, patient triage.PatientContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Analyze(ctx, patient)
}
