package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medtriage/internal/observability"
)

// Reasoner is the remote model the pipeline converses with.
type Reasoner interface {
	// Chat returns the assistant reply to text given the prior transcript.
	Chat(ctx context.Context, system string, prior []ChatMessage, text string) (string, error)
	// Analyze returns the raw model output for a structured risk assessment.
	Analyze(ctx context.Context, patient PatientContext) (string, error)
}

// Controller drives the session state machine and mediates every exchange
// with the reasoning service.
type Controller struct {
	reasoner Reasoner
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewController(reasoner Reasoner, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		reasoner: reasoner,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Start opens a session in Collecting seeded with the greeting. It makes no
// remote call.
func (c *Controller) Start(intake PatientIntake, userID string) *Session {
	now := c.now()
	s := newSession(c.newID(), userID, intake, now)
	s.append(now, c.message(RoleAssistant, Greeting(intake)))
	return s
}

// SendTurn appends the user's message and the assistant's reply. A blank
// message, a closed session, or a turn already in flight is rejected without
// touching the transcript. Remote failures are never returned: a fixed
// fallback reply is appended instead.
func (c *Controller) SendTurn(ctx context.Context, s *Session, text string) (ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return ChatMessage{}, ErrBlankTurn
	}
	if !s.turn.TryAcquire(1) {
		return ChatMessage{}, ErrTurnInFlight
	}
	defer s.turn.Release(1)

	if s.Status() != StatusCollecting {
		return ChatMessage{}, ErrSessionClosed
	}

	prior := s.Transcript()
	s.append(c.now(), c.message(RoleUser, text))

	replyText, outcome := c.exchange(ctx, s, prior, text)
	observability.RecordTurn(outcome)

	reply := c.message(RoleAssistant, replyText)
	s.append(c.now(), reply)
	return reply, nil
}

func (c *Controller) exchange(ctx context.Context, s *Session, prior []ChatMessage, text string) (string, string) {
	reply, err := c.reasoner.Chat(ctx, SystemPrompt(s.Intake), prior, text)
	switch {
	case errors.Is(err, ErrRateLimited):
		c.logger.Warn("chat rate limited", zap.String("session_id", s.ID), zap.Error(err))
		return RateLimitedReply, "rate_limited"
	case err != nil:
		c.logger.Error("chat failed", zap.String("session_id", s.ID), zap.Error(err))
		return FallbackReply, "fallback"
	case strings.TrimSpace(reply) == "":
		return EmptyReply, "ok"
	default:
		return strings.TrimSpace(reply), "ok"
	}
}

// EndSession moves the session to Analyzing. It waits for an in-flight turn
// to land so the transcript handed to analysis is complete. Ending a session
// that is already past Collecting is a no-op; advanced reports whether this
// call made the transition.
func (c *Controller) EndSession(ctx context.Context, s *Session) (advanced bool, err error) {
	if err := s.turn.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("waiting for in-flight turn: %w", err)
	}
	defer s.turn.Release(1)

	if !s.advance(StatusCollecting, StatusAnalyzing, c.now()) {
		return false, nil
	}
	c.logger.Info("session ended",
		zap.String("session_id", s.ID),
		zap.Int("messages", s.Len()),
	)
	return true, nil
}

// Complete records the analysis outcome. Fallback results move the session to
// Failed, genuine ones to Completed.
func (c *Controller) Complete(s *Session, result AnalysisResult) error {
	if !s.finish(result, c.now()) {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, s.Status())
	}
	return nil
}

func (c *Controller) message(role Role, text string) ChatMessage {
	return ChatMessage{
		ID:        c.newID(),
		Role:      role,
		Text:      text,
		CreatedAt: c.now(),
	}
}
