package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HistoryStore persists finished sessions. Records are appended and only
// ever cleared in bulk.
type HistoryStore interface {
	Append(ctx context.Context, rec HistoryRecord) error
	List(ctx context.Context, userID string) ([]HistoryRecord, error)
	Get(ctx context.Context, id string) (HistoryRecord, error)
	Clear(ctx context.Context, userID string) error
}

type FeedbackStore interface {
	SaveFeedback(ctx context.Context, f Feedback) error
}

// Notifier alerts a clinician about a completed high-risk session.
type Notifier interface {
	NotifyHighRisk(ctx context.Context, rec HistoryRecord) error
}

// Reporter renders a history record into a downloadable document and can
// forward it to the configured destination.
type Reporter interface {
	Render(ctx context.Context, rec HistoryRecord) (data []byte, fileName string, err error)
	Export(ctx context.Context, rec HistoryRecord) (location string, err error)
}

type Service interface {
	StartSession(ctx context.Context, userID string, form IntakeForm) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	SendMessage(ctx context.Context, sessionID, text string) (ChatMessage, *Session, error)
	EndSession(ctx context.Context, sessionID string, req EndRequest) (*EndResult, error)
	AnalyzeIntake(ctx context.Context, form IntakeForm) (AnalysisResult, error)
	History(ctx context.Context, userID string) ([]HistoryRecord, error)
	ClearHistory(ctx context.Context, userID string) error
	Report(ctx context.Context, userID, recordID string) ([]byte, string, error)
	ShareReport(ctx context.Context, userID, recordID string) (string, error)
	SaveFeedback(ctx context.Context, userID, sessionID string, rating int) error
}

type EndRequest struct {
	UserID string `json:"userId"`
	Rating *int   `json:"rating,omitempty"`
}

// EndResult carries the assembled record. Saved is false when persistence
// failed; the record is still returned so the client can show it.
type EndResult struct {
	Record HistoryRecord `json:"record"`
	Saved  bool          `json:"saved"`
}

type service struct {
	registry   *Registry
	controller *Controller
	analyzer   *Analyzer
	assembler  Assembler
	history    HistoryStore
	feedback   FeedbackStore
	reporter   Reporter
	notifier   Notifier
	logger     *zap.Logger
}

type Deps struct {
	Reasoner Reasoner
	Registry *Registry
	History  HistoryStore
	Feedback FeedbackStore
	Reporter Reporter
	Notifier Notifier
	Logger   *zap.Logger
}

func NewService(d Deps) Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := d.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &service{
		registry:   registry,
		controller: NewController(d.Reasoner, logger.Named("controller")),
		analyzer:   NewAnalyzer(d.Reasoner, logger.Named("analyzer")),
		assembler:  NewAssembler(),
		history:    d.History,
		feedback:   d.Feedback,
		reporter:   d.Reporter,
		notifier:   d.Notifier,
		logger:     logger,
	}
}

func (s *service) StartSession(ctx context.Context, userID string, form IntakeForm) (*Session, error) {
	intake, err := ValidateIntake(form)
	if err != nil {
		return nil, err
	}
	sess := s.controller.Start(intake, userID)
	s.registry.Put(sess)
	s.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.Int("symptoms", len(intake.Symptoms)),
	)
	return sess, nil
}

func (s *service) GetSession(ctx context.Context, id string) (*Session, error) {
	return s.registry.Get(id)
}

func (s *service) SendMessage(ctx context.Context, sessionID, text string) (ChatMessage, *Session, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return ChatMessage{}, nil, err
	}
	reply, err := s.controller.SendTurn(ctx, sess, text)
	if err != nil {
		return ChatMessage{}, sess, err
	}
	return reply, sess, nil
}

// EndSession runs the terminal half of the pipeline: close the conversation,
// analyze, assemble the record and hand it to the history store. Only the
// call that moves the session out of Collecting analyzes it; later calls get
// ErrInvalidTransition and leave feedback untouched.
func (s *service) EndSession(ctx context.Context, sessionID string, req EndRequest) (*EndResult, error) {
	sess, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if req.Rating != nil && !validRating(*req.Rating) {
		return nil, ErrInvalidRating
	}
	userID := firstNonEmpty(req.UserID, sess.UserID)
	if userID == "" {
		return nil, ErrUserRequired
	}

	advanced, err := s.controller.EndSession(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !advanced {
		return nil, fmt.Errorf("%w: end from %s", ErrInvalidTransition, sess.Status())
	}

	if req.Rating != nil {
		// Storage failures are logged by SaveFeedback and do not block analysis.
		_ = s.SaveFeedback(ctx, userID, sessionID, *req.Rating)
	}

	transcript := sess.Transcript()
	result := s.analyzer.Analyze(ctx, sess.Intake, transcript)
	if err := s.controller.Complete(sess, result); err != nil {
		return nil, err
	}

	rec := s.assembler.Assemble(sess.Intake, transcript, result)
	rec.UserID = userID

	out := &EndResult{Record: rec}
	if s.history != nil {
		if err := s.history.Append(ctx, rec); err != nil {
			s.logger.Error("failed to save history record", zap.String("record_id", rec.ID), zap.Error(err))
		} else {
			out.Saved = true
		}
	}
	s.alert(ctx, rec)
	return out, nil
}

func (s *service) alert(ctx context.Context, rec HistoryRecord) {
	if s.notifier == nil || rec.Result.Fallback || rec.Result.RiskLevel != RiskHigh {
		return
	}
	if err := s.notifier.NotifyHighRisk(ctx, rec); err != nil {
		s.logger.Error("high risk alert failed", zap.String("record_id", rec.ID), zap.Error(err))
	}
}

// AnalyzeIntake performs a one-shot analysis without a conversation.
func (s *service) AnalyzeIntake(ctx context.Context, form IntakeForm) (AnalysisResult, error) {
	intake, err := ValidateIntake(form)
	if err != nil {
		return AnalysisResult{}, err
	}
	return s.analyzer.Analyze(ctx, intake, nil), nil
}

func (s *service) History(ctx context.Context, userID string) ([]HistoryRecord, error) {
	if s.history == nil {
		return []HistoryRecord{}, nil
	}
	return s.history.List(ctx, userID)
}

func (s *service) ClearHistory(ctx context.Context, userID string) error {
	if s.history == nil {
		return nil
	}
	if err := s.history.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	s.logger.Info("history cleared", zap.String("user_id", userID))
	return nil
}

func (s *service) Report(ctx context.Context, userID, recordID string) ([]byte, string, error) {
	rec, err := s.ownedRecord(ctx, userID, recordID)
	if err != nil {
		return nil, "", err
	}
	return s.reporter.Render(ctx, rec)
}

// ShareReport sends the record's report to the doctor-facing sink.
func (s *service) ShareReport(ctx context.Context, userID, recordID string) (string, error) {
	rec, err := s.ownedRecord(ctx, userID, recordID)
	if err != nil {
		return "", err
	}
	return s.reporter.Export(ctx, rec)
}

func (s *service) ownedRecord(ctx context.Context, userID, recordID string) (HistoryRecord, error) {
	if s.reporter == nil {
		return HistoryRecord{}, ErrReportsUnavailable
	}
	if s.history == nil {
		return HistoryRecord{}, ErrRecordNotFound
	}
	rec, err := s.history.Get(ctx, recordID)
	if err != nil {
		return HistoryRecord{}, err
	}
	if userID != "" && rec.UserID != userID {
		return HistoryRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *service) SaveFeedback(ctx context.Context, userID, sessionID string, rating int) error {
	if !validRating(rating) {
		return ErrInvalidRating
	}
	if s.feedback == nil {
		return nil
	}
	f := Feedback{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Rating:    rating,
		CreatedAt: time.Now(),
	}
	if err := s.feedback.SaveFeedback(ctx, f); err != nil {
		s.logger.Error("failed to save feedback", zap.Error(err))
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

func validRating(r int) bool {
	return r >= 1 && r <= 5
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
