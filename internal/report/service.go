package report

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medtriage/internal/triage"
)

var ErrNoSink = fmt.Errorf("no report sink configured: %w", triage.ErrReportsUnavailable)

type Service struct {
	renderer *Renderer
	sink     Sink
	logger   *zap.Logger
}

// NewService wires a renderer to an optional sink. Without a sink, Export
// fails with ErrNoSink and Render still works.
func NewService(renderer *Renderer, sink Sink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{renderer: renderer, sink: sink, logger: logger}
}

// Render lays out and draws rec, returning the PDF and its download name.
func (s *Service) Render(ctx context.Context, rec triage.HistoryRecord) ([]byte, string, error) {
	data, err := s.renderer.Render(rec)
	if err != nil {
		return nil, "", fmt.Errorf("render report %s: %w", rec.ID, err)
	}
	return data, FileName(rec), nil
}

// Export renders rec and hands it to the sink. It returns where the report went.
func (s *Service) Export(ctx context.Context, rec triage.HistoryRecord) (string, error) {
	if s.sink == nil {
		return "", ErrNoSink
	}
	data, name, err := s.Render(ctx, rec)
	if err != nil {
		return "", err
	}
	location, err := s.sink.Export(ctx, name, data)
	if err != nil {
		s.logger.Error("report export failed", zap.String("record_id", rec.ID), zap.Error(err))
		return "", fmt.Errorf("export report: %w", err)
	}
	s.logger.Info("report exported",
		zap.String("record_id", rec.ID),
		zap.String("location", location),
		zap.Int("bytes", len(data)),
	)
	return location, nil
}
