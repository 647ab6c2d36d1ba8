package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink delivers a rendered report somewhere outside the request.
type Sink interface {
	Export(ctx context.Context, name string, data []byte) (string, error)
}

// FileSink writes reports into a directory, creating it on first use.
type FileSink struct {
	Dir string
}

func (s FileSink) Export(ctx context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(s.Dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

type DocumentSender interface {
	SendDocument(ctx context.Context, chatID int64, data []byte, fileName, caption string) error
}

// TelegramSink sends reports to a doctor's chat.
type TelegramSink struct {
	Client DocumentSender
	ChatID int64
}

func (s TelegramSink) Export(ctx context.Context, name string, data []byte) (string, error) {
	if s.ChatID == 0 {
		return "", fmt.Errorf("doctor chat id not configured")
	}
	if err := s.Client.SendDocument(ctx, s.ChatID, data, name, "MedTriage AI report"); err != nil {
		return "", err
	}
	return fmt.Sprintf("telegram:%d/%s", s.ChatID, name), nil
}
