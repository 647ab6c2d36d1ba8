package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/muesli/reflow/truncate"

	"medtriage/internal/triage"
)

// Alert messages carry at most this many cells of the explanation.
const alertExplanationWidth = 400

type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TelegramAlert posts a short summary of each high-risk session to the
// doctor's chat.
type TelegramAlert struct {
	Client MessageSender
	ChatID int64
}

func (a TelegramAlert) NotifyHighRisk(ctx context.Context, rec triage.HistoryRecord) error {
	if a.ChatID == 0 {
		return fmt.Errorf("doctor chat id not configured")
	}
	if err := a.Client.SendMessage(ctx, a.ChatID, AlertText(rec)); err != nil {
		return fmt.Errorf("send high risk alert: %w", err)
	}
	return nil
}

// AlertText is the plain text summary sent for rec.
func AlertText(rec triage.HistoryRecord) string {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		name = triage.AnonymousName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s, %d, %s\n", rec.Result.RiskLevel.Label(), name, rec.Age, rec.Gender)
	fmt.Fprintf(&b, "Symptoms: %s (%s)\n", strings.Join(rec.Symptoms, ", "), rec.Duration)
	fmt.Fprintf(&b, "Recommended: %s\n", rec.Result.Recommendation.Specialization)
	if e := strings.TrimSpace(rec.Result.Explanation); e != "" {
		b.WriteString(truncate.StringWithTail(e, alertExplanationWidth, "...") + "\n")
	}
	fmt.Fprintf(&b, "Record: %s", rec.ID)
	return b.String()
}
