package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSeedsGreeting(t *testing.T) {
	c := NewController(&fakeReasoner{}, nil)
	s := c.Start(ashaIntake(), "user-1")

	assert.Equal(t, StatusCollecting, s.Status())
	tr := s.Transcript()
	require.Len(t, tr, 1)
	assert.Equal(t, RoleAssistant, tr[0].Role)
	assert.Contains(t, tr[0].Text, "Hello Asha.")
	assert.Contains(t, tr[0].Text, "fever, cough")
	assert.Contains(t, tr[0].Text, "3 Days")
	assert.Equal(t, "user-1", s.UserID)
}

func TestGreetingWithoutName(t *testing.T) {
	in := ashaIntake()
	in.Name = ""
	assert.True(t, strings.HasPrefix(Greeting(in), "Hello. I understand"))
}

func TestSendTurnAppendsPair(t *testing.T) {
	r := &fakeReasoner{}
	c := NewController(r, nil)
	s := c.Start(ashaIntake(), "")

	reply, err := c.SendTurn(context.Background(), s, "I also have chills")
	require.NoError(t, err)
	assert.Equal(t, "How high is your temperature?", reply.Text)

	tr := s.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, RoleUser, tr[1].Role)
	assert.Equal(t, "I also have chills", tr[1].Text)
	assert.Equal(t, reply, tr[2])
	assert.Contains(t, r.lastSystem, "fever, cough")
}

func TestSendTurnBlankIsNoop(t *testing.T) {
	r := &fakeReasoner{}
	c := NewController(r, nil)
	s := c.Start(ashaIntake(), "")

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := c.SendTurn(context.Background(), s, text)
		assert.ErrorIs(t, err, ErrBlankTurn)
	}
	assert.Equal(t, 1, s.Len())
	assert.Zero(t, r.calls())
}

func TestSendTurnFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  string
	}{
		{name: "outage", err: fmt.Errorf("groq: %w: %w", ErrTransport, errOutage), want: FallbackReply},
		{name: "rate limited", err: fmt.Errorf("groq: %w", ErrRateLimited), want: RateLimitedReply},
		{name: "empty reply", reply: "  ", want: EmptyReply},
		{name: "trimmed reply", reply: "  Any vomiting?\n", want: "Any vomiting?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeReasoner{chatFn: func(ctx context.Context, prior []ChatMessage, text string) (string, error) {
				return tt.reply, tt.err
			}}
			c := NewController(r, nil)
			s := c.Start(ashaIntake(), "")

			reply, err := c.SendTurn(context.Background(), s, "hello")
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply.Text)
			assert.Equal(t, 3, s.Len())
		})
	}
}

func TestSendTurnPassesPriorTranscript(t *testing.T) {
	var seen [][]ChatMessage
	r := &fakeReasoner{chatFn: func(ctx context.Context, prior []ChatMessage, text string) (string, error) {
		seen = append(seen, prior)
		return "ok", nil
	}}
	c := NewController(r, nil)
	s := c.Start(ashaIntake(), "")

	_, err := c.SendTurn(context.Background(), s, "first")
	require.NoError(t, err)
	_, err = c.SendTurn(context.Background(), s, "second")
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 1)
	assert.Len(t, seen[1], 3)
	assert.Equal(t, 5, s.Len())
}

func TestEndSessionClosesConversation(t *testing.T) {
	r := &fakeReasoner{}
	c := NewController(r, nil)
	s := c.Start(ashaIntake(), "")

	advanced, err := c.EndSession(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, StatusAnalyzing, s.Status())

	_, err = c.SendTurn(context.Background(), s, "one more thing")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, 1, s.Len())
	assert.Zero(t, r.calls())

	advanced, err = c.EndSession(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, StatusAnalyzing, s.Status())
}

func TestSingleTurnInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	r := &fakeReasoner{chatFn: func(ctx context.Context, prior []ChatMessage, text string) (string, error) {
		close(entered)
		<-release
		return "noted", nil
	}}
	c := NewController(r, nil)
	s := c.Start(ashaIntake(), "")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.SendTurn(context.Background(), s, "first")
		assert.NoError(t, err)
	}()
	<-entered

	_, err := c.SendTurn(context.Background(), s, "second")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	ended := make(chan error, 1)
	go func() {
		_, err := c.EndSession(context.Background(), s)
		ended <- err
	}()

	select {
	case <-ended:
		t.Fatal("EndSession returned while a turn was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, StatusCollecting, s.Status())

	close(release)
	wg.Wait()
	require.NoError(t, <-ended)

	assert.Equal(t, StatusAnalyzing, s.Status())
	tr := s.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, "noted", tr[2].Text)
}

func TestEndSessionHonorsContext(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	r := &fakeReasoner{chatFn: func(ctx context.Context, prior []ChatMessage, text string) (string, error) {
		close(entered)
		<-release
		return "ok", nil
	}}
	c := NewController(r, nil)
	s := c.Start(ashaIntake(), "")

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.SendTurn(context.Background(), s, "first")
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.EndSession(ctx, s)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, StatusCollecting, s.Status())

	close(release)
	<-done
}

func TestCompleteTransitions(t *testing.T) {
	c := NewController(&fakeReasoner{}, nil)

	s := c.Start(ashaIntake(), "")
	assert.ErrorIs(t, c.Complete(s, FallbackAnalysis()), ErrInvalidTransition)

	_, err := c.EndSession(context.Background(), s)
	require.NoError(t, err)
	require.NoError(t, c.Complete(s, AnalysisResult{RiskLevel: RiskLow}))
	assert.Equal(t, StatusCompleted, s.Status())
	require.NotNil(t, s.Result())
	assert.ErrorIs(t, c.Complete(s, AnalysisResult{RiskLevel: RiskHigh}), ErrInvalidTransition)

	failed := c.Start(ashaIntake(), "")
	_, err = c.EndSession(context.Background(), failed)
	require.NoError(t, err)
	require.NoError(t, c.Complete(failed, FallbackAnalysis()))
	assert.Equal(t, StatusFailed, failed.Status())
}

// Covers the full intake -> conversation -> analysis -> record flow.
func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := &fakeReasoner{}
	c := NewController(r, nil)

	intake, err := ValidateIntake(IntakeForm{Name: "Asha", Age: "29", Gender: "Female", Symptoms: []string{"fever", "cough"}, Duration: "3 Days"})
	require.NoError(t, err)

	s := c.Start(intake, "")
	greeting := s.Transcript()[0].Text
	assert.Contains(t, greeting, "fever, cough")
	assert.Contains(t, greeting, "3 Days")

	_, err = c.SendTurn(ctx, s, "I also have chills")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	_, err = c.EndSession(ctx, s)
	require.NoError(t, err)
	result := NewAnalyzer(r, nil).Analyze(ctx, s.Intake, s.Transcript())
	assert.Contains(t, []RiskLevel{RiskLow, RiskMedium, RiskHigh}, result.RiskLevel)
	assert.Contains(t, r.lastPatient.Transcript, "USER: I also have chills")
	require.NoError(t, c.Complete(s, result))

	rec := Assemble(s.Intake, s.Transcript(), result)
	assert.Equal(t, []string{"fever", "cough"}, rec.Symptoms)
	assert.Equal(t, "3 Days", rec.Duration)
	assert.Equal(t, "Asha", rec.Name)
}
