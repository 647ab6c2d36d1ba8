package triage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    RiskLevel
		wantErr bool
	}{
		{name: "plain", raw: goodAnalysis, want: RiskLow},
		{name: "fenced", raw: "```json\n" + goodAnalysis + "\n```", want: RiskLow},
		{name: "prose around", raw: "Here is the assessment: " + goodAnalysis + " Stay safe.", want: RiskLow},
		{name: "risk suffix", raw: `{"riskLevel":"High Risk","explanation":"x","recommendation":{"specialization":"Cardiologist"}}`, want: RiskHigh},
		{name: "no json", raw: "I cannot help with that.", wantErr: true},
		{name: "bad risk", raw: `{"riskLevel":"Severe","explanation":"x","recommendation":{"specialization":"GP"}}`, wantErr: true},
		{name: "missing explanation", raw: `{"riskLevel":"Low","recommendation":{"specialization":"GP"}}`, wantErr: true},
		{name: "missing specialization", raw: `{"riskLevel":"Low","explanation":"x"}`, wantErr: true},
		{name: "truncated", raw: `{"riskLevel":"Low","explanation":"x"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnalysis(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.RiskLevel)
			assert.NotEmpty(t, got.Disclaimer)
			assert.False(t, got.Fallback)
		})
	}
}

func TestAnalyzeOutageFallsBack(t *testing.T) {
	a := NewAnalyzer(&fakeReasoner{analyzeFn: outage}, nil)
	got := a.Analyze(context.Background(), ashaIntake(), nil)

	assert.Equal(t, RiskMedium, got.RiskLevel)
	assert.Equal(t, "General Physician", got.Recommendation.Specialization)
	assert.True(t, got.Fallback)
	assert.Equal(t, FallbackAnalysis(), got)
}

func TestAnalyzeNeverFails(t *testing.T) {
	cases := map[string]func(ctx context.Context, p PatientContext) (string, error){
		"rate limited": func(ctx context.Context, p PatientContext) (string, error) {
			return "", fmt.Errorf("groq: %w", ErrRateLimited)
		},
		"empty":   func(ctx context.Context, p PatientContext) (string, error) { return "", nil },
		"garbage": func(ctx context.Context, p PatientContext) (string, error) { return "{not json}", nil },
		"panic":   func(ctx context.Context, p PatientContext) (string, error) { panic("provider bug") },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			got := NewAnalyzer(&fakeReasoner{analyzeFn: fn}, nil).Analyze(context.Background(), ashaIntake(), nil)
			assert.Equal(t, FallbackAnalysis(), got)
		})
	}
}

func TestAnalyzeSendsPatientContext(t *testing.T) {
	r := &fakeReasoner{}
	transcript := []ChatMessage{
		{Role: RoleAssistant, Text: "Hello Asha."},
		{Role: RoleUser, Text: "I also have chills"},
	}
	got := NewAnalyzer(r, nil).Analyze(context.Background(), ashaIntake(), transcript)

	assert.False(t, got.Fallback)
	assert.Equal(t, 29, r.lastPatient.Age)
	assert.Equal(t, []string{"fever", "cough"}, r.lastPatient.Symptoms)
	assert.Equal(t, "ASSISTANT: Hello Asha.\nUSER: I also have chills", r.lastPatient.Transcript)
}
