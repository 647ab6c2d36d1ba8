package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"medtriage/internal/observability"
)

var errMalformedAnalysis = errors.New("malformed analysis")

// FallbackAnalysis is substituted whenever a real assessment cannot be
// obtained.
func FallbackAnalysis() AnalysisResult {
	return AnalysisResult{
		RiskLevel:   RiskMedium,
		Explanation: "Unable to process analysis. Please try again or consult a healthcare professional.",
		Recommendation: Recommendation{
			Specialization: "General Physician",
			Reason:         "Unable to complete automated assessment.",
		},
		ConsultationSummary: "Analysis failed. Please try again.",
		Disclaimer:          DefaultDisclaimer,
		Fallback:            true,
	}
}

// Analyzer issues the terminal structured-analysis request for a session.
type Analyzer struct {
	reasoner Reasoner
	logger   *zap.Logger
}

func NewAnalyzer(reasoner Reasoner, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{reasoner: reasoner, logger: logger}
}

// Analyze always returns a well-formed result. Remote errors, rate limiting,
// empty or unparseable output all yield FallbackAnalysis. There is no retry.
func (a *Analyzer) Analyze(ctx context.Context, intake PatientIntake, transcript []ChatMessage) (result AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("analysis panicked", zap.Any("panic", r))
			result = FallbackAnalysis()
			observability.RecordAnalysis("fallback")
		}
	}()

	patient := PatientContext{
		Age:        intake.Age,
		Gender:     intake.Gender,
		Symptoms:   intake.Symptoms,
		Duration:   intake.Duration,
		Transcript: FlattenTranscript(transcript),
	}

	raw, err := a.reasoner.Analyze(ctx, patient)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			a.logger.Warn("analysis rate limited", zap.Error(err))
		} else {
			a.logger.Error("analysis request failed", zap.Error(err))
		}
		observability.RecordAnalysis("fallback")
		return FallbackAnalysis()
	}

	parsed, err := ParseAnalysis(raw)
	if err != nil {
		a.logger.Warn("analysis output rejected", zap.Error(err), zap.Int("bytes", len(raw)))
		observability.RecordAnalysis("fallback")
		return FallbackAnalysis()
	}

	observability.RecordAnalysis("ok")
	return parsed
}

// ParseAnalysis decodes a model reply into an AnalysisResult. Markdown code
// fences and surrounding prose are tolerated; a missing risk level,
// explanation or specialization is not.
func ParseAnalysis(raw string) (AnalysisResult, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return AnalysisResult{}, fmt.Errorf("%w: no JSON object in reply", errMalformedAnalysis)
	}

	var payload struct {
		RiskLevel      string `json:"riskLevel"`
		Explanation    string `json:"explanation"`
		Recommendation struct {
			Specialization string `json:"specialization"`
			Reason         string `json:"reason"`
		} `json:"recommendation"`
		ConsultationSummary string `json:"consultationSummary"`
		Disclaimer          string `json:"disclaimer"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: %w", errMalformedAnalysis, err)
	}

	level, ok := ParseRiskLevel(payload.RiskLevel)
	if !ok {
		return AnalysisResult{}, fmt.Errorf("%w: risk level %q", errMalformedAnalysis, payload.RiskLevel)
	}
	if strings.TrimSpace(payload.Explanation) == "" {
		return AnalysisResult{}, fmt.Errorf("%w: empty explanation", errMalformedAnalysis)
	}
	if strings.TrimSpace(payload.Recommendation.Specialization) == "" {
		return AnalysisResult{}, fmt.Errorf("%w: empty specialization", errMalformedAnalysis)
	}

	disclaimer := strings.TrimSpace(payload.Disclaimer)
	if disclaimer == "" {
		disclaimer = DefaultDisclaimer
	}

	return AnalysisResult{
		RiskLevel:   level,
		Explanation: strings.TrimSpace(payload.Explanation),
		Recommendation: Recommendation{
			Specialization: strings.TrimSpace(payload.Recommendation.Specialization),
			Reason:         strings.TrimSpace(payload.Recommendation.Reason),
		},
		ConsultationSummary: strings.TrimSpace(payload.ConsultationSummary),
		Disclaimer:          disclaimer,
	}, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
