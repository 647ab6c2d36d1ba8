package triage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the lifecycle position of a conversation session.
// Transitions only move forward: Collecting -> Analyzing -> Completed|Failed.
type Status string

const (
	StatusCollecting Status = "collecting"
	StatusAnalyzing  Status = "analyzing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// ParseRiskLevel accepts "Low", "low", "Low Risk" and similar spellings.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSpace(strings.TrimSuffix(v, "risk"))
	switch v {
	case "low":
		return RiskLow, true
	case "medium", "moderate":
		return RiskMedium, true
	case "high":
		return RiskHigh, true
	default:
		return "", false
	}
}

// Label is the badge text shown to patients, e.g. "High Risk".
func (r RiskLevel) Label() string {
	return string(r) + " Risk"
}

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	level, ok := ParseRiskLevel(s)
	if !ok {
		return fmt.Errorf("unknown risk level %q", s)
	}
	*r = level
	return nil
}

// PatientIntake is the validated demographic and symptom data a session starts from.
type PatientIntake struct {
	Name     string   `json:"name"`
	Age      int      `json:"age"`
	Gender   Gender   `json:"gender"`
	Symptoms []string `json:"symptoms"`
	Duration string   `json:"duration"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Recommendation struct {
	Specialization string `json:"specialization"`
	Reason         string `json:"reason"`
}

// AnalysisResult is the structured assessment produced once per session.
// Fallback is set when the result is the static substitute used after a
// remote failure or an unparseable model reply.
type AnalysisResult struct {
	RiskLevel           RiskLevel      `json:"riskLevel"`
	Explanation         string         `json:"explanation"`
	Recommendation      Recommendation `json:"recommendation"`
	ConsultationSummary string         `json:"consultationSummary"`
	Disclaimer          string         `json:"disclaimer"`
	Fallback            bool           `json:"fallback"`
}

// HistoryRecord is the persisted summary of one finished triage session.
type HistoryRecord struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId,omitempty"`
	Name           string         `json:"name"`
	Age            int            `json:"age"`
	Gender         Gender         `json:"gender"`
	Symptoms       []string       `json:"symptoms"`
	Duration       string         `json:"duration"`
	Result         AnalysisResult `json:"result"`
	ChatTranscript string         `json:"chatTranscript"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// PatientContext is what the reasoning service sees when asked for an analysis.
type PatientContext struct {
	Age        int
	Gender     Gender
	Symptoms   []string
	Duration   string
	Transcript string
}

type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}
