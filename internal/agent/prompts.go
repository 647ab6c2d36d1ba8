package agent

import (
	"fmt"
	"strings"

	"medtriage/internal/triage"
)

const analysisSystemPrompt = "You are a medical triage assistant."

const analysisPromptTemplate = `You are a medical triage AI assistant.

Patient Details:
- Age: %d
- Gender: %s
- Symptoms: %s
- Duration: %s
%s
Respond ONLY with valid JSON:
{
  "riskLevel": "Low Risk | Medium Risk | High Risk",
  "explanation": "Max 2 sentences",
  "recommendation": {
    "specialization": "Doctor type",
    "reason": "Brief reason"
  },
  "consultationSummary": "1–2 line summary",
  "disclaimer": "This is AI-generated advice only."
}`

// analysisPrompt renders the single request sent for a risk assessment. The
// transcript, when present, is appended as additional context.
func analysisPrompt(p triage.PatientContext) string {
	extra := ""
	if t := strings.TrimSpace(p.Transcript); t != "" {
		extra = "\nConsultation transcript:\n" + t + "\n"
	}
	return fmt.Sprintf(analysisPromptTemplate, p.Age, p.Gender, strings.Join(p.Symptoms, ", "), p.Duration, extra)
}
