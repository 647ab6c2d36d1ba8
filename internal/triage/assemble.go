package triage

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const AnonymousName = "Anonymous"

// Assembler builds history records. Its clock and id source are the only
// inputs besides the session data.
type Assembler struct {
	Now   func() time.Time
	NewID func() string
}

func NewAssembler() Assembler {
	return Assembler{Now: time.Now, NewID: uuid.NewString}
}

// Assemble merges intake, transcript and result into a history record.
func (a Assembler) Assemble(intake PatientIntake, transcript []ChatMessage, result AnalysisResult) HistoryRecord {
	name := strings.TrimSpace(intake.Name)
	if name == "" {
		name = AnonymousName
	}

	symptoms := make([]string, len(intake.Symptoms))
	copy(symptoms, intake.Symptoms)

	return HistoryRecord{
		ID:             a.NewID(),
		Name:           name,
		Age:            intake.Age,
		Gender:         intake.Gender,
		Symptoms:       symptoms,
		Duration:       intake.Duration,
		Result:         result,
		ChatTranscript: FlattenTranscript(transcript),
		CreatedAt:      a.Now(),
	}
}

// Assemble uses the wall clock and random ids.
func Assemble(intake PatientIntake, transcript []ChatMessage, result AnalysisResult) HistoryRecord {
	return NewAssembler().Assemble(intake, transcript, result)
}

// FlattenTranscript renders messages as "ROLE: text" lines.
func FlattenTranscript(transcript []ChatMessage) string {
	lines := make([]string, 0, len(transcript))
	for _, m := range transcript {
		lines = append(lines, strings.ToUpper(string(m.Role))+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}
