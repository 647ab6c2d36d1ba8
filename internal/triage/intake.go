package triage

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DurationOptions is the picklist offered by the intake form. ValidateIntake
// does not enforce it; any non-empty duration is accepted.
var DurationOptions = []string{
	"1 Day", "2 Days", "3 Days", "4 Days", "5 Days", "6 Days",
	"1 Week", "2 Weeks", "3 Weeks", "1 Month",
}

// IntakeForm is the raw, unvalidated intake as submitted by a client.
// Age may arrive as a JSON number or string.
type IntakeForm struct {
	Name     string   `json:"name"`
	Age      string   `json:"age"`
	Gender   string   `json:"gender"`
	Symptoms []string `json:"symptoms"`
	Duration string   `json:"duration"`
}

func (f *IntakeForm) UnmarshalJSON(data []byte) error {
	type alias IntakeForm
	var raw struct {
		alias
		Age json.RawMessage `json:"age"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = IntakeForm(raw.alias)

	age := bytes.TrimSpace(raw.Age)
	switch {
	case len(age) == 0 || bytes.Equal(age, []byte("null")):
		f.Age = ""
	case age[0] == '"':
		if err := json.Unmarshal(age, &f.Age); err != nil {
			return err
		}
	default:
		f.Age = string(age)
	}
	return nil
}

// ValidateIntake checks a submitted form and produces the intake a session
// can start from. It has no side effects.
func ValidateIntake(form IntakeForm) (PatientIntake, error) {
	verr := &ValidationError{}

	age, err := strconv.Atoi(strings.TrimSpace(form.Age))
	if err != nil || age <= 0 {
		verr.add("age", ErrInvalidAge)
	}

	gender, ok := parseGender(form.Gender)
	if !ok {
		verr.add("gender", ErrInvalidGender)
	}

	symptoms := normalizeSymptoms(form.Symptoms)
	if len(symptoms) == 0 {
		verr.add("symptoms", ErrNoSymptoms)
	}

	duration := strings.TrimSpace(form.Duration)
	if duration == "" {
		verr.add("duration", ErrMissingDuration)
	}

	if len(verr.Fields) > 0 {
		return PatientIntake{}, verr
	}

	return PatientIntake{
		Name:     strings.TrimSpace(form.Name),
		Age:      age,
		Gender:   gender,
		Symptoms: symptoms,
		Duration: duration,
	}, nil
}

func parseGender(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return GenderOther, true
	case "male":
		return GenderMale, true
	case "female":
		return GenderFemale, true
	case "other":
		return GenderOther, true
	default:
		return "", false
	}
}

// normalizeSymptoms trims entries, drops blanks and exact duplicates, and
// keeps first-seen order.
func normalizeSymptoms(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
