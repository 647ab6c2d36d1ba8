package triage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIntake(t *testing.T) {
	tests := []struct {
		name    string
		form    IntakeForm
		want    PatientIntake
		wantErr []error
	}{
		{
			name: "valid",
			form: IntakeForm{Name: " Asha ", Age: "29", Gender: "female", Symptoms: []string{"fever", " cough "}, Duration: "3 Days"},
			want: PatientIntake{Name: "Asha", Age: 29, Gender: GenderFemale, Symptoms: []string{"fever", "cough"}, Duration: "3 Days"},
		},
		{
			name: "blank gender defaults to other and duplicates drop",
			form: IntakeForm{Age: "40", Symptoms: []string{"Headache", "", "Headache", "Nausea"}, Duration: "1 Week"},
			want: PatientIntake{Age: 40, Gender: GenderOther, Symptoms: []string{"Headache", "Nausea"}, Duration: "1 Week"},
		},
		{
			name: "free text duration accepted",
			form: IntakeForm{Age: "5", Gender: "Male", Symptoms: []string{"rash"}, Duration: "since Tuesday"},
			want: PatientIntake{Age: 5, Gender: GenderMale, Symptoms: []string{"rash"}, Duration: "since Tuesday"},
		},
		{
			name:    "zero age",
			form:    IntakeForm{Age: "0", Symptoms: []string{"fever"}, Duration: "1 Day"},
			wantErr: []error{ErrInvalidAge},
		},
		{
			name:    "non numeric age",
			form:    IntakeForm{Age: "twenty", Symptoms: []string{"fever"}, Duration: "1 Day"},
			wantErr: []error{ErrInvalidAge},
		},
		{
			name:    "everything missing",
			form:    IntakeForm{Gender: "unknown", Symptoms: []string{"  "}},
			wantErr: []error{ErrInvalidAge, ErrInvalidGender, ErrNoSymptoms, ErrMissingDuration},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateIntake(tt.form)
			if len(tt.wantErr) > 0 {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Len(t, verr.Fields, len(tt.wantErr))
				for _, want := range tt.wantErr {
					assert.ErrorIs(t, err, want)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntakeFormAgeForms(t *testing.T) {
	var f IntakeForm
	require.NoError(t, json.Unmarshal([]byte(`{"name":"A","age":29,"symptoms":["x"],"duration":"1 Day"}`), &f))
	assert.Equal(t, "29", f.Age)
	assert.Equal(t, "A", f.Name)

	require.NoError(t, json.Unmarshal([]byte(`{"age":"31"}`), &f))
	assert.Equal(t, "31", f.Age)

	require.NoError(t, json.Unmarshal([]byte(`{"age":null}`), &f))
	assert.Equal(t, "", f.Age)
}
