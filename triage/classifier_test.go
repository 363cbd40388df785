package triage

import (
	"testing"

	"github.com/ariebrainware/telemed-review/model"
	"github.com/stretchr/testify/assert"
)

func TestClassify_SeverityOrdering(t *testing.T) {
	cases := []struct {
		severity model.Severity
		priority string
		label    model.TriageLabel
	}{
		{model.SeverityCritical, "critical", model.TriageEmergency},
		{model.SeverityHigh, "high", model.TriageUrgent},
		{model.SeverityModerate, "medium", model.TriageStandard},
		{model.SeverityLow, "low", model.TriageRoutine},
		{"", "low", model.TriageRoutine},
	}

	for _, tc := range cases {
		t.Run(string(tc.severity), func(t *testing.T) {
			res := Classify(nil, &model.Assessment{Severity: tc.severity})
			assert.Equal(t, tc.priority, res.Priority)
			assert.Equal(t, tc.label, res.TriageLabel)
		})
	}
}

func TestClassify_SeverityIsCaseInsensitive(t *testing.T) {
	res := Classify(nil, &model.Assessment{Severity: " Critical "})
	assert.Equal(t, model.TriageEmergency, res.TriageLabel)
}

func TestClassify_Department(t *testing.T) {
	res := Classify(nil, &model.Assessment{Department: "Internal Medicine"})
	assert.Equal(t, "internal_medicine", res.Department)

	res = Classify(nil, &model.Assessment{Department: "  "})
	assert.Equal(t, DefaultDepartment, res.Department)
}

func TestClassify_RedFlags(t *testing.T) {
	res := Classify(&model.Subjective{RedFlags: []string{"syncope", " ", "chest pain"}}, nil)
	assert.Equal(t, []string{"syncope", "chest pain"}, res.RedFlags)

	res = Classify(&model.Subjective{}, nil)
	assert.NotNil(t, res.RedFlags)
	assert.Empty(t, res.RedFlags)
}

func TestClassify_NilSections(t *testing.T) {
	res := Classify(nil, nil)
	assert.Equal(t, DefaultDepartment, res.Department)
	assert.Equal(t, model.TriageRoutine, res.TriageLabel)
	assert.Empty(t, res.RedFlags)
}
