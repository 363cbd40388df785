// Package triage derives routing and urgency metadata from a report's clinical sections.
package triage

import (
	"strings"

	"github.com/ariebrainware/telemed-review/model"
)

// DefaultDepartment is used when the assessment carries no classification.
const DefaultDepartment = "general_medicine"

// Result is the triage outcome for one report.
type Result struct {
	Department  string            `json:"department"`
	Priority    string            `json:"priority"`
	TriageLabel model.TriageLabel `json:"triage_label"`
	RedFlags    []string          `json:"red_flags"`
}

// Classify maps the subjective and assessment sections onto department, priority,
// triage label and red flags. Nil sections yield the routine defaults.
func Classify(subjective *model.Subjective, assessment *model.Assessment) Result {
	res := Result{
		Department:  DefaultDepartment,
		Priority:    "low",
		TriageLabel: model.TriageRoutine,
		RedFlags:    []string{},
	}

	if subjective != nil {
		for _, flag := range subjective.RedFlags {
			if f := strings.TrimSpace(flag); f != "" {
				res.RedFlags = append(res.RedFlags, f)
			}
		}
	}

	if assessment == nil {
		return res
	}
	if dept := normalizeDepartment(assessment.Department); dept != "" {
		res.Department = dept
	}

	switch model.Severity(strings.ToLower(strings.TrimSpace(string(assessment.Severity)))) {
	case model.SeverityCritical:
		res.Priority, res.TriageLabel = "critical", model.TriageEmergency
	case model.SeverityHigh:
		res.Priority, res.TriageLabel = "high", model.TriageUrgent
	case model.SeverityModerate:
		res.Priority, res.TriageLabel = "medium", model.TriageStandard
	}
	return res
}

// ClassifySections is Classify over a full section set.
func ClassifySections(s model.Sections) Result {
	return Classify(s.Subjective, s.Assessment)
}

func normalizeDepartment(dept string) string {
	dept = strings.ToLower(strings.Join(strings.Fields(dept), "_"))
	return strings.ReplaceAll(dept, "-", "_")
}
