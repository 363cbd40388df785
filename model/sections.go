package model

import (
	"fmt"
	"strings"
)

// Severity is the clinical severity recorded in an assessment.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Subjective is the patient-reported part of a SOAP report.
type Subjective struct {
	ChiefComplaint          string   `json:"chief_complaint"`
	HistoryOfPresentIllness string   `json:"history_of_present_illness"`
	Symptoms                []string `json:"symptoms"`
	Duration                string   `json:"duration,omitempty"`
	Medications             []string `json:"medications,omitempty"`
	Allergies               []string `json:"allergies,omitempty"`
	RedFlags                []string `json:"red_flags,omitempty"`
}

// Objective holds what could be observed or measured during the interview.
type Objective struct {
	Observations string            `json:"observations"`
	VitalSigns   map[string]string `json:"vital_signs,omitempty"`
	Findings     []string          `json:"findings,omitempty"`
}

// Assessment is the drafted clinical impression.
type Assessment struct {
	PrimaryDiagnosis      string   `json:"primary_diagnosis"`
	DifferentialDiagnoses []string `json:"differential_diagnoses,omitempty"`
	Severity              Severity `json:"severity"`
	Department            string   `json:"department,omitempty"`
	Reasoning             string   `json:"reasoning,omitempty"`
}

// Plan lists the proposed next steps.
type Plan struct {
	Recommendations []string `json:"recommendations"`
	FollowUp        string   `json:"follow_up"`
	Tests           []string `json:"tests,omitempty"`
	Medications     []string `json:"medications,omitempty"`
	Referral        string   `json:"referral,omitempty"`
}

// Sections groups the four SOAP sections. Pointers let a decoded draft express a
// missing section so Validate can reject it.
type Sections struct {
	Subjective *Subjective `json:"subjective"`
	Objective  *Objective  `json:"objective"`
	Assessment *Assessment `json:"assessment"`
	Plan       *Plan       `json:"plan"`
}

// SectionError describes the first structural problem found in a draft.
type SectionError struct {
	Section string
	Field   string
}

func (e *SectionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("section %q is missing", e.Section)
	}
	return fmt.Sprintf("section %q: field %q is required", e.Section, e.Field)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// Validate checks that all four sections are present and that every required
// sub-field is set.
func (s Sections) Validate() error {
	switch {
	case s.Subjective == nil:
		return &SectionError{Section: "subjective"}
	case s.Objective == nil:
		return &SectionError{Section: "objective"}
	case s.Assessment == nil:
		return &SectionError{Section: "assessment"}
	case s.Plan == nil:
		return &SectionError{Section: "plan"}
	}

	if blank(s.Subjective.ChiefComplaint) {
		return &SectionError{Section: "subjective", Field: "chief_complaint"}
	}
	if blank(s.Subjective.HistoryOfPresentIllness) {
		return &SectionError{Section: "subjective", Field: "history_of_present_illness"}
	}
	if s.Subjective.Symptoms == nil {
		return &SectionError{Section: "subjective", Field: "symptoms"}
	}
	if blank(s.Objective.Observations) {
		return &SectionError{Section: "objective", Field: "observations"}
	}
	if blank(s.Assessment.PrimaryDiagnosis) {
		return &SectionError{Section: "assessment", Field: "primary_diagnosis"}
	}
	if !s.Assessment.Severity.Valid() {
		return &SectionError{Section: "assessment", Field: "severity"}
	}
	if len(s.Plan.Recommendations) == 0 {
		return &SectionError{Section: "plan", Field: "recommendations"}
	}
	if blank(s.Plan.FollowUp) {
		return &SectionError{Section: "plan", Field: "follow_up"}
	}
	return nil
}
