package model

import (
	"time"

	"gorm.io/datatypes"
)

// ReviewStatus is the lifecycle state of a SOAP report.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusInReview ReviewStatus = "in_review"
	StatusApproved ReviewStatus = "approved"
	StatusRejected ReviewStatus = "rejected"
)

// ReviewStatuses lists every status in lifecycle order.
var ReviewStatuses = []ReviewStatus{StatusPending, StatusInReview, StatusApproved, StatusRejected}

// Valid reports whether s may be persisted.
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// TriageLabel is the coarse urgency bucket derived from the assessment severity.
type TriageLabel string

const (
	TriageEmergency TriageLabel = "emergency"
	TriageUrgent    TriageLabel = "urgent"
	TriageStandard  TriageLabel = "standard"
	TriageRoutine   TriageLabel = "routine"
)

// SOAPReport is the AI-drafted clinical report attached one-to-one to a ClinicalSession.
// @Description SOAP report with review state
type SOAPReport struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	SessionID uint `json:"session_id" gorm:"column:session_id;not null;uniqueIndex"`
	PatientID uint `json:"patient_id" gorm:"column:patient_id;not null;index"`

	Subjective datatypes.JSONType[Subjective] `json:"subjective" gorm:"column:subjective"`
	Objective  datatypes.JSONType[Objective]  `json:"objective" gorm:"column:objective"`
	Assessment datatypes.JSONType[Assessment] `json:"assessment" gorm:"column:assessment"`
	Plan       datatypes.JSONType[Plan]       `json:"plan" gorm:"column:plan"`

	Department  string                       `json:"department" gorm:"column:department;type:varchar(64);index" example:"cardiology"`
	Priority    string                       `json:"priority" gorm:"column:priority;type:varchar(16)" example:"high"`
	TriageLabel TriageLabel                  `json:"triage_label" gorm:"column:triage_label;type:varchar(16);index" example:"urgent"`
	RedFlags    datatypes.JSONType[[]string] `json:"red_flags" gorm:"column:red_flags"`

	ReviewStatus     ReviewStatus `json:"review_status" gorm:"column:review_status;type:varchar(16);not null;index" example:"pending"`
	AssignedDoctorID *uint        `json:"assigned_doctor_id" gorm:"column:assigned_doctor_id;index"`
	DoctorNotes      *string      `json:"doctor_notes" gorm:"column:doctor_notes;type:text"`
	Prescription     *string      `json:"prescription" gorm:"column:prescription;type:text"`
	RejectionReason  *string      `json:"rejection_reason" gorm:"column:rejection_reason;type:text"`
	DoctorFeedback   *string      `json:"doctor_feedback" gorm:"column:doctor_feedback;type:text"`
	StarRating       *int         `json:"star_rating" gorm:"column:star_rating"`

	RegenerationCount int  `json:"regeneration_count" gorm:"column:regeneration_count;not null;default:0"`
	Version           uint `json:"version" gorm:"column:version;not null;default:1"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ReviewedAt *time.Time `json:"reviewed_at" gorm:"column:reviewed_at"`
}

// Sections returns a copy of the report's four clinical sections.
func (r *SOAPReport) Sections() Sections {
	subjective := r.Subjective.Data()
	objective := r.Objective.Data()
	assessment := r.Assessment.Data()
	plan := r.Plan.Data()
	return Sections{
		Subjective: &subjective,
		Objective:  &objective,
		Assessment: &assessment,
		Plan:       &plan,
	}
}

// SetSections overwrites the four sections. Callers validate first.
func (r *SOAPReport) SetSections(s Sections) {
	r.Subjective = datatypes.NewJSONType(*s.Subjective)
	r.Objective = datatypes.NewJSONType(*s.Objective)
	r.Assessment = datatypes.NewJSONType(*s.Assessment)
	r.Plan = datatypes.NewJSONType(*s.Plan)
}

// SectionColumns returns the column values for a full section replacement.
func SectionColumns(s Sections) map[string]interface{} {
	return map[string]interface{}{
		"subjective": datatypes.NewJSONType(*s.Subjective),
		"objective":  datatypes.NewJSONType(*s.Objective),
		"assessment": datatypes.NewJSONType(*s.Assessment),
		"plan":       datatypes.NewJSONType(*s.Plan),
	}
}
