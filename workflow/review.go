package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariebrainware/telemed-review/events"
	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/util"
)

// Action is a doctor's decision on a claimed report.
type Action string

const (
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionRequestChanges Action = "request_changes"
)

// RegenerationRatingThreshold is the highest star rating on a rejection that still
// triggers an automatic redraft.
const RegenerationRatingThreshold = 2

// Decision is the payload of Decide.
type Decision struct {
	Action          Action
	DoctorNotes     *string
	Prescription    *string
	RejectionReason string
	Feedback        string
	// StarRating is 0 when not given, otherwise 1..5.
	StarRating int
}

// Outcome is the result of a decision or regeneration.
type Outcome struct {
	Report      *model.SOAPReport
	Status      model.ReviewStatus
	Regenerated bool
	// Sections is set when Regenerated is true.
	Sections *model.Sections
}

// TriggersRegeneration reports whether a decision hands the report to the
// regeneration agent.
func TriggersRegeneration(action Action, starRating int) bool {
	switch action {
	case ActionRequestChanges:
		return true
	case ActionReject:
		return starRating >= 1 && starRating <= RegenerationRatingThreshold
	}
	return false
}

func validRating(r int) bool { return r >= 1 && r <= 5 }

// Validate checks the decision payload before anything is read or written.
func (d Decision) Validate() error {
	if d.StarRating != 0 && !validRating(d.StarRating) {
		return fmt.Errorf("%w: star_rating must be between 1 and 5", ErrValidationFailed)
	}
	switch d.Action {
	case ActionApprove:
		return nil
	case ActionReject:
		if strings.TrimSpace(d.RejectionReason) == "" {
			return fmt.Errorf("%w: rejection_reason is required", ErrValidationFailed)
		}
		return nil
	case ActionRequestChanges:
		if strings.TrimSpace(d.Feedback) == "" {
			return fmt.Errorf("%w: feedback is required", ErrValidationFailed)
		}
		if d.StarRating == 0 {
			return fmt.Errorf("%w: star_rating is required", ErrValidationFailed)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown action %q", ErrValidationFailed, d.Action)
}

func requireDoctor(caller Caller) error {
	if caller.Role != model.RoleDoctor || caller.AccountID == 0 {
		return fmt.Errorf("%w: doctor role required", ErrForbidden)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id uint) (*model.SOAPReport, error) {
	report, err := s.store.Get(ctx, id)
	if errors.Is(err, model.ErrReportNotFound) {
		return nil, fmt.Errorf("%w: report %d", ErrNotFound, id)
	}
	return report, err
}

// GetReport returns a report to a doctor, or to the patient it belongs to. Reports of
// other patients are reported as not found.
func (s *Service) GetReport(ctx context.Context, id uint, caller Caller) (*model.SOAPReport, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch caller.Role {
	case model.RoleDoctor:
		return report, nil
	case model.RolePatient:
		if report.PatientID == caller.AccountID {
			return report, nil
		}
		return nil, fmt.Errorf("%w: report %d", ErrNotFound, id)
	}
	return nil, fmt.Errorf("%w: role required", ErrForbidden)
}

// Claim moves a pending report into review for the calling doctor. Exactly one of
// several concurrent claims succeeds; the others get ErrConflict.
func (s *Service) Claim(ctx context.Context, id uint, doctor Caller) (*model.SOAPReport, error) {
	if err := requireDoctor(doctor); err != nil {
		return nil, err
	}

	err := s.store.ConditionalUpdate(ctx, id, model.Expectation{Status: model.StatusPending}, map[string]interface{}{
		"review_status":      model.StatusInReview,
		"assigned_doctor_id": doctor.AccountID,
	})
	switch {
	case errors.Is(err, model.ErrReportNotFound):
		return nil, fmt.Errorf("%w: report %d", ErrNotFound, id)
	case errors.Is(err, model.ErrStaleReport):
		return nil, s.claimRefused(ctx, id, doctor)
	case err != nil:
		return nil, err
	}

	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, util.ReviewEvent{
		EventType:  util.EventReportClaimed,
		ReportID:   id,
		AccountID:  doctor.AccountID,
		Role:       string(doctor.Role),
		FromStatus: string(model.StatusPending),
		ToStatus:   string(model.StatusInReview),
		Message:    "report claimed",
	}, events.ReportClaimed, report)
	return report, nil
}

// claimRefused explains why a claim's precondition failed.
func (s *Service) claimRefused(ctx context.Context, id uint, doctor Caller) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if current.ReviewStatus == model.StatusInReview {
		util.LogReviewEvent(util.ReviewEvent{
			EventType:  util.EventClaimConflict,
			ReportID:   id,
			AccountID:  doctor.AccountID,
			Role:       string(doctor.Role),
			FromStatus: string(current.ReviewStatus),
			Message:    "report already claimed",
		})
		return fmt.Errorf("%w: report %d is already claimed", ErrConflict, id)
	}
	return fmt.Errorf("%w: report %d is %s, not pending", ErrInvalidTransition, id, current.ReviewStatus)
}

// Decide records the assigned doctor's decision on an in-review report. Approvals and
// plain rejections are terminal. request_changes, and rejections rated at or below
// RegenerationRatingThreshold, hand the report to the regeneration agent; if that fails
// the returned Outcome still carries the committed state alongside ErrRegenerationFailed.
func (s *Service) Decide(ctx context.Context, id uint, doctor Caller, d Decision) (*Outcome, error) {
	if err := requireDoctor(doctor); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.ReviewStatus != model.StatusInReview {
		return nil, fmt.Errorf("%w: report %d is %s, not in_review", ErrInvalidTransition, id, report.ReviewStatus)
	}
	if report.AssignedDoctorID != nil && *report.AssignedDoctorID != doctor.AccountID {
		return nil, fmt.Errorf("%w: report %d is assigned to another doctor", ErrForbidden, id)
	}

	switch d.Action {
	case ActionApprove:
		return s.finalize(ctx, report, doctor, d, model.StatusApproved)
	case ActionReject:
		outcome, err := s.finalize(ctx, report, doctor, d, model.StatusRejected)
		if err != nil || !TriggersRegeneration(d.Action, d.StarRating) {
			return outcome, err
		}
		return s.regenerate(ctx, regeneration{
			report:          outcome.Report,
			doctor:          doctor,
			feedback:        d.Feedback,
			rejectionReason: d.RejectionReason,
			starRating:      d.StarRating,
		})
	default:
		return s.regenerate(ctx, regeneration{
			report:     report,
			doctor:     doctor,
			feedback:   d.Feedback,
			starRating: d.StarRating,
		})
	}
}

// finalize commits a terminal decision.
func (s *Service) finalize(ctx context.Context, report *model.SOAPReport, doctor Caller, d Decision, to model.ReviewStatus) (*Outcome, error) {
	fields := map[string]interface{}{
		"review_status":      to,
		"assigned_doctor_id": doctor.AccountID,
		"reviewed_at":        s.now().UTC(),
	}
	if d.DoctorNotes != nil {
		fields["doctor_notes"] = *d.DoctorNotes
	}
	if d.Prescription != nil {
		fields["prescription"] = *d.Prescription
	}
	if d.StarRating != 0 {
		fields["star_rating"] = d.StarRating
	}
	if to == model.StatusRejected {
		fields["rejection_reason"] = strings.TrimSpace(d.RejectionReason)
		if strings.TrimSpace(d.Feedback) != "" {
			fields["doctor_feedback"] = strings.TrimSpace(d.Feedback)
		}
	}

	expect := model.Expectation{Status: model.StatusInReview, Version: report.Version, DoctorID: doctor.AccountID}
	if err := s.store.ConditionalUpdate(ctx, report.ID, expect, fields); err != nil {
		return nil, s.staleOrErr(report.ID, err)
	}

	updated, err := s.load(ctx, report.ID)
	if err != nil {
		return nil, err
	}

	auditType, evtType := util.EventReportApproved, events.ReportApproved
	if to == model.StatusRejected {
		auditType, evtType = util.EventReportRejected, events.ReportRejected
	}
	s.committed(ctx, util.ReviewEvent{
		EventType:  auditType,
		ReportID:   report.ID,
		AccountID:  doctor.AccountID,
		Role:       string(doctor.Role),
		FromStatus: string(model.StatusInReview),
		ToStatus:   string(to),
		Details:    map[string]interface{}{"star_rating": d.StarRating},
	}, evtType, updated)

	return &Outcome{Report: updated, Status: updated.ReviewStatus}, nil
}

func (s *Service) staleOrErr(id uint, err error) error {
	switch {
	case errors.Is(err, model.ErrReportNotFound):
		return fmt.Errorf("%w: report %d", ErrNotFound, id)
	case errors.Is(err, model.ErrStaleReport):
		return fmt.Errorf("%w: report %d changed, re-fetch and retry", ErrConflict, id)
	}
	return err
}
