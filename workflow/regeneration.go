package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariebrainware/telemed-review/drafting"
	"github.com/ariebrainware/telemed-review/events"
	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/triage"
	"github.com/ariebrainware/telemed-review/util"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type regeneration struct {
	// report is the snapshot the commit is conditioned on (status and version).
	report          *model.SOAPReport
	doctor          Caller
	feedback        string
	rejectionReason string
	starRating      int
}

// draft runs one bounded model call and validates the result.
func (s *Service) draft(ctx context.Context, req drafting.Request) (model.Sections, error) {
	if s.drafter == nil {
		return model.Sections{}, drafting.ErrNotConfigured
	}
	draftCtx, cancel := context.WithTimeout(ctx, s.draftTimeout)
	defer cancel()

	sections, err := s.drafter.Draft(draftCtx, req)
	if err != nil {
		return model.Sections{}, err
	}
	if err := sections.Validate(); err != nil {
		return model.Sections{}, err
	}
	return sections, nil
}

// regenerate redrafts the report from its transcript, prior sections and the doctor's
// feedback, then commits sections, triage and the return to pending in one update.
// On any failure nothing is written and the report keeps its current state.
func (s *Service) regenerate(ctx context.Context, r regeneration) (*Outcome, error) {
	report := r.report
	from := report.ReviewStatus
	unchanged := &Outcome{Report: report, Status: from}

	session, err := s.store.GetSession(ctx, report.SessionID)
	if err != nil {
		return unchanged, s.regenerationFailed(report, r.doctor, err)
	}

	prior := report.Sections()
	sections, err := s.draft(ctx, drafting.Request{
		Transcript:      session.Transcript,
		PriorSections:   &prior,
		Feedback:        strings.TrimSpace(r.feedback),
		RejectionReason: strings.TrimSpace(r.rejectionReason),
		StarRating:      r.starRating,
	})
	if err != nil {
		return unchanged, s.regenerationFailed(report, r.doctor, err)
	}

	result := triage.ClassifySections(sections)
	fields := model.SectionColumns(sections)
	fields["department"] = result.Department
	fields["priority"] = result.Priority
	fields["triage_label"] = string(result.TriageLabel)
	fields["red_flags"] = datatypes.NewJSONType(result.RedFlags)
	fields["review_status"] = model.StatusPending
	fields["assigned_doctor_id"] = nil
	fields["reviewed_at"] = nil
	fields["regeneration_count"] = gorm.Expr("regeneration_count + 1")
	fields["star_rating"] = r.starRating
	if fb := feedbackText(r); fb != "" {
		fields["doctor_feedback"] = fb
	}

	expect := model.Expectation{Status: from, Version: report.Version}
	if err := s.store.ConditionalUpdate(ctx, report.ID, expect, fields); err != nil {
		return unchanged, s.staleOrErr(report.ID, err)
	}

	updated, err := s.load(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	s.committed(ctx, util.ReviewEvent{
		EventType:  util.EventRegenerationSucceeded,
		ReportID:   report.ID,
		AccountID:  r.doctor.AccountID,
		Role:       string(r.doctor.Role),
		FromStatus: string(from),
		ToStatus:   string(model.StatusPending),
		Details: map[string]interface{}{
			"star_rating":        r.starRating,
			"regeneration_count": updated.RegenerationCount,
			"triage_label":       string(updated.TriageLabel),
		},
	}, events.ReportRegenerated, updated)

	return &Outcome{Report: updated, Status: updated.ReviewStatus, Regenerated: true, Sections: &sections}, nil
}

func feedbackText(r regeneration) string {
	fb := strings.TrimSpace(r.feedback)
	if fb == "" {
		return strings.TrimSpace(r.rejectionReason)
	}
	return fb
}

func (s *Service) regenerationFailed(report *model.SOAPReport, doctor Caller, cause error) error {
	util.LogReviewEvent(util.ReviewEvent{
		EventType:  util.EventRegenerationFailed,
		ReportID:   report.ID,
		AccountID:  doctor.AccountID,
		Role:       string(doctor.Role),
		FromStatus: string(report.ReviewStatus),
		ToStatus:   string(report.ReviewStatus),
		Message:    cause.Error(),
	})
	return fmt.Errorf("%w: report %d: %v", ErrRegenerationFailed, report.ID, cause)
}

// RequestRegeneration re-runs the agent for a rejected report on behalf of the doctor
// who rejected it.
func (s *Service) RequestRegeneration(ctx context.Context, id uint, doctor Caller, feedback string, starRating int) (*Outcome, error) {
	if err := requireDoctor(doctor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(feedback) == "" {
		return nil, fmt.Errorf("%w: feedback is required", ErrValidationFailed)
	}
	if !validRating(starRating) {
		return nil, fmt.Errorf("%w: star_rating must be between 1 and 5", ErrValidationFailed)
	}

	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.ReviewStatus != model.StatusRejected {
		return nil, fmt.Errorf("%w: report %d is %s, not rejected", ErrInvalidTransition, id, report.ReviewStatus)
	}
	if report.AssignedDoctorID == nil || *report.AssignedDoctorID != doctor.AccountID {
		return nil, fmt.Errorf("%w: report %d was rejected by another doctor", ErrForbidden, id)
	}

	var reason string
	if report.RejectionReason != nil {
		reason = *report.RejectionReason
	}
	return s.regenerate(ctx, regeneration{
		report:          report,
		doctor:          doctor,
		feedback:        feedback,
		rejectionReason: reason,
		starRating:      starRating,
	})
}

// DraftReport creates the first report of a clinical session. Only the patient who
// owns the session may request it, and a session gets at most one report.
func (s *Service) DraftReport(ctx context.Context, sessionID uint, patient Caller) (*model.SOAPReport, error) {
	if patient.Role != model.RolePatient || patient.AccountID == 0 {
		return nil, fmt.Errorf("%w: patient role required", ErrForbidden)
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, model.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: clinical session %d", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	if session.PatientID != patient.AccountID {
		return nil, fmt.Errorf("%w: clinical session %d", ErrNotFound, sessionID)
	}

	existing, err := s.store.FindMany(ctx, model.ReportFilter{PatientID: patient.AccountID}, "", 0)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.SessionID == sessionID {
			return nil, fmt.Errorf("%w: clinical session %d already has report %d", ErrConflict, sessionID, r.ID)
		}
	}

	sections, err := s.draft(ctx, drafting.Request{Transcript: session.Transcript})
	if err != nil {
		util.Log.WithError(err).WithField("session_id", sessionID).Warn("initial draft failed")
		return nil, fmt.Errorf("%w: clinical session %d: %v", ErrDraftingFailed, sessionID, err)
	}

	result := triage.ClassifySections(sections)
	report := &model.SOAPReport{
		SessionID:    session.ID,
		PatientID:    session.PatientID,
		Department:   result.Department,
		Priority:     result.Priority,
		TriageLabel:  result.TriageLabel,
		RedFlags:     datatypes.NewJSONType(result.RedFlags),
		ReviewStatus: model.StatusPending,
	}
	report.SetSections(sections)
	if err := s.store.Create(ctx, report); err != nil {
		if errors.Is(err, model.ErrDuplicateReport) {
			return nil, fmt.Errorf("%w: clinical session %d already has a report", ErrConflict, sessionID)
		}
		return nil, err
	}

	s.committed(ctx, util.ReviewEvent{
		EventType: util.EventReportDrafted,
		ReportID:  report.ID,
		AccountID: patient.AccountID,
		Role:      string(patient.Role),
		ToStatus:  string(model.StatusPending),
		Details:   map[string]interface{}{"triage_label": string(report.TriageLabel)},
	}, events.ReportDrafted, report)
	return report, nil
}
