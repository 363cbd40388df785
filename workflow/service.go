package workflow

import (
	"context"
	"time"

	"github.com/ariebrainware/telemed-review/drafting"
	"github.com/ariebrainware/telemed-review/events"
	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/util"
)

// DefaultDraftTimeout bounds a single drafting model call.
const DefaultDraftTimeout = 45 * time.Second

// ReportGateway is the persistence boundary for reports and clinical sessions.
type ReportGateway interface {
	Get(ctx context.Context, id uint) (*model.SOAPReport, error)
	GetSession(ctx context.Context, id uint) (*model.ClinicalSession, error)
	Create(ctx context.Context, report *model.SOAPReport) error
	ConditionalUpdate(ctx context.Context, id uint, expect model.Expectation, fields map[string]interface{}) error
	FindMany(ctx context.Context, filter model.ReportFilter, order string, limit int) ([]model.SOAPReport, error)
	CountByStatus(ctx context.Context, filter model.ReportFilter) (map[model.ReviewStatus]int, error)
}

// Drafter produces a full set of SOAP sections from interview context.
type Drafter interface {
	Draft(ctx context.Context, req drafting.Request) (model.Sections, error)
}

// Caller is the authenticated principal of a request, supplied by the session layer.
type Caller struct {
	AccountID uint
	Role      model.Role
}

// Options tunes a Service.
type Options struct {
	DraftTimeout time.Duration
}

// Service runs the review state machine and the regeneration agent.
type Service struct {
	store        ReportGateway
	drafter      Drafter
	publisher    events.Publisher
	draftTimeout time.Duration
	now          func() time.Time
}

// NewService wires a Service. A nil publisher disables event publishing.
func NewService(store ReportGateway, drafter Drafter, publisher events.Publisher, opts Options) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if opts.DraftTimeout <= 0 {
		opts.DraftTimeout = DefaultDraftTimeout
	}
	return &Service{
		store:        store,
		drafter:      drafter,
		publisher:    publisher,
		draftTimeout: opts.DraftTimeout,
		now:          time.Now,
	}
}

// committed audits a transition that is already persisted and publishes it.
// Publishing failures are logged only; the commit stands.
func (s *Service) committed(ctx context.Context, audit util.ReviewEvent, evtType events.Type, report *model.SOAPReport) {
	util.LogReviewEvent(audit)
	if report == nil {
		return
	}
	err := s.publisher.Publish(ctx, events.ReviewEvent{
		Type:        evtType,
		ReportID:    report.ID,
		PatientID:   report.PatientID,
		DoctorID:    report.AssignedDoctorID,
		Status:      report.ReviewStatus,
		TriageLabel: report.TriageLabel,
		Version:     report.Version,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		util.Log.WithError(err).WithField("report_id", report.ID).Warn("review event not published")
	}
}
