package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/ariebrainware/telemed-review/model"
	"github.com/patrickmn/go-cache"
)

const dashboardLimit = 200

// ReportSummary is the dashboard projection of one report.
type ReportSummary struct {
	ID                uint               `json:"id"`
	SessionID         uint               `json:"session_id"`
	PatientID         uint               `json:"patient_id"`
	ChiefComplaint    string             `json:"chief_complaint"`
	Department        string             `json:"department"`
	Priority          string             `json:"priority"`
	TriageLabel       model.TriageLabel  `json:"triage_label"`
	ReviewStatus      model.ReviewStatus `json:"review_status"`
	AssignedDoctorID  *uint              `json:"assigned_doctor_id"`
	RegenerationCount int                `json:"regeneration_count"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	ReviewedAt        *time.Time         `json:"reviewed_at"`
}

// Dashboard groups report summaries by review status.
type Dashboard struct {
	Counts  map[model.ReviewStatus]int             `json:"counts"`
	Reports map[model.ReviewStatus][]ReportSummary `json:"reports"`
}

// Dashboards serves read-only projections of report state. Results are cached for a
// short TTL; they may lag behind the latest commit by at most that long.
type Dashboards struct {
	store ReportGateway
	cache *cache.Cache
}

// NewDashboards returns a Dashboards with the given cache TTL. A TTL <= 0 disables caching.
func NewDashboards(store ReportGateway, ttl time.Duration) *Dashboards {
	d := &Dashboards{store: store}
	if ttl > 0 {
		d.cache = cache.New(ttl, 2*ttl)
	}
	return d
}

// ForDoctor returns the shared review queue (pending and in_review reports of every
// patient) plus the reports this doctor approved or rejected. The queue is ordered by
// triage urgency, oldest first within a label.
func (d *Dashboards) ForDoctor(ctx context.Context, doctor Caller) (*Dashboard, error) {
	if err := requireDoctor(doctor); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("doctor:%d", doctor.AccountID)
	if cached, ok := d.cached(key); ok {
		return cached, nil
	}

	queueFilter := model.ReportFilter{
		Statuses: []model.ReviewStatus{model.StatusPending, model.StatusInReview},
	}
	queue, err := d.store.FindMany(ctx, queueFilter, model.QueueOrder, dashboardLimit)
	if err != nil {
		return nil, err
	}
	reviewedFilter := model.ReportFilter{
		Statuses:         []model.ReviewStatus{model.StatusApproved, model.StatusRejected},
		AssignedDoctorID: doctor.AccountID,
	}
	reviewed, err := d.store.FindMany(ctx, reviewedFilter, "reviewed_at DESC", dashboardLimit)
	if err != nil {
		return nil, err
	}

	dash := group(append(queue, reviewed...))
	for _, filter := range []model.ReportFilter{queueFilter, reviewedFilter} {
		if err := d.count(ctx, dash, filter); err != nil {
			return nil, err
		}
	}
	d.remember(key, dash)
	return dash, nil
}

// ForPatient returns the caller's own reports, newest first.
func (d *Dashboards) ForPatient(ctx context.Context, patient Caller) (*Dashboard, error) {
	if patient.Role != model.RolePatient || patient.AccountID == 0 {
		return nil, fmt.Errorf("%w: patient role required", ErrForbidden)
	}
	key := fmt.Sprintf("patient:%d", patient.AccountID)
	if cached, ok := d.cached(key); ok {
		return cached, nil
	}

	filter := model.ReportFilter{PatientID: patient.AccountID}
	reports, err := d.store.FindMany(ctx, filter, "", dashboardLimit)
	if err != nil {
		return nil, err
	}
	dash := group(reports)
	if err := d.count(ctx, dash, filter); err != nil {
		return nil, err
	}
	d.remember(key, dash)
	return dash, nil
}

// count overwrites the listed counts with totals, so a truncated listing still
// reports the full size of each status.
func (d *Dashboards) count(ctx context.Context, dash *Dashboard, filter model.ReportFilter) error {
	totals, err := d.store.CountByStatus(ctx, filter)
	if err != nil {
		return err
	}
	for status, n := range totals {
		dash.Counts[status] = n
	}
	return nil
}

func (d *Dashboards) cached(key string) (*Dashboard, bool) {
	if d.cache == nil {
		return nil, false
	}
	v, ok := d.cache.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*Dashboard), true
}

func (d *Dashboards) remember(key string, dash *Dashboard) {
	if d.cache != nil {
		d.cache.SetDefault(key, dash)
	}
}

func group(reports []model.SOAPReport) *Dashboard {
	dash := &Dashboard{
		Counts:  make(map[model.ReviewStatus]int, len(model.ReviewStatuses)),
		Reports: make(map[model.ReviewStatus][]ReportSummary, len(model.ReviewStatuses)),
	}
	for _, st := range model.ReviewStatuses {
		dash.Counts[st] = 0
		dash.Reports[st] = []ReportSummary{}
	}
	for i := range reports {
		r := &reports[i]
		dash.Counts[r.ReviewStatus]++
		dash.Reports[r.ReviewStatus] = append(dash.Reports[r.ReviewStatus], summarize(r))
	}
	return dash
}

func summarize(r *model.SOAPReport) ReportSummary {
	return ReportSummary{
		ID:                r.ID,
		SessionID:         r.SessionID,
		PatientID:         r.PatientID,
		ChiefComplaint:    r.Subjective.Data().ChiefComplaint,
		Department:        r.Department,
		Priority:          r.Priority,
		TriageLabel:       r.TriageLabel,
		ReviewStatus:      r.ReviewStatus,
		AssignedDoctorID:  r.AssignedDoctorID,
		RegenerationCount: r.RegenerationCount,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		ReviewedAt:        r.ReviewedAt,
	}
}
