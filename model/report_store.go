package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrReportNotFound is returned when no report matches the identifier.
	ErrReportNotFound = errors.New("report not found")
	// ErrStaleReport is returned when a conditional update's precondition no longer holds.
	ErrStaleReport = errors.New("report changed since it was read")
	// ErrDuplicateReport is returned when a clinical session already has a report.
	ErrDuplicateReport = errors.New("clinical session already has a report")
	// ErrSessionNotFound is returned when no clinical session matches the identifier.
	ErrSessionNotFound = errors.New("clinical session not found")
)

// Expectation is the precondition of a conditional update.
type Expectation struct {
	Status ReviewStatus
	// Version, when non-zero, must equal the stored version.
	Version uint
	// DoctorID, when non-zero, must be the assigned doctor or the report must be unassigned.
	DoctorID uint
}

// ReportFilter narrows FindMany and CountByStatus.
type ReportFilter struct {
	Statuses         []ReviewStatus
	PatientID        uint
	AssignedDoctorID uint
}

// QueueOrder sorts the review queue by triage urgency, oldest first within a label.
const QueueOrder = "CASE triage_label" +
	" WHEN 'emergency' THEN 0 WHEN 'urgent' THEN 1 WHEN 'standard' THEN 2 WHEN 'routine' THEN 3 ELSE 4" +
	" END ASC, created_at ASC, id ASC"

// ReportStore is the persistence gateway for SOAP reports and their clinical sessions.
type ReportStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReportStore returns a ReportStore backed by db.
func NewReportStore(db *gorm.DB) *ReportStore {
	return &ReportStore{db: db, now: time.Now}
}

// Get loads a report by id.
func (s *ReportStore) Get(ctx context.Context, id uint) (*SOAPReport, error) {
	var report SOAPReport
	err := s.db.WithContext(ctx).First(&report, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load report %d: %w", id, err)
	}
	return &report, nil
}

// GetSession loads a clinical session by id.
func (s *ReportStore) GetSession(ctx context.Context, id uint) (*ClinicalSession, error) {
	var session ClinicalSession
	err := s.db.WithContext(ctx).First(&session, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load clinical session %d: %w", id, err)
	}
	return &session, nil
}

// Create inserts a freshly drafted report. A second report for the same session
// fails with ErrDuplicateReport.
func (s *ReportStore) Create(ctx context.Context, report *SOAPReport) error {
	if !report.ReviewStatus.Valid() {
		return fmt.Errorf("refusing to persist review status %q", report.ReviewStatus)
	}
	var existing int64
	if err := s.db.WithContext(ctx).Model(&SOAPReport{}).Where("session_id = ?", report.SessionID).Count(&existing).Error; err != nil {
		return fmt.Errorf("check existing report for session %d: %w", report.SessionID, err)
	}
	if existing > 0 {
		return ErrDuplicateReport
	}
	if report.Version == 0 {
		report.Version = 1
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReport
		}
		return fmt.Errorf("create report for session %d: %w", report.SessionID, err)
	}
	return nil
}

// ConditionalUpdate applies fields to the report only if expect still holds, as a
// single UPDATE ... WHERE statement. Every applied update bumps the version.
// It returns ErrReportNotFound or ErrStaleReport when nothing was written.
func (s *ReportStore) ConditionalUpdate(ctx context.Context, id uint, expect Expectation, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	if st, ok := updates["review_status"].(ReviewStatus); ok {
		if !st.Valid() {
			return fmt.Errorf("refusing to persist review status %q", st)
		}
		updates["review_status"] = string(st)
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = s.now()

	query := s.db.WithContext(ctx).Model(&SOAPReport{}).
		Where("id = ? AND review_status = ?", id, string(expect.Status))
	if expect.Version != 0 {
		query = query.Where("version = ?", expect.Version)
	}
	if expect.DoctorID != 0 {
		query = query.Where("(assigned_doctor_id = ? OR assigned_doctor_id IS NULL)", expect.DoctorID)
	}

	res := query.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("conditional update of report %d: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&SOAPReport{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check report %d: %w", id, err)
	}
	if count == 0 {
		return ErrReportNotFound
	}
	return ErrStaleReport
}

// FindMany returns reports matching filter. order defaults to newest first; limit <= 0
// means no limit.
func (s *ReportStore) FindMany(ctx context.Context, filter ReportFilter, order string, limit int) ([]SOAPReport, error) {
	query := s.filtered(ctx, filter)
	if order == "" {
		order = "created_at DESC"
	}
	query = query.Order(order)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var reports []SOAPReport
	if err := query.Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	return reports, nil
}

// CountByStatus returns the number of reports matching filter per review status,
// independent of any listing limit.
func (s *ReportStore) CountByStatus(ctx context.Context, filter ReportFilter) (map[ReviewStatus]int, error) {
	var rows []struct {
		ReviewStatus ReviewStatus
		Total        int
	}
	err := s.filtered(ctx, filter).
		Select("review_status, COUNT(*) AS total").
		Group("review_status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	counts := make(map[ReviewStatus]int, len(rows))
	for _, row := range rows {
		counts[row.ReviewStatus] = row.Total
	}
	return counts, nil
}

func (s *ReportStore) filtered(ctx context.Context, filter ReportFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&SOAPReport{})
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		query = query.Where("review_status IN ?", statuses)
	}
	if filter.PatientID != 0 {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.AssignedDoctorID != 0 {
		query = query.Where("assigned_doctor_id = ?", filter.AssignedDoctorID)
	}
	return query
}
