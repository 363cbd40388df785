package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ariebrainware/telemed-review/drafting"
	"github.com/ariebrainware/telemed-review/events"
	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/triage"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	patientID = uint(7)
	doctorA   = uint(10)
	doctorB   = uint(11)
)

var (
	asPatient = Caller{AccountID: patientID, Role: model.RolePatient}
	asDoctorA = Caller{AccountID: doctorA, Role: model.RoleDoctor}
	asDoctorB = Caller{AccountID: doctorB, Role: model.RoleDoctor}
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:workflow_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Account{}, &model.ClinicalSession{}, &model.SOAPReport{}))
	return db
}

func sectionsWith(complaint string, severity model.Severity) model.Sections {
	return model.Sections{
		Subjective: &model.Subjective{
			ChiefComplaint:          complaint,
			HistoryOfPresentIllness: "Started two days ago",
			Symptoms:                []string{"pain"},
		},
		Objective:  &model.Objective{Observations: "Alert and oriented"},
		Assessment: &model.Assessment{PrimaryDiagnosis: "Undifferentiated pain", Severity: severity, Department: "General Medicine"},
		Plan:       &model.Plan{Recommendations: []string{"Rest"}, FollowUp: "One week"},
	}
}

// regeneratedSections differs from the seeded draft in every section.
func regeneratedSections() model.Sections {
	return model.Sections{
		Subjective: &model.Subjective{
			ChiefComplaint:          "Crushing chest pain",
			HistoryOfPresentIllness: "Sudden onset one hour ago, radiating to the left arm",
			Symptoms:                []string{"chest pain", "sweating"},
			RedFlags:                []string{"radiating chest pain"},
		},
		Objective:  &model.Objective{Observations: "Diaphoretic, anxious"},
		Assessment: &model.Assessment{PrimaryDiagnosis: "Suspected acute coronary syndrome", Severity: model.SeverityCritical, Department: "Cardiology"},
		Plan:       &model.Plan{Recommendations: []string{"Call emergency services"}, FollowUp: "Immediately"},
	}
}

type fakeDrafter struct {
	mu       sync.Mutex
	calls    []drafting.Request
	sections model.Sections
	err      error
	block    bool
}

func (f *fakeDrafter) Draft(ctx context.Context, req drafting.Request) (model.Sections, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	block, sections, err := f.block, f.sections, f.err
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return model.Sections{}, ctx.Err()
	}
	return sections, err
}

func (f *fakeDrafter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ReviewEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.ReviewEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	store     *model.ReportStore
	drafter   *fakeDrafter
	publisher *recordingPublisher
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	store := model.NewReportStore(db)
	drafter := &fakeDrafter{sections: regeneratedSections()}
	publisher := &recordingPublisher{}
	return &fixture{
		db:        db,
		store:     store,
		drafter:   drafter,
		publisher: publisher,
		svc:       NewService(store, drafter, publisher, Options{DraftTimeout: time.Second}),
	}
}

// seedReport inserts a clinical session and a pending report owned by patient.
func (f *fixture) seedReport(t *testing.T, patient uint) *model.SOAPReport {
	t.Helper()
	session := model.ClinicalSession{PatientID: patient, Transcript: "patient: my stomach hurts"}
	require.NoError(t, f.db.Create(&session).Error)

	sections := sectionsWith("Stomach ache", model.SeverityLow)
	result := triage.ClassifySections(sections)
	report := &model.SOAPReport{
		SessionID:    session.ID,
		PatientID:    patient,
		Department:   result.Department,
		Priority:     result.Priority,
		TriageLabel:  result.TriageLabel,
		RedFlags:     datatypes.NewJSONType(result.RedFlags),
		ReviewStatus: model.StatusPending,
	}
	report.SetSections(sections)
	require.NoError(t, f.store.Create(context.Background(), report))
	return report
}

// seedClaimed inserts a report already claimed by doctor.
func (f *fixture) seedClaimed(t *testing.T, doctor Caller) *model.SOAPReport {
	t.Helper()
	report := f.seedReport(t, patientID)
	claimed, err := f.svc.Claim(context.Background(), report.ID, doctor)
	require.NoError(t, err)
	return claimed
}

func (f *fixture) reload(t *testing.T, id uint) *model.SOAPReport {
	t.Helper()
	report, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return report
}

func strPtr(s string) *string { return &s }
