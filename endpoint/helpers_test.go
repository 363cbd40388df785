package endpoint_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariebrainware/telemed-review/config"
	"github.com/ariebrainware/telemed-review/drafting"
	"github.com/ariebrainware/telemed-review/endpoint"
	"github.com/ariebrainware/telemed-review/middleware"
	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var testModels = []interface{}{
	&model.Account{}, &model.Session{}, &model.ClinicalSession{}, &model.SOAPReport{}, &model.ReviewAuditLog{},
}

type stubDrafter struct {
	mu  sync.Mutex
	err error
}

func (d *stubDrafter) Draft(_ context.Context, req drafting.Request) (model.Sections, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return model.Sections{}, d.err
	}
	complaint := "Headache"
	if req.Feedback != "" {
		complaint = "Headache with photophobia"
	}
	return model.Sections{
		Subjective: &model.Subjective{ChiefComplaint: complaint, HistoryOfPresentIllness: "Since yesterday", Symptoms: []string{"headache"}},
		Objective:  &model.Objective{Observations: "Alert"},
		Assessment: &model.Assessment{PrimaryDiagnosis: "Tension headache", Severity: model.SeverityModerate, Department: "neurology"},
		Plan:       &model.Plan{Recommendations: []string{"Hydration"}, FollowUp: "3 days"},
	}, nil
}

func (d *stubDrafter) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

type testServer struct {
	router  *gin.Engine
	db      *gorm.DB
	drafter *stubDrafter
}

// SetupTestServer initializes DB, migrates models and returns the fully routed engine.
func SetupTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := config.ConnectMySQL()
	if err != nil {
		t.Fatalf("failed to connect test DB: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(testModels...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Migrator().DropTable(testModels...); err != nil {
			t.Errorf("failed to drop tables during cleanup: %v", err)
		}
		_ = sqlDB.Close()
	})

	drafter := &stubDrafter{}
	store := model.NewReportStore(db)
	reviews := workflow.NewService(store, drafter, nil, workflow.Options{DraftTimeout: time.Second})
	handler := endpoint.NewReviewHandler(reviews, workflow.NewDashboards(store, 0))

	r := gin.New()
	endpoint.RegisterRoutes(r, handler, endpoint.RouteOptions{
		DB:                db,
		DecisionRateLimit: middleware.RateLimitConfig{Limit: 100, Window: time.Minute},
	})
	return &testServer{router: r, db: db, drafter: drafter}
}

// createAccount seeds an account with a live session and returns its id and token.
func (s *testServer) createAccount(t *testing.T, role model.Role) (uint, string) {
	t.Helper()
	account := model.Account{
		Email:                      fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano()),
		FullName:                   "Test " + string(role),
		Role:                       role,
		HasCompletedPatientProfile: role == model.RolePatient,
		HasCompletedDoctorProfile:  role == model.RoleDoctor,
	}
	if err := s.db.Create(&account).Error; err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	token := fmt.Sprintf("token-%d-%d", account.ID, time.Now().UnixNano())
	session := model.Session{SessionToken: token, AccountID: account.ID, ExpiresAt: time.Now().Add(time.Hour)}
	if err := s.db.Create(&session).Error; err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return account.ID, token
}

func (s *testServer) createClinicalSession(t *testing.T, patientID uint) uint {
	t.Helper()
	session := model.ClinicalSession{PatientID: patientID, Transcript: "patient: my head hurts"}
	if err := s.db.Create(&session).Error; err != nil {
		t.Fatalf("failed to create clinical session: %v", err)
	}
	return session.ID
}

type apiResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *strings.Reader
	if body == nil {
		reader = strings.NewReader("")
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.SessionTokenHeader, token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
		}
	}
	return w, resp
}

func decodeData(t *testing.T, resp apiResponse, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func reportPath(id uint, suffix string) string {
	return fmt.Sprintf("/reports/%d%s", id, suffix)
}

