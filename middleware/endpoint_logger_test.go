package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/util"
	"github.com/gin-gonic/gin"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	out := util.Log.Out
	util.Log.SetOutput(&buf)
	t.Cleanup(func() { util.Log.SetOutput(out) })
	return &buf
}

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]interface{}
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	return entry
}

func TestEndpointCallLogger_BasicRequest(t *testing.T) {
	buf := captureLogs(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(EndpointCallLogger())
	r.GET("/reports/:id", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "success"}) })

	req := httptest.NewRequest(http.MethodGet, "/reports/3?foo=bar", nil)
	req.RemoteAddr = "192.168.1.100:1234"
	req.Header.Set("User-Agent", "TestAgent/1.0")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entry := lastLogLine(t, buf)
	if entry["path"] != "/reports/:id" {
		t.Errorf("expected route path, got %v", entry["path"])
	}
	if entry["raw_path"] != "/reports/3" {
		t.Errorf("expected raw path, got %v", entry["raw_path"])
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("expected status 200, got %v", entry["status"])
	}
	if entry["client_ip"] != "192.168.1.100" {
		t.Errorf("expected client ip, got %v", entry["client_ip"])
	}
	if entry["level"] != "info" {
		t.Errorf("expected info level, got %v", entry["level"])
	}
}

func TestEndpointCallLogger_WithCallerAndErrorStatus(t *testing.T) {
	buf := captureLogs(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(AccountIDKey, uint(9))
		c.Set(RoleKey, model.RoleDoctor)
		c.Next()
	})
	r.Use(EndpointCallLogger())
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entry := lastLogLine(t, buf)
	if entry["account_id"] != float64(9) {
		t.Errorf("expected account_id 9, got %v", entry["account_id"])
	}
	if entry["role"] != "doctor" {
		t.Errorf("expected role doctor, got %v", entry["role"])
	}
	if entry["level"] != "error" {
		t.Errorf("expected error level, got %v", entry["level"])
	}
}
