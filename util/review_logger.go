package util

import (
	"encoding/json"
	"strings"

	"github.com/ariebrainware/telemed-review/model"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReviewEventType represents the kinds of review workflow events that are audited
type ReviewEventType string

const (
	EventReportDrafted         ReviewEventType = "REPORT_DRAFTED"
	EventReportClaimed         ReviewEventType = "REPORT_CLAIMED"
	EventReportApproved        ReviewEventType = "REPORT_APPROVED"
	EventReportRejected        ReviewEventType = "REPORT_REJECTED"
	EventRegenerationSucceeded ReviewEventType = "REGENERATION_SUCCEEDED"
	EventRegenerationFailed    ReviewEventType = "REGENERATION_FAILED"
	EventClaimConflict         ReviewEventType = "CLAIM_CONFLICT"
	EventRoleAssumed           ReviewEventType = "ROLE_ASSUMED"
	EventProfileCompleted      ReviewEventType = "PROFILE_COMPLETED"
	EventRoleConflict          ReviewEventType = "ROLE_CONFLICT"
	EventUnauthorizedAccess    ReviewEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded     ReviewEventType = "RATE_LIMIT_EXCEEDED"
)

// ReviewEvent represents an audited workflow event
type ReviewEvent struct {
	EventType  ReviewEventType
	ReportID   uint
	AccountID  uint
	Role       string
	FromStatus string
	ToStatus   string
	Message    string
	Details    map[string]interface{}
}

var auditDB *gorm.DB

// SetAuditLoggerDB sets a gorm DB instance used to persist review events.
// Call this during application startup (e.g. in main) after DB initialization.
func SetAuditLoggerDB(db *gorm.DB) {
	auditDB = db
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// LogReviewEvent logs a review event and persists it when an audit DB is configured.
// Persistence is best-effort and never fails the caller.
func LogReviewEvent(event ReviewEvent) {
	entry := Log.WithFields(logrus.Fields{
		"event":      string(event.EventType),
		"report_id":  event.ReportID,
		"account_id": event.AccountID,
		"role":       sanitizeLogValue(event.Role),
	})
	if event.FromStatus != "" || event.ToStatus != "" {
		entry = entry.WithField("transition", event.FromStatus+"->"+event.ToStatus)
	}
	if len(event.Details) > 0 {
		// Details may carry free text from doctors; only the count is logged.
		entry = entry.WithField("details_count", len(event.Details))
	}
	entry.Info(sanitizeLogValue(event.Message))

	if auditDB == nil {
		return
	}

	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}

	row := model.ReviewAuditLog{
		EventType:  string(event.EventType),
		ReportID:   event.ReportID,
		AccountID:  event.AccountID,
		Role:       sanitizeLogValue(event.Role),
		FromStatus: event.FromStatus,
		ToStatus:   event.ToStatus,
		Message:    sanitizeLogValue(event.Message),
		Details:    details,
	}
	if err := auditDB.Create(&row).Error; err != nil {
		Log.WithError(err).Warn("failed to persist review event")
	}
}
