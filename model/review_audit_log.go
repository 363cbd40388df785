package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReviewAuditLog represents a persisted review workflow event
type ReviewAuditLog struct {
	gorm.Model
	EventType  string         `json:"event_type" gorm:"column:event_type;type:varchar(64);index"`
	ReportID   uint           `json:"report_id" gorm:"column:report_id;index"`
	AccountID  uint           `json:"account_id" gorm:"column:account_id;index"`
	Role       string         `json:"role" gorm:"column:role;type:varchar(16)"`
	FromStatus string         `json:"from_status" gorm:"column:from_status;type:varchar(16)"`
	ToStatus   string         `json:"to_status" gorm:"column:to_status;type:varchar(16)"`
	Message    string         `json:"message" gorm:"column:message;type:text"`
	Details    datatypes.JSON `json:"details" gorm:"column:details;type:json"`
}
