package model

import (
	"time"

	"gorm.io/gorm"
)

// Session is a login session issued by the authentication service. This service only
// reads it to resolve the caller of a request.
type Session struct {
	gorm.Model
	SessionToken string    `json:"session_token" gorm:"column:session_token;type:varchar(191);uniqueIndex"`
	AccountID    uint      `json:"account_id" gorm:"column:account_id;index"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"column:expires_at"`
	ClientIP     string    `json:"client_ip" gorm:"column:client_ip;type:varchar(45)"`
	Browser      string    `json:"browser" gorm:"column:browser;type:varchar(255)"`
}
