package model

import (
	"time"

	"gorm.io/datatypes"
)

// ClinicalSession is the captured intake interview a report is drafted from.
// It is never mutated once a report exists.
type ClinicalSession struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	PatientID  uint           `json:"patient_id" gorm:"column:patient_id;not null;index"`
	Transcript string         `json:"transcript" gorm:"column:transcript;type:text"`
	Summary    datatypes.JSON `json:"summary" gorm:"column:summary"`
	CreatedAt  time.Time      `json:"created_at"`
}
