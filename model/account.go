package model

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrAccountNotFound is returned when no account matches the identifier.
var ErrAccountNotFound = errors.New("account not found")

// Role is the declared role of an account.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Valid reports whether r is patient or doctor.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// Other returns the opposite role.
func (r Role) Other() Role {
	if r == RoleDoctor {
		return RolePatient
	}
	return RoleDoctor
}

// completionColumn maps a role onto its profile completion flag.
func completionColumn(r Role) string {
	if r == RoleDoctor {
		return "has_completed_doctor_profile"
	}
	return "has_completed_patient_profile"
}

// Account is a portal user. At most one completion flag may be true.
// @Description Portal account
type Account struct {
	gorm.Model
	Email                      string `json:"email" gorm:"column:email;type:varchar(191);uniqueIndex" example:"jane@example.com"`
	FullName                   string `json:"full_name" gorm:"column:full_name" example:"Jane Doe"`
	Role                       Role   `json:"role" gorm:"column:role;type:varchar(16)" example:"patient"`
	HasCompletedPatientProfile bool   `json:"has_completed_patient_profile" gorm:"column:has_completed_patient_profile;not null;default:false"`
	HasCompletedDoctorProfile  bool   `json:"has_completed_doctor_profile" gorm:"column:has_completed_doctor_profile;not null;default:false"`
}

// HasCompleted reports whether the profile for role r is complete.
func (a Account) HasCompleted(r Role) bool {
	if r == RoleDoctor {
		return a.HasCompletedDoctorProfile
	}
	return a.HasCompletedPatientProfile
}

// GetAccount loads an account by id.
func GetAccount(ctx context.Context, db *gorm.DB, id uint) (Account, error) {
	var account Account
	err := db.WithContext(ctx).First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("load account %d: %w", id, err)
	}
	return account, nil
}

// SetRoleUnlessOtherComplete sets the declared role, and optionally marks the role's
// profile complete, in one statement conditioned on the opposite profile not being
// complete. It reports whether a row matched.
func SetRoleUnlessOtherComplete(ctx context.Context, db *gorm.DB, id uint, role Role, markComplete bool) (bool, error) {
	updates := map[string]interface{}{"role": role}
	if markComplete {
		updates[completionColumn(role)] = true
	}
	res := db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", id).
		Where(completionColumn(role.Other())+" = ?", false).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update role of account %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
