package workflow

import (
	"context"
	"testing"

	"github.com/ariebrainware/telemed-review/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedAccount(t *testing.T, db *gorm.DB) model.Account {
	t.Helper()
	account := model.Account{Email: "jane@example.com", FullName: "Jane Doe"}
	require.NoError(t, db.Create(&account).Error)
	return account
}

func TestRoleGuard_AssumeRoleBeforeCompletion(t *testing.T) {
	db := setupTestDB(t)
	guard := NewRoleGuard(db)
	account := seedAccount(t, db)
	ctx := context.Background()

	got, err := guard.AssumeRole(ctx, account.ID, model.RolePatient)
	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, got.Role)

	// Switching is allowed while neither profile is complete.
	got, err = guard.AssumeRole(ctx, account.ID, model.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, got.Role)
}

func TestRoleGuard_CompletedPatientCannotBecomeDoctor(t *testing.T) {
	db := setupTestDB(t)
	guard := NewRoleGuard(db)
	account := seedAccount(t, db)
	ctx := context.Background()

	got, err := guard.CompleteProfile(ctx, account.ID, model.RolePatient)
	require.NoError(t, err)
	assert.True(t, got.HasCompletedPatientProfile)

	_, err = guard.AssumeRole(ctx, account.ID, model.RoleDoctor)
	assert.ErrorIs(t, err, ErrRoleConflict)

	_, err = guard.CompleteProfile(ctx, account.ID, model.RoleDoctor)
	assert.ErrorIs(t, err, ErrRoleConflict)

	stored, err := model.GetAccount(ctx, db, account.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, stored.Role)
	assert.False(t, stored.HasCompletedDoctorProfile)
}

func TestRoleGuard_CompletedDoctorCannotBecomePatient(t *testing.T) {
	db := setupTestDB(t)
	guard := NewRoleGuard(db)
	account := seedAccount(t, db)
	ctx := context.Background()

	got, err := guard.CompleteProfile(ctx, account.ID, model.RoleDoctor)
	require.NoError(t, err)
	assert.True(t, got.HasCompletedDoctorProfile)

	_, err = guard.AssumeRole(ctx, account.ID, model.RolePatient)
	assert.ErrorIs(t, err, ErrRoleConflict)

	_, err = guard.CompleteProfile(ctx, account.ID, model.RolePatient)
	assert.ErrorIs(t, err, ErrRoleConflict)

	stored, err := model.GetAccount(ctx, db, account.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, stored.Role)
	assert.False(t, stored.HasCompletedPatientProfile)
}

func TestRoleGuard_SameRoleIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	guard := NewRoleGuard(db)
	account := seedAccount(t, db)
	ctx := context.Background()

	_, err := guard.CompleteProfile(ctx, account.ID, model.RoleDoctor)
	require.NoError(t, err)
	got, err := guard.CompleteProfile(ctx, account.ID, model.RoleDoctor)
	require.NoError(t, err)
	assert.True(t, got.HasCompletedDoctorProfile)
	assert.False(t, got.HasCompletedPatientProfile)

	got, err = guard.AssumeRole(ctx, account.ID, model.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, got.Role)
}

func TestRoleGuard_Errors(t *testing.T) {
	db := setupTestDB(t)
	guard := NewRoleGuard(db)
	ctx := context.Background()

	_, err := guard.AssumeRole(ctx, 404, model.RolePatient)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = guard.AssumeRole(ctx, 1, model.Role("admin"))
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = guard.AssumeRole(ctx, 0, model.RolePatient)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
