package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/util"
	"gorm.io/gorm"
)

// RoleGuard enforces that an account never holds both a completed patient profile and
// a completed doctor profile. Role selection and profile completion share one check.
type RoleGuard struct {
	db *gorm.DB
}

// NewRoleGuard returns a RoleGuard backed by db.
func NewRoleGuard(db *gorm.DB) *RoleGuard {
	return &RoleGuard{db: db}
}

// AssumeRole records the declared role of an account.
func (g *RoleGuard) AssumeRole(ctx context.Context, accountID uint, role model.Role) (model.Account, error) {
	return g.apply(ctx, accountID, role, false)
}

// CompleteProfile records the role and marks its profile complete.
func (g *RoleGuard) CompleteProfile(ctx context.Context, accountID uint, role model.Role) (model.Account, error) {
	return g.apply(ctx, accountID, role, true)
}

func (g *RoleGuard) apply(ctx context.Context, accountID uint, role model.Role, markComplete bool) (model.Account, error) {
	if !role.Valid() {
		return model.Account{}, fmt.Errorf("%w: role must be patient or doctor", ErrValidationFailed)
	}
	if accountID == 0 {
		return model.Account{}, ErrUnauthorized
	}

	applied, err := model.SetRoleUnlessOtherComplete(ctx, g.db, accountID, role, markComplete)
	if err != nil {
		return model.Account{}, err
	}

	account, err := model.GetAccount(ctx, g.db, accountID)
	if errors.Is(err, model.ErrAccountNotFound) {
		return model.Account{}, fmt.Errorf("%w: account %d", ErrNotFound, accountID)
	}
	if err != nil {
		return model.Account{}, err
	}
	// MySQL reports zero affected rows when nothing changed, so a miss is only a
	// conflict if the opposite profile really is complete.
	if !applied && account.HasCompleted(role.Other()) {
		util.LogReviewEvent(util.ReviewEvent{
			EventType: util.EventRoleConflict,
			AccountID: accountID,
			Role:      string(role),
			Message:   fmt.Sprintf("account already completed the %s profile", role.Other()),
		})
		return model.Account{}, fmt.Errorf("%w: account %d already completed the %s profile", ErrRoleConflict, accountID, role.Other())
	}

	if err := util.InvalidateAccountSessions(ctx, accountID); err != nil {
		util.Log.WithError(err).WithField("account_id", accountID).Warn("cached sessions not invalidated")
	}

	eventType := util.EventRoleAssumed
	if markComplete {
		eventType = util.EventProfileCompleted
	}
	util.LogReviewEvent(util.ReviewEvent{
		EventType: eventType,
		AccountID: accountID,
		Role:      string(role),
	})
	return account, nil
}
