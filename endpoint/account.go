package endpoint

import (
	"errors"

	"github.com/ariebrainware/telemed-review/middleware"
	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/util"
	"github.com/ariebrainware/telemed-review/workflow"
	"github.com/gin-gonic/gin"
)

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

func guardFromContext(c *gin.Context) (*workflow.RoleGuard, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database unavailable",
			Err: errors.New("database not configured in context"),
		})
		return nil, false
	}
	return workflow.NewRoleGuard(db), true
}

func applyRole(c *gin.Context, msg string, apply func(g *workflow.RoleGuard, caller workflow.Caller, role model.Role) (model.Account, error)) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	caller, err := callerFromContext(c)
	if err != nil {
		respondError(c, "Login required", err)
		return
	}
	guard, ok := guardFromContext(c)
	if !ok {
		return
	}

	account, err := apply(guard, caller, model.Role(req.Role))
	if err != nil {
		respondError(c, "Could not update account role", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: msg, Data: account})
}

// AssumeRole records the caller's declared role.
func AssumeRole(c *gin.Context) {
	applyRole(c, "Role updated", func(g *workflow.RoleGuard, caller workflow.Caller, role model.Role) (model.Account, error) {
		return g.AssumeRole(c.Request.Context(), caller.AccountID, role)
	})
}

// CompleteProfile marks the caller's profile complete for the given role.
func CompleteProfile(c *gin.Context) {
	applyRole(c, "Profile completed", func(g *workflow.RoleGuard, caller workflow.Caller, role model.Role) (model.Account, error) {
		return g.CompleteProfile(c.Request.Context(), caller.AccountID, role)
	})
}
