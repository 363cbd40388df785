package endpoint

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ariebrainware/telemed-review/middleware"
	"github.com/ariebrainware/telemed-review/util"
	"github.com/ariebrainware/telemed-review/workflow"
	"github.com/gin-gonic/gin"
)

// callerFromContext builds the workflow caller from what ValidateSession stored.
func callerFromContext(c *gin.Context) (workflow.Caller, error) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		return workflow.Caller{}, workflow.ErrUnauthorized
	}
	role, _ := middleware.GetRole(c)
	return workflow.Caller{AccountID: accountID, Role: role}, nil
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", workflow.ErrValidationFailed, name)
	}
	return uint(id), nil
}

// Error codes distinguish failures that share an HTTP status.
const (
	codeValidationFailed   = "validation_failed"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeNotFound           = "not_found"
	codeRoleConflict       = "role_conflict"
	codeInvalidTransition  = "invalid_transition"
	codeConflict           = "conflict"
	codeRegenerationFailed = "regeneration_failed"
	codeDraftingFailed     = "drafting_failed"
	codeInternal           = "internal"
)

// respondError maps a workflow error onto its HTTP status and error code.
func respondError(c *gin.Context, msg string, err error) {
	params := util.APIErrorParams{Msg: msg, Err: err}
	switch {
	case errors.Is(err, workflow.ErrValidationFailed):
		params.Code = codeValidationFailed
		util.CallUserError(c, params)
	case errors.Is(err, workflow.ErrUnauthorized):
		params.Code = codeUnauthorized
		util.CallUserNotAuthorized(c, params)
	case errors.Is(err, workflow.ErrForbidden):
		params.Code = codeForbidden
		util.CallForbidden(c, params)
	case errors.Is(err, workflow.ErrNotFound):
		params.Code = codeNotFound
		util.CallErrorNotFound(c, params)
	case errors.Is(err, workflow.ErrRoleConflict):
		params.Code = codeRoleConflict
		util.CallConflict(c, params)
	case errors.Is(err, workflow.ErrInvalidTransition):
		params.Code = codeInvalidTransition
		util.CallConflict(c, params)
	case errors.Is(err, workflow.ErrConflict):
		params.Code = codeConflict
		util.CallConflict(c, params)
	case errors.Is(err, workflow.ErrRegenerationFailed):
		params.Code = codeRegenerationFailed
		util.CallBadGateway(c, params)
	case errors.Is(err, workflow.ErrDraftingFailed):
		params.Code = codeDraftingFailed
		util.CallBadGateway(c, params)
	default:
		util.Log.WithError(err).WithField("path", c.FullPath()).Error(msg)
		util.CallServerError(c, util.APIErrorParams{Msg: msg, Err: errors.New("internal server error"), Code: codeInternal})
	}
}

func bindError(c *gin.Context, err error) {
	util.CallUserError(c, util.APIErrorParams{
		Msg:  "Invalid request body",
		Err:  err,
		Code: codeValidationFailed,
	})
}
