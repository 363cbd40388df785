// Package workflow implements the SOAP report review lifecycle: claiming, deciding,
// feedback-driven regeneration, the patient/doctor role guard and dashboard projections.
package workflow

import "errors"

// Error taxonomy. Every operation returns one of these (possibly wrapped with detail);
// match with errors.Is.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrRoleConflict       = errors.New("role conflict")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrConflict           = errors.New("report was changed by another request")
	ErrValidationFailed   = errors.New("validation failed")
	ErrRegenerationFailed = errors.New("regeneration failed")
	ErrDraftingFailed     = errors.New("drafting failed")
)
