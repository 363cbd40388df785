package endpoint

import (
	"errors"
	"fmt"

	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/util"
	"github.com/ariebrainware/telemed-review/workflow"
	"github.com/gin-gonic/gin"
)

// ReviewHandler serves the report and dashboard routes.
type ReviewHandler struct {
	reviews    *workflow.Service
	dashboards *workflow.Dashboards
}

// NewReviewHandler returns a ReviewHandler.
func NewReviewHandler(reviews *workflow.Service, dashboards *workflow.Dashboards) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, dashboards: dashboards}
}

type decisionRequest struct {
	Action          string  `json:"action" binding:"required"`
	DoctorNotes     *string `json:"doctor_notes"`
	Prescription    *string `json:"prescription"`
	RejectionReason string  `json:"rejection_reason"`
	Feedback        string  `json:"feedback"`
	StarRating      int     `json:"star_rating"`
}

type regenerateRequest struct {
	Feedback   string `json:"feedback"`
	StarRating int    `json:"star_rating"`
}

type decisionResponse struct {
	Report      *model.SOAPReport `json:"report"`
	Status      string            `json:"status"`
	Regenerated bool              `json:"regenerated"`
	Sections    *model.Sections   `json:"sections,omitempty"`
}

func outcomeResponse(o *workflow.Outcome) decisionResponse {
	return decisionResponse{Report: o.Report, Status: string(o.Status), Regenerated: o.Regenerated, Sections: o.Sections}
}

// DraftReport drafts the report of a clinical session.
func (h *ReviewHandler) DraftReport(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		respondError(c, "Login required", err)
		return
	}
	sessionID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, "Invalid session id", err)
		return
	}

	report, err := h.reviews.DraftReport(c.Request.Context(), sessionID, caller)
	if err != nil {
		respondError(c, "Failed to draft report", err)
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Report drafted", Data: report})
}

// GetReport returns a single report.
func (h *ReviewHandler) GetReport(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		respondError(c, "Login required", err)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, "Invalid report id", err)
		return
	}

	report, err := h.reviews.GetReport(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, "Failed to load report", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Report retrieved", Data: report})
}

// ClaimReport moves a pending report into the caller's review.
func (h *ReviewHandler) ClaimReport(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		respondError(c, "Login required", err)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, "Invalid report id", err)
		return
	}

	report, err := h.reviews.Claim(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, "Failed to claim report", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Report claimed", Data: report})
}

// DecideReport applies approve, reject or request_changes to a claimed report.
func (h *ReviewHandler) DecideReport(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	caller, err := callerFromContext(c)
	if err != nil {
		respondError(c, "Login required", err)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, "Invalid report id", err)
		return
	}

	outcome, err := h.reviews.Decide(c.Request.Context(), id, caller, workflow.Decision{
		Action:          workflow.Action(req.Action),
		DoctorNotes:     req.DoctorNotes,
		Prescription:    req.Prescription,
		RejectionReason: req.RejectionReason,
		Feedback:        req.Feedback,
		StarRating:      req.StarRating,
	})
	if err != nil {
		respondError(c, failureMessage("Failed to record decision", outcome, err), err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Decision recorded", Data: outcomeResponse(outcome)})
}

// RequestRegeneration asks the agent to redraft a rejected report.
func (h *ReviewHandler) RequestRegeneration(c *gin.Context) {
	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	caller, err := callerFromContext(c)
	if err != nil {
		respondError(c, "Login required", err)
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, "Invalid report id", err)
		return
	}

	outcome, err := h.reviews.RequestRegeneration(c.Request.Context(), id, caller, req.Feedback, req.StarRating)
	if err != nil {
		respondError(c, failureMessage("Failed to regenerate report", outcome, err), err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Report regenerated", Data: outcomeResponse(outcome)})
}

// failureMessage tells the client which state a report kept after a failed redraft.
func failureMessage(msg string, outcome *workflow.Outcome, err error) string {
	if outcome == nil || !errors.Is(err, workflow.ErrRegenerationFailed) {
		return msg
	}
	return fmt.Sprintf("%s; report remains %s", msg, outcome.Status)
}
