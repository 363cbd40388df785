package endpoint

import (
	"github.com/ariebrainware/telemed-review/util"
	"github.com/gin-gonic/gin"
)

// DoctorDashboard returns the review queue plus the caller's reviewed reports.
func (h *ReviewHandler) DoctorDashboard(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		respondError(c, "Login required", err)
		return
	}
	dash, err := h.dashboards.ForDoctor(c.Request.Context(), caller)
	if err != nil {
		respondError(c, "Failed to load dashboard", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Dashboard retrieved", Data: dash})
}

// PatientDashboard returns the caller's own reports.
func (h *ReviewHandler) PatientDashboard(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		respondError(c, "Login required", err)
		return
	}
	dash, err := h.dashboards.ForPatient(c.Request.Context(), caller)
	if err != nil {
		respondError(c, "Failed to load dashboard", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Dashboard retrieved", Data: dash})
}
