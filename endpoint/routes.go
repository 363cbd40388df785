package endpoint

import (
	"net/http"

	"github.com/ariebrainware/telemed-review/middleware"
	"github.com/ariebrainware/telemed-review/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RouteOptions configures RegisterRoutes.
type RouteOptions struct {
	DB *gorm.DB
	// DecisionRateLimit bounds decision and regeneration calls per account.
	DecisionRateLimit middleware.RateLimitConfig
}

// RegisterRoutes mounts every review route on r.
func RegisterRoutes(r *gin.Engine, h *ReviewHandler, opts RouteOptions) {
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DatabaseMiddleware(opts.DB))
	r.Use(middleware.EndpointCallLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/")
	auth.Use(middleware.ValidateSession())
	{
		auth.POST("/account/role", AssumeRole)
		auth.POST("/account/profile/complete", CompleteProfile)

		auth.GET("/reports/:id", h.GetReport)

		patient := auth.Group("/")
		patient.Use(middleware.RequireRole(model.RolePatient))
		{
			patient.POST("/sessions/:id/report", h.DraftReport)
			patient.GET("/dashboard/patient", h.PatientDashboard)
		}

		doctor := auth.Group("/")
		doctor.Use(middleware.RequireRole(model.RoleDoctor))
		{
			doctor.GET("/dashboard/doctor", h.DoctorDashboard)
			doctor.POST("/reports/:id/claim", h.ClaimReport)

			limited := doctor.Group("/")
			limited.Use(middleware.RateLimiter(opts.DecisionRateLimit))
			{
				limited.POST("/reports/:id/decision", h.DecideReport)
				limited.POST("/reports/:id/regenerate", h.RequestRegeneration)
			}
		}
	}
}
