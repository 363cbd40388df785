package middleware

import (
	"time"

	"github.com/ariebrainware/telemed-review/util"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// EndpointCallLogger writes one structured line per HTTP request.
func EndpointCallLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		fields := logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"raw_path":    c.Request.URL.Path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if accountID, ok := GetAccountID(c); ok {
			fields["account_id"] = accountID
		}
		if role, ok := GetRole(c); ok {
			fields["role"] = string(role)
		}

		entry := util.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("endpoint call")
		case status >= 400:
			entry.Warn("endpoint call")
		default:
			entry.Info("endpoint call")
		}
	}
}
