package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/ariebrainware/telemed-review/model"
	"github.com/ariebrainware/telemed-review/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	// SessionTokenHeader carries the login session issued by the authentication service.
	SessionTokenHeader = "session-token"

	dbKey = "db"
	// AccountIDKey holds the authenticated account id (uint) in the gin context.
	AccountIDKey = "account_id"
	// RoleKey holds the authenticated account's declared role (model.Role).
	RoleKey = "role"
)

var errMissingSession = errors.New("missing or invalid session")

func setCorsHeaders(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization, session-token")
	c.Writer.Header().Set("Access-Control-Max-Age", "86400")
	c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
	c.Writer.Header().Set("Content-Type", "application/json")
}

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		setCorsHeaders(c)

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// DatabaseMiddleware makes db available to handlers through GetDB.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbKey, db)
		c.Next()
	}
}

// GetDB returns the database set by DatabaseMiddleware, or nil.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}

// GetAccountID returns the authenticated account id.
func GetAccountID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(AccountIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// GetRole returns the authenticated account's declared role.
func GetRole(c *gin.Context) (model.Role, bool) {
	v, ok := c.Get(RoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(model.Role)
	return role, ok && role.Valid()
}

type sessionRow struct {
	AccountID uint
	Role      string
	ExpiresAt time.Time
}

// ValidateSession resolves the session-token header to an account, first from the
// Redis session cache and then from the sessions table, and stores the account id
// and role in the context.
func ValidateSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		token := c.GetHeader(SessionTokenHeader)
		if token == "" {
			unauthorized(c, "session token is required")
			return
		}

		ctx := c.Request.Context()
		accountID, role, ok, err := util.LookupCachedSession(ctx, token)
		if err != nil {
			util.Log.WithError(err).Warn("session cache lookup failed, falling back to database")
		}
		if ok {
			c.Set(AccountIDKey, accountID)
			c.Set(RoleKey, model.Role(role))
			c.Next()
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database unavailable",
				Err: errors.New("database not configured in context"),
			})
			c.Abort()
			return
		}

		var row sessionRow
		err = db.WithContext(ctx).Table("sessions").
			Select("sessions.account_id, sessions.expires_at, accounts.role").
			Joins("JOIN accounts ON accounts.id = sessions.account_id AND accounts.deleted_at IS NULL").
			Where("sessions.session_token = ? AND sessions.deleted_at IS NULL", token).
			Where("sessions.expires_at > ?", time.Now()).
			Limit(1).
			Scan(&row).Error
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to validate session", Err: err})
			c.Abort()
			return
		}
		if row.AccountID == 0 {
			unauthorized(c, "session is invalid or expired")
			return
		}

		if row.Role != "" {
			if err := util.CacheSession(ctx, token, row.AccountID, row.Role, time.Until(row.ExpiresAt)); err != nil {
				util.Log.WithError(err).Debug("session not cached")
			}
		}
		c.Set(AccountIDKey, row.AccountID)
		c.Set(RoleKey, model.Role(row.Role))
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	util.LogReviewEvent(util.ReviewEvent{
		EventType: util.EventUnauthorizedAccess,
		Message:   msg + ": " + c.Request.Method + " " + c.Request.URL.Path,
	})
	util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: msg, Err: errMissingSession})
	c.Abort()
}

// RequireRole only lets accounts whose declared role is one of roles through.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := GetRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		accountID, _ := GetAccountID(c)
		util.LogReviewEvent(util.ReviewEvent{
			EventType: util.EventUnauthorizedAccess,
			AccountID: accountID,
			Role:      string(role),
			Message:   "role not permitted: " + c.Request.Method + " " + c.Request.URL.Path,
		})
		util.CallForbidden(c, util.APIErrorParams{
			Msg: "Your role is not permitted to perform this action",
			Err: errors.New("forbidden"),
		})
		c.Abort()
	}
}
