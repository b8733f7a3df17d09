package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/promptforge/optimizer-api/pkg/api"
)

// ContextKeyUserID is where the authenticated user id lives in the gin context.
const ContextKeyUserID = "user_id"

// Identity extracts the caller's user id from the X-User-ID header. Identity
// is established upstream; this service trusts the header but refuses to run
// quota-accounted work anonymously.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				api.UnauthorizedError("Missing X-User-ID header"))
			return
		}

		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// UserID reads the id set by Identity. Only valid on routes behind it.
func UserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}
