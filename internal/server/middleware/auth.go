package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/promptforge/optimizer-api/pkg/api"
)

// AdminAuth checks for a valid Bearer token from the configured admin key set.
// Guards the quota-override routes only; user traffic never carries these keys.
func AdminAuth(adminKeys []string) gin.HandlerFunc {
	keys := make(map[string]bool, len(adminKeys))
	for _, k := range adminKeys {
		keys[k] = true
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				api.UnauthorizedError("Missing Authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				api.UnauthorizedError("Invalid Authorization header format"))
			return
		}

		if !keys[parts[1]] {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				api.UnauthorizedError("Invalid admin key"))
			return
		}

		c.Next()
	}
}
