package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/pkg/api"
)

// ErrorHandler serializes errors attached by handlers as RFC 9457 problem
// documents. Anything that is not an *api.Problem becomes an opaque 500.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if problem, ok := err.(*api.Problem); ok {
			if problem.Log != nil {
				logger.Error("Request failed",
					zap.Int("status", problem.Status),
					zap.String("title", problem.Title),
					zap.Error(problem.Log),
				)
			}

			// 429 rejections also carry the standard header so plain HTTP
			// clients can back off without parsing the body.
			if retry, ok := problem.Extensions["retry_after_seconds"].(int); ok {
				c.Header("Retry-After", strconv.Itoa(retry))
			}

			c.Header("Content-Type", "application/problem+json")
			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		logger.Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, api.NewError(
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected error occurred.",
		))
		c.Abort()
	}
}
