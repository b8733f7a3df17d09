package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/promptforge/optimizer-api/internal/reporting"
	"github.com/promptforge/optimizer-api/internal/server/middleware"
	"github.com/promptforge/optimizer-api/pkg/api"
)

type UsageHandler struct {
	reporting *reporting.Service
}

func NewUsageHandler(r *reporting.Service) *UsageHandler {
	return &UsageHandler{reporting: r}
}

// Get returns the caller's usage report for a trailing day window.
//
// GET /usage?days=N
func (h *UsageHandler) Get(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = c.Error(api.BadRequestError("days must be an integer"))
			return
		}
		days = parsed
	}

	report, err := h.reporting.Summarize(c.Request.Context(), middleware.UserID(c), days)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to build usage report", err))
		return
	}

	c.JSON(http.StatusOK, report)
}
