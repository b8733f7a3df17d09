package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/promptforge/optimizer-api/internal/ledger"
	"github.com/promptforge/optimizer-api/internal/server/validator"
	"github.com/promptforge/optimizer-api/internal/store/model"
	"github.com/promptforge/optimizer-api/pkg/api"
)

// QuotaOverrideRequest is the admin payload for per-user ceilings.
type QuotaOverrideRequest struct {
	QuickDailyMax    int `json:"quick_daily_max" binding:"required,min=0"`
	DeepDailyMax     int `json:"deep_daily_max" binding:"required,min=0"`
	TokenDailyMax    int `json:"token_daily_max" binding:"required,min=0"`
	APICallsDailyMax int `json:"api_calls_daily_max" binding:"required,min=0"`
}

type QuotaHandler struct {
	ledger    *ledger.Ledger
	validator *validator.Validator
}

func NewQuotaHandler(l *ledger.Ledger, v *validator.Validator) *QuotaHandler {
	return &QuotaHandler{
		ledger:    l,
		validator: v,
	}
}

// SetOverride installs per-user daily ceilings. Admin-authenticated route;
// user traffic cannot reach it, so users never change their own limits.
//
// PUT /admin/quotas/:user_id
func (h *QuotaHandler) SetOverride(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		_ = c.Error(api.BadRequestError("user_id path parameter is required"))
		return
	}

	var req QuotaOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(h.validator.ParseError(err)))
		return
	}

	limits := model.QuotaLimits{
		QuickDailyMax:    req.QuickDailyMax,
		DeepDailyMax:     req.DeepDailyMax,
		TokenDailyMax:    req.TokenDailyMax,
		APICallsDailyMax: req.APICallsDailyMax,
	}

	if err := h.ledger.SetOverride(c.Request.Context(), userID, limits); err != nil {
		_ = c.Error(api.InternalError("Failed to set quota override", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"quota":   limits,
	})
}
