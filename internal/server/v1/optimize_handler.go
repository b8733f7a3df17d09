package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/promptforge/optimizer-api/internal/dispatch"
	"github.com/promptforge/optimizer-api/internal/server/middleware"
	"github.com/promptforge/optimizer-api/internal/server/validator"
	"github.com/promptforge/optimizer-api/pkg/api"
)

// System instructions wrapped around the caller's prompt per route. Kept
// server-side so callers cannot steer the meta-prompt.
const (
	optimizeInstruction = "You are a prompt engineer. Rewrite the user's prompt to be clearer, more specific, and more effective for a large language model. Return only the rewritten prompt."
	evaluateInstruction = "You are a prompt engineer. Evaluate the user's prompt: identify ambiguities, missing context, and weaknesses, then score it from 1 to 10 with a short justification."
)

type OptimizeHandler struct {
	orchestrator *dispatch.Orchestrator
	validator    *validator.Validator
}

func NewOptimizeHandler(o *dispatch.Orchestrator, v *validator.Validator) *OptimizeHandler {
	return &OptimizeHandler{
		orchestrator: o,
		validator:    v,
	}
}

// Optimize rewrites a prompt through the dispatch pipeline.
//
// POST /api/v1/optimize
func (h *OptimizeHandler) Optimize(c *gin.Context) {
	h.dispatch(c, optimizeInstruction)
}

// Evaluate critiques a prompt through the same pipeline.
//
// POST /api/v1/evaluate
func (h *OptimizeHandler) Evaluate(c *gin.Context) {
	h.dispatch(c, evaluateInstruction)
}

func (h *OptimizeHandler) dispatch(c *gin.Context, instruction string) {
	var req api.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(h.validator.ParseError(err)))
		return
	}

	// The Idempotency-Key header keys ledger dedup; a retried request with
	// the same key is charged once.
	requestID := c.GetHeader("Idempotency-Key")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	result, err := h.orchestrator.Dispatch(c.Request.Context(), &dispatch.Request{
		UserID:    middleware.UserID(c),
		RequestID: requestID,
		Class:     req.RequestClass,
		Selection: req.Selection,
		Prompt:    req.Prompt,
		System:    instruction,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, api.OptimizeResponse{
		Text:         result.Text,
		TokensUsed:   result.TokensUsed,
		RequestClass: result.Class,
	})
}
