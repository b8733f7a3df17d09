package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/promptforge/optimizer-api/internal/registry"
)

type ProviderHandler struct {
	registry *registry.Registry
}

func NewProviderHandler(reg *registry.Registry) *ProviderHandler {
	return &ProviderHandler{registry: reg}
}

// List returns the configured providers and their model lists. Read-only;
// credentials never appear in this view.
//
// GET /providers
func (h *ProviderHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": h.registry.List(),
	})
}
