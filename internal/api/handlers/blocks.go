package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agencyhq/agencysite/internal/core/blocks"
)

type BlocksHandler struct {
	registry *blocks.Registry
}

func NewBlocksHandler(registry *blocks.Registry) *BlocksHandler {
	return &BlocksHandler{registry: registry}
}

type categoryGroup struct {
	blocks.Category
	Blocks []blocks.BlockDefinition `json:"blocks"`
}

// Catalog lists block definitions grouped by category, in catalogue order.
func (h *BlocksHandler) Catalog(c *gin.Context) {
	byCategory := h.registry.ByCategory()
	groups := make([]categoryGroup, 0, len(h.registry.Categories()))
	for _, cat := range h.registry.Categories() {
		defs := byCategory[cat.ID]
		if defs == nil {
			defs = []blocks.BlockDefinition{}
		}
		groups = append(groups, categoryGroup{Category: cat, Blocks: defs})
	}
	c.JSON(http.StatusOK, gin.H{"categories": groups})
}

func (h *BlocksHandler) Schema(c *gin.Context) {
	schema, ok := h.registry.Schema(c.Param("type"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown block type"})
		return
	}
	c.JSON(http.StatusOK, schema)
}
