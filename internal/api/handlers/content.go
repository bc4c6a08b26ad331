package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agencyhq/agencysite/internal/core/blocks"
	"github.com/agencyhq/agencysite/internal/core/content"
)

// ContentHandler serves the admin API for every content kind.
type ContentHandler struct {
	contentService *content.Service
}

func NewContentHandler(contentService *content.Service) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

func (h *ContentHandler) List(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	resp, err := h.contentService.List(c.Request.Context(), kind, content.ListOptions{
		PublishedOnly: c.Query("published") == "true",
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ContentHandler) Create(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	var req content.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.contentService.Create(c.Request.Context(), kind, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *ContentHandler) Get(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	view, err := h.contentService.Load(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ContentHandler) Update(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	var req content.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.contentService.Update(c.Request.Context(), kind, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete purges the entity's attributes unless ?purge=false.
func (h *ContentHandler) Delete(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	purge := c.DefaultQuery("purge", "true") != "false"
	if err := h.contentService.Delete(c.Request.Context(), kind, c.Param("id"), purge); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ContentHandler) Blocks(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	list, err := h.contentService.Blocks(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": list, "issues": h.contentService.Editor().Validate(list)})
}

// ApplyBlockAction runs one editor step and returns the saved list.
func (h *ContentHandler) ApplyBlockAction(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	var action blocks.Action
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list, err := h.contentService.ApplyBlockAction(c.Request.Context(), kind, c.Param("id"), action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": list})
}

func (h *ContentHandler) GetMeta(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	values, err := h.contentService.Meta(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, values)
}

func (h *ContentHandler) SetMeta(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	var values map[string]any
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if err := h.contentService.SetMeta(c.Request.Context(), kind, id, values); err != nil {
		respondError(c, err)
		return
	}
	all, err := h.contentService.Meta(c.Request.Context(), kind, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *ContentHandler) DeleteMeta(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	found, err := h.contentService.DeleteMeta(c.Request.Context(), kind, c.Param("id"), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "attribute not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ContentHandler) RevertSEO(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	view, err := h.contentService.RevertSEO(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
