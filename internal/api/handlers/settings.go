package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agencyhq/agencysite/internal/core/settings"
)

type SettingsHandler struct {
	settings *settings.Store
}

func NewSettingsHandler(settingsStore *settings.Store) *SettingsHandler {
	return &SettingsHandler{settings: settingsStore}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings": h.settings.GetAll(c.Request.Context()),
		"schema":   settings.Schema(),
	})
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var values map[string]any
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.settings.SetMultiple(c.Request.Context(), values); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.settings.GetAll(c.Request.Context()))
}

func (h *SettingsHandler) Delete(c *gin.Context) {
	found, err := h.settings.Delete(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "setting not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
