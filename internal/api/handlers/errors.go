package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agencyhq/agencysite/internal/core/blocks"
	"github.com/agencyhq/agencysite/internal/core/content"
	"github.com/agencyhq/agencysite/internal/core/objectstore"
	"github.com/agencyhq/agencysite/internal/core/validation"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// respondError maps a service error to its HTTP status.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	if validation.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": validation.GetValidationErrors(err)})
		return
	}

	switch {
	case errors.Is(err, content.ErrNotFound),
		errors.Is(err, content.ErrUnknownKind),
		errors.Is(err, objectstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, content.ErrSlugTaken),
		errors.Is(err, blocks.ErrConfirmationRequired):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, blocks.ErrUnknownBlockType),
		errors.Is(err, blocks.ErrIndexOutOfRange),
		errors.Is(err, blocks.ErrUnknownField),
		errors.Is(err, blocks.ErrWrongFieldKind),
		errors.Is(err, blocks.ErrTooManyItems),
		errors.Is(err, blocks.ErrEmptyFileID),
		errors.Is(err, blocks.ErrUnknownAction):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, objectstore.ErrDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// parseKind reads the :kind path segment ("case-studies" or "case_study").
func parseKind(c *gin.Context) (content.Kind, bool) {
	kind, err := content.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return kind, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
