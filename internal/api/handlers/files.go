package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agencyhq/agencysite/internal/core/objectstore"
)

const maxUploadBytes = 20 << 20

type FilesHandler struct {
	bucket objectstore.Bucket
	urls   *objectstore.URLBuilder
}

// NewFilesHandler accepts a nil bucket; every call then fails with
// ErrDisabled.
func NewFilesHandler(bucket objectstore.Bucket, urls *objectstore.URLBuilder) *FilesHandler {
	return &FilesHandler{bucket: bucket, urls: urls}
}

func (h *FilesHandler) withURL(f objectstore.File) objectstore.File {
	f.URL = h.urls.View(f.ID)
	return f
}

func (h *FilesHandler) List(c *gin.Context) {
	if h.bucket == nil {
		respondError(c, objectstore.ErrDisabled)
		return
	}
	files, err := h.bucket.ListFiles(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range files {
		files[i] = h.withURL(files[i])
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// Upload stores the multipart field "file".
func (h *FilesHandler) Upload(c *gin.Context) {
	if h.bucket == nil {
		respondError(c, objectstore.ErrDisabled)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()

	f, err := h.bucket.CreateFile(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), src)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.withURL(f))
}

func (h *FilesHandler) Delete(c *gin.Context) {
	if h.bucket == nil {
		respondError(c, objectstore.ErrDisabled)
		return
	}
	if err := h.bucket.DeleteFile(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Preview redirects to a resized rendition of an image.
func (h *FilesHandler) Preview(c *gin.Context) {
	width, _ := strconv.Atoi(c.Query("width"))
	height, _ := strconv.Atoi(c.Query("height"))
	c.Redirect(http.StatusFound, h.urls.Preview(c.Param("id"), width, height))
}
