package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agencyhq/agencysite/internal/core/blocks"
	"github.com/agencyhq/agencysite/internal/core/content"
	"github.com/agencyhq/agencysite/internal/core/settings"
)

// PublicHandler serves published content to the marketing site.
type PublicHandler struct {
	contentService *content.Service
	renderer       *blocks.Renderer
	settings       *settings.Store
}

func NewPublicHandler(contentService *content.Service, renderer *blocks.Renderer, settingsStore *settings.Store) *PublicHandler {
	return &PublicHandler{contentService: contentService, renderer: renderer, settings: settingsStore}
}

type seoTags struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords,omitempty"`
}

type publicPage struct {
	*content.View
	SEO      seoTags          `json:"seo"`
	Sections []blocks.Section `json:"sections"`
}

func (h *PublicHandler) List(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	resp, err := h.contentService.List(c.Request.Context(), kind, content.ListOptions{
		PublishedOnly: true,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get renders one published entity with its SEO tags and sections.
// Unpublished entities are reported as missing.
func (h *PublicHandler) Get(c *gin.Context) {
	view, ok := h.published(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	tags := seoTags{
		Title:       view.SEOTitle,
		Description: view.EffectiveMetaDescription,
		Keywords:    view.SEOKeywords,
	}
	if tags.Title == "" {
		tags.Title = view.Title
	}
	if tags.Description == "" {
		tags.Description = h.settings.String(ctx, settings.KeyDefaultMetaDescription, "")
	}

	c.JSON(http.StatusOK, publicPage{
		View:     view,
		SEO:      tags,
		Sections: h.renderer.Render(view.ContentBlocks),
	})
}

// Related lists published entities attached to the one named by slug:
// services of a service group, case studies of a project, or the
// testimonials of anything.
func (h *PublicHandler) Related(c *gin.Context) {
	view, ok := h.published(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var (
		found []*content.Entity
		err   error
	)
	switch relation := c.Param("relation"); {
	case relation == "testimonials":
		found, err = h.contentService.Testimonials(ctx, view.Kind, view.ID, true)
	case relation == content.KindService.Path() && view.Kind == content.KindServiceGroup:
		found, err = h.contentService.ServicesInGroup(ctx, view.ID, true)
	case relation == content.KindCaseStudy.Path() && view.Kind == content.KindProject:
		found, err = h.contentService.CaseStudiesForProject(ctx, view.ID, true)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown relation"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if found == nil {
		found = []*content.Entity{}
	}
	c.JSON(http.StatusOK, gin.H{"entities": found})
}

func (h *PublicHandler) Settings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.GetAll(c.Request.Context()))
}

func (h *PublicHandler) published(c *gin.Context) (*content.View, bool) {
	kind, ok := parseKind(c)
	if !ok {
		return nil, false
	}
	view, err := h.contentService.LoadBySlug(c.Request.Context(), kind, c.Param("slug"))
	if err == nil && !view.Published {
		err = content.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return view, true
}
