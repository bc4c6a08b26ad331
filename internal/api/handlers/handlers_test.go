package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyhq/agencysite/config"
	"github.com/agencyhq/agencysite/internal/core/blocks"
	"github.com/agencyhq/agencysite/internal/core/content"
	"github.com/agencyhq/agencysite/internal/core/docstore"
	"github.com/agencyhq/agencysite/internal/core/meta"
	"github.com/agencyhq/agencysite/internal/core/objectstore"
	"github.com/agencyhq/agencysite/internal/core/settings"
	"github.com/agencyhq/agencysite/internal/core/validation"
	"github.com/agencyhq/agencysite/internal/platform/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	engine   *gin.Engine
	content  *content.Service
	settings *settings.Store
	bucket   *objectstore.MemoryBucket
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := docstore.NewMemoryStore()
	log := logger.Nop()
	v := validation.NewValidator()
	registry := blocks.Default()
	urls := objectstore.NewURLBuilder(&config.StorageConfig{
		Endpoint:        "https://cdn.test",
		BucketID:        "media",
		ViewTemplate:    "{endpoint}/{bucket}/{file}",
		PreviewTemplate: "{endpoint}/{bucket}/{file}?w={width}&h={height}",
	})

	env := &testEnv{
		content: content.NewService(
			content.NewRepository(store),
			meta.NewOverlay(store, log),
			blocks.NewEditor(registry, v),
			v,
			log,
		),
		settings: settings.NewStore(store, v, log),
		bucket:   objectstore.NewMemoryBucket(),
	}

	ch := NewContentHandler(env.content)
	ph := NewPublicHandler(env.content, blocks.NewRenderer(registry, urls), env.settings)
	fh := NewFilesHandler(env.bucket, urls)
	sh := NewSettingsHandler(env.settings)
	bh := NewBlocksHandler(registry)

	r := gin.New()
	r.GET("/public/content/:kind", ph.List)
	r.GET("/public/content/:kind/:slug", ph.Get)
	r.GET("/public/content/:kind/:slug/:relation", ph.Related)
	r.GET("/public/settings", ph.Settings)

	r.GET("/content/:kind", ch.List)
	r.POST("/content/:kind", ch.Create)
	r.GET("/content/:kind/:id", ch.Get)
	r.PUT("/content/:kind/:id", ch.Update)
	r.DELETE("/content/:kind/:id", ch.Delete)
	r.GET("/content/:kind/:id/blocks", ch.Blocks)
	r.POST("/content/:kind/:id/blocks/actions", ch.ApplyBlockAction)
	r.GET("/content/:kind/:id/meta", ch.GetMeta)
	r.PUT("/content/:kind/:id/meta", ch.SetMeta)
	r.DELETE("/content/:kind/:id/meta/:key", ch.DeleteMeta)
	r.POST("/content/:kind/:id/seo/revert", ch.RevertSEO)

	r.GET("/blocks", bh.Catalog)
	r.GET("/blocks/:type/schema", bh.Schema)

	r.GET("/files", fh.List)
	r.POST("/files", fh.Upload)
	r.DELETE("/files/:id", fh.Delete)
	r.GET("/files/:id/preview", fh.Preview)

	r.GET("/settings", sh.Get)
	r.PUT("/settings", sh.Update)
	r.DELETE("/settings/:key", sh.Delete)

	env.engine = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestContent_CreateGetUpdateDelete(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/content/services", map[string]any{
		"title":   "Web Design",
		"excerpt": "Sites that convert.",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := created["id"].(string)
	assert.Equal(t, "web-design", created["slug"])
	assert.Equal(t, "Sites that convert.", created["effectiveMetaDescription"])

	w = env.do(t, http.MethodGet, "/content/service/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, "/content/services/"+id, map[string]any{
		"title":           "Web Design",
		"excerpt":         "Sites that convert.",
		"metaDescription": "Hand written.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["metaDescriptionOverridden"])

	w = env.do(t, http.MethodPost, "/content/services/"+id+"/seo/revert", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sites that convert.", decode(t, w)["effectiveMetaDescription"])

	w = env.do(t, http.MethodDelete, "/content/services/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/content/services/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContent_Errors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/content/widgets", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/content/services", map[string]any{"excerpt": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/content/testimonials", map[string]any{
		"title":  "Great work",
		"fields": map[string]any{"rating": 9},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation failed", decode(t, w)["error"])

	w = env.do(t, http.MethodPost, "/content/pages", map[string]any{"title": "About"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPost, "/content/pages", map[string]any{"title": "About"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestContent_BlockActions(t *testing.T) {
	env := newTestEnv(t)
	view, err := env.content.Create(context.Background(), content.KindPage, &content.SaveRequest{Title: "Home"})
	require.NoError(t, err)
	base := "/content/pages/" + view.ID + "/blocks"

	w := env.do(t, http.MethodPost, base+"/actions", blocks.Action{Type: blocks.ActionAdd, BlockType: "text"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["blocks"], 1)
	assert.Empty(t, body["issues"])

	w = env.do(t, http.MethodPost, base+"/actions", blocks.Action{Type: blocks.ActionAdd, BlockType: "carousel"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPost, base+"/actions", blocks.Action{Type: blocks.ActionDelete, Index: 0})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, base+"/actions", blocks.Action{Type: blocks.ActionDelete, Index: 0, Confirm: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["blocks"])
}

func TestContent_Meta(t *testing.T) {
	env := newTestEnv(t)
	view, err := env.content.Create(context.Background(), content.KindProject, &content.SaveRequest{Title: "Rebrand"})
	require.NoError(t, err)
	base := "/content/projects/" + view.ID + "/meta"

	w := env.do(t, http.MethodPut, base, map[string]any{"hero_color": "#112233", "featured": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	all := decode(t, w)
	assert.Equal(t, "#112233", all["hero_color"])
	assert.Equal(t, true, all["featured"])

	w = env.do(t, http.MethodDelete, base+"/featured", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, base+"/featured", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublic_OnlyPublished(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.content.Create(ctx, content.KindPage, &content.SaveRequest{Title: "Draft"})
	require.NoError(t, err)
	_, err = env.content.Create(ctx, content.KindPage, &content.SaveRequest{
		Title:     "About",
		Published: true,
		ContentBlocks: []blocks.Block{
			{Type: "text", Data: map[string]any{"body": "<p>Hello</p>"}},
			{Type: "retired_block", Data: map[string]any{}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, env.settings.Set(ctx, settings.KeyDefaultMetaDescription, "We build things."))

	w := env.do(t, http.MethodGet, "/public/content/pages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.EqualValues(t, 1, list["total"])

	w = env.do(t, http.MethodGet, "/public/content/pages/draft", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/public/content/pages/about", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode(t, w)
	seo := page["seo"].(map[string]any)
	assert.Equal(t, "About", seo["title"])
	assert.Equal(t, "We build things.", seo["description"])

	sections := page["sections"].([]any)
	require.Len(t, sections, 2)
	assert.Empty(t, sections[0].(map[string]any)["error"])
	assert.NotEmpty(t, sections[1].(map[string]any)["error"])
}

func TestPublic_Related(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.content.Create(ctx, content.KindServiceGroup, &content.SaveRequest{Title: "Design", Published: true})
	require.NoError(t, err)
	for _, title := range []string{"Logos", "Websites"} {
		_, err := env.content.Create(ctx, content.KindService, &content.SaveRequest{
			Title:     title,
			Published: true,
			Relations: map[string]string{content.KeyServiceGroupID: group.ID},
		})
		require.NoError(t, err)
	}

	w := env.do(t, http.MethodGet, "/public/content/service-groups/design/services", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["entities"], 2)

	w = env.do(t, http.MethodGet, "/public/content/service-groups/design/testimonials", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["entities"])

	w = env.do(t, http.MethodGet, "/public/content/service-groups/design/case-studies", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBlocks_Catalog(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/blocks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cats := decode(t, w)["categories"].([]any)
	assert.Len(t, cats, len(blocks.Default().Categories()))

	w = env.do(t, http.MethodGet, "/blocks/hero/schema", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/blocks/carousel/schema", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFiles_UploadListDelete(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "logo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	f := decode(t, w)
	id := f["id"].(string)
	assert.Equal(t, "logo.png", f["name"])
	assert.Equal(t, "https://cdn.test/media/"+id, f["url"])

	w = env.do(t, http.MethodGet, "/files", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["files"], 1)

	w = env.do(t, http.MethodGet, "/files/"+id+"/preview?width=200&height=100", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://cdn.test/media/"+id+"?w=200&h=100", w.Header().Get("Location"))

	w = env.do(t, http.MethodDelete, "/files/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, "/files/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFiles_Disabled(t *testing.T) {
	h := NewFilesHandler(nil, objectstore.NewURLBuilder(&config.StorageConfig{}))
	r := gin.New()
	r.GET("/files", h.List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/settings", map[string]any{
		settings.KeySiteName:     "Agency",
		settings.KeyContactPhone: "0123 456",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "0123 456", decode(t, w)[settings.KeyContactPhone])

	w = env.do(t, http.MethodPut, "/settings", map[string]any{settings.KeyContactEmail: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/public/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Agency", decode(t, w)[settings.KeySiteName])

	w = env.do(t, http.MethodDelete, "/settings/"+settings.KeyTagline, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
