package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agencyhq/agencysite/internal/api/handlers"
	"github.com/agencyhq/agencysite/internal/api/middleware"
	"github.com/agencyhq/agencysite/internal/platform/logger"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Public   *handlers.PublicHandler
	Content  *handlers.ContentHandler
	Blocks   *handlers.BlocksHandler
	Files    *handlers.FilesHandler
	Settings *handlers.SettingsHandler
}

type Router struct {
	engine         *gin.Engine
	log            *logger.Logger
	corsOrigins    []string
	authMiddleware *middleware.AuthMiddleware
	handlers       Handlers
}

func NewRouter(sessions middleware.SessionAuthenticator, h Handlers, corsOrigins []string, log *logger.Logger) *Router {
	return &Router{
		log:            log,
		corsOrigins:    corsOrigins,
		authMiddleware: middleware.NewAuthMiddleware(sessions),
		handlers:       h,
	}
}

func (r *Router) Setup(mode string) *gin.Engine {
	gin.SetMode(mode)
	r.engine = gin.New()
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.ClientInfo())
	r.engine.Use(middleware.RequestLogger(r.log))
	r.engine.Use(middleware.CORS(r.corsOrigins))

	r.setupRoutes()
	return r.engine
}

func (r *Router) setupRoutes() {
	api := r.engine.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public site
	public := api.Group("/public")
	{
		public.GET("/settings", r.handlers.Public.Settings)
		public.GET("/content/:kind", r.handlers.Public.List)
		public.GET("/content/:kind/:slug", r.handlers.Public.Get)
		public.GET("/content/:kind/:slug/:relation", r.handlers.Public.Related)
		public.GET("/files/:id/preview", r.handlers.Files.Preview)
	}

	// Sessions
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/sessions", r.handlers.Auth.CreateSession)
		current := authRoutes.Group("/sessions/current", r.authMiddleware.Authenticate())
		current.GET("", r.handlers.Auth.Current)
		current.DELETE("", r.handlers.Auth.DeleteCurrent)
	}

	admin := api.Group("/admin")
	admin.Use(r.authMiddleware.Authenticate())
	{
		content := admin.Group("/content/:kind")
		{
			content.GET("", r.handlers.Content.List)
			content.POST("", r.handlers.Content.Create)
			content.GET("/:id", r.handlers.Content.Get)
			content.PUT("/:id", r.handlers.Content.Update)
			content.DELETE("/:id", r.handlers.Content.Delete)

			content.GET("/:id/blocks", r.handlers.Content.Blocks)
			content.POST("/:id/blocks/actions", r.handlers.Content.ApplyBlockAction)

			content.GET("/:id/meta", r.handlers.Content.GetMeta)
			content.PUT("/:id/meta", r.handlers.Content.SetMeta)
			content.DELETE("/:id/meta/:key", r.handlers.Content.DeleteMeta)
			content.POST("/:id/seo/revert", r.handlers.Content.RevertSEO)
		}

		admin.GET("/blocks", r.handlers.Blocks.Catalog)
		admin.GET("/blocks/:type/schema", r.handlers.Blocks.Schema)

		admin.GET("/files", r.handlers.Files.List)
		admin.POST("/files", r.handlers.Files.Upload)
		admin.DELETE("/files/:id", r.handlers.Files.Delete)

		admin.GET("/settings", r.handlers.Settings.Get)
		admin.PUT("/settings", r.handlers.Settings.Update)
		admin.DELETE("/settings/:key", r.handlers.Settings.Delete)
	}
}
