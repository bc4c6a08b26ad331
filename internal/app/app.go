// Package app assembles the stores and services for the server and the
// cmsctl tool.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/agencyhq/agencysite/config"
	"github.com/agencyhq/agencysite/internal/api"
	"github.com/agencyhq/agencysite/internal/api/handlers"
	"github.com/agencyhq/agencysite/internal/core/auth"
	"github.com/agencyhq/agencysite/internal/core/blocks"
	"github.com/agencyhq/agencysite/internal/core/content"
	"github.com/agencyhq/agencysite/internal/core/docstore"
	"github.com/agencyhq/agencysite/internal/core/meta"
	"github.com/agencyhq/agencysite/internal/core/objectstore"
	"github.com/agencyhq/agencysite/internal/core/settings"
	"github.com/agencyhq/agencysite/internal/core/validation"
	"github.com/agencyhq/agencysite/internal/platform/logger"
	"github.com/agencyhq/agencysite/internal/storage/gcs"
	"github.com/agencyhq/agencysite/internal/storage/mongo"
	"github.com/agencyhq/agencysite/internal/storage/postgres"
)

type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Docs     docstore.Store
	Postgres *postgres.Client

	Registry *blocks.Registry
	Overlay  *meta.Overlay
	Content  *content.Service
	Settings *settings.Store
	Auth     *auth.Service
	Bucket   objectstore.Bucket
	URLs     *objectstore.URLBuilder

	closers []func() error
}

// New opens the configured backends. Close releases them.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, Registry: blocks.Default()}

	if err := a.openDocStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openBucket(ctx); err != nil {
		a.Close()
		return nil, err
	}

	validator := validation.NewValidator()
	a.URLs = objectstore.NewURLBuilder(&cfg.Storage)
	a.Overlay = meta.NewOverlay(a.Docs, log.With("component", "meta"))
	a.Content = content.NewService(
		content.NewRepository(a.Docs),
		a.Overlay,
		blocks.NewEditor(a.Registry, validator),
		validator,
		log.With("component", "content"),
	)
	a.Settings = settings.NewStore(a.Docs, validator, log.With("component", "settings"))

	var authStore auth.Store
	if a.Postgres != nil {
		authStore = auth.NewRepository(a.Postgres)
	} else {
		authStore = auth.NewDocumentRepository(a.Docs)
	}
	a.Auth = auth.NewService(authStore, &cfg.Session)

	return a, nil
}

func (a *App) openDocStore(ctx context.Context) error {
	switch a.Config.DocStore.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewClient(ctx, &a.Config.Database)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		if a.Config.Database.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
		}
		a.Postgres = db
		a.Docs = docstore.NewPostgresStore(db)
	case config.DriverMongo:
		client, err := mongo.NewClient(ctx, &a.Config.Mongo)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		store := docstore.NewMongoStore(client.DB)
		if err := ensureMongoIndexes(ctx, store); err != nil {
			return err
		}
		a.Docs = store
	case config.DriverMemory:
		a.Log.Warn("using the in-memory document store; content is lost on restart")
		a.Docs = docstore.NewMemoryStore()
	default:
		return fmt.Errorf("unknown document store driver %q", a.Config.DocStore.Driver)
	}
	a.Log.Info("document store ready", "driver", a.Config.DocStore.Driver)
	return nil
}

// ensureMongoIndexes mirrors the expression indexes of the Postgres schema.
func ensureMongoIndexes(ctx context.Context, store *docstore.MongoStore) error {
	for _, kind := range content.Kinds() {
		if err := store.EnsureIndex(ctx, kind.Collection(), "slug"); err != nil {
			return err
		}
		if err := store.EnsureIndex(ctx, kind.MetaCollection(), meta.FieldEntityID, meta.FieldMetaKey); err != nil {
			return err
		}
		if err := store.EnsureIndex(ctx, kind.MetaCollection(), meta.FieldMetaKey, meta.FieldMetaValue); err != nil {
			return err
		}
	}
	return store.EnsureIndex(ctx, auth.UsersCollection, "email")
}

func (a *App) openBucket(ctx context.Context) error {
	cfg := &a.Config.Storage
	switch cfg.Driver {
	case config.StorageGCS:
		client, err := gcs.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		a.Bucket = objectstore.NewGCSBucket(client, cfg.BucketID, cfg.Timeout(), a.Log.With("component", "files"))
	case config.StorageMemory:
		a.Bucket = objectstore.NewMemoryBucket()
	case config.StorageNone:
		a.Log.Info("file storage disabled")
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	return nil
}

// EnsureAdmin creates or resets the configured admin account. It does
// nothing when no admin email is configured.
func (a *App) EnsureAdmin(ctx context.Context) (bool, error) {
	admin := a.Config.Admin
	if admin.Email == "" {
		return false, nil
	}
	_, created, err := a.Auth.EnsureAdmin(ctx, admin.Email, admin.Password, admin.Name)
	if err != nil {
		return false, fmt.Errorf("failed to ensure admin %s: %w", admin.Email, err)
	}
	a.Log.Info("admin account ready", "email", admin.Email, "created", created)
	return created, nil
}

func (a *App) Router() *api.Router {
	h := api.Handlers{
		Auth:     handlers.NewAuthHandler(a.Auth),
		Public:   handlers.NewPublicHandler(a.Content, blocks.NewRenderer(a.Registry, a.URLs), a.Settings),
		Content:  handlers.NewContentHandler(a.Content),
		Blocks:   handlers.NewBlocksHandler(a.Registry),
		Files:    handlers.NewFilesHandler(a.Bucket, a.URLs),
		Settings: handlers.NewSettingsHandler(a.Settings),
	}
	return api.NewRouter(a.Auth, h, a.Config.Server.CORSOrigins, a.Log.With("component", "http"))
}

// Close releases backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
