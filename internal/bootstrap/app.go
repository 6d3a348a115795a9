package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"pdfshare-backend/internal/access"
	googleauth "pdfshare-backend/internal/auth"
	"pdfshare-backend/internal/comments"
	"pdfshare-backend/internal/documents"
	"pdfshare-backend/internal/pdfs"
	"pdfshare-backend/internal/services/health"
	"pdfshare-backend/internal/shared/auth"
	"pdfshare-backend/internal/shared/cache"
	"pdfshare-backend/internal/shared/config"
	"pdfshare-backend/internal/shared/server"
	"pdfshare-backend/internal/shared/storage/db"
	"pdfshare-backend/internal/shared/storage/object"
	localstore "pdfshare-backend/internal/shared/storage/object/local"
	miniostore "pdfshare-backend/internal/shared/storage/object/minio"
	s3store "pdfshare-backend/internal/shared/storage/object/s3"
	"pdfshare-backend/internal/shared/telemetry"
	"pdfshare-backend/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sqlx.DB
	Redis     *redis.Client
	Storage   object.Presigner
	Tokens    *auth.TokenIssuer
	Resolver  *access.Resolver
	LocalFile *localstore.Store

	UsersRepo     users.Repo
	DocumentsRepo documents.Repo
	CommentsRepo  comments.Repo

	UsersService    *users.Service
	PDFService      *pdfs.Service
	CommentsService *comments.Service

	UsersHandler    *users.Handler
	PDFHandler      *pdfs.Handler
	CommentsHandler *comments.Handler
	GoogleAuth      *googleauth.GoogleService
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.Storage.Type) == "" {
		cfg.Storage.Type = "local"
	}
	ctx := context.Background()

	tokens, err := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	app := &App{Config: cfg, Tokens: tokens}

	if app.DB, err = buildDB(ctx, cfg); err != nil {
		return nil, err
	}
	if err := buildStorage(ctx, app); err != nil {
		app.Close()
		return nil, err
	}
	shareCache, err := buildCache(ctx, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	buildServices(app, shareCache)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Tokens:          tokens,
		Health:          buildHealth(app),
		UserHandler:     app.UsersHandler,
		GoogleAuth:      app.GoogleAuth,
		PDFHandler:      app.PDFHandler,
		CommentsHandler: app.CommentsHandler,
		LocalStore:      app.LocalFile,
	})
	return app, nil
}

// Close releases pooled connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db_missing", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	pool := db.DefaultServerOptions()
	if db.IsLambdaRuntime() {
		pool = db.DefaultLambdaOptions()
	}
	sqlxDB, err := db.ConnectX(ctx, cfg.DatabaseURL, db.OptionsFromEnv(pool))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db_connect_failed", map[string]any{"fallback": "memory", "error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlxDB.DB); err != nil {
		_ = sqlxDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlxDB, nil
}

func buildStorage(ctx context.Context, app *App) error {
	cfg := app.Config
	switch cfg.Storage.Type {
	case "s3":
		presigner, err := s3store.New(ctx, cfg.Storage.AWSRegion, cfg.Storage.S3Bucket, cfg.Storage.S3Prefix)
		if err != nil {
			return fmt.Errorf("s3 storage: %w", err)
		}
		app.Storage = presigner
	case "minio":
		presigner, err := miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("minio storage: %w", err)
		}
		app.Storage = presigner
	default:
		store := localstore.New(cfg.Storage.LocalDir, cfg.APIBaseURL, cfg.Storage.LocalSecret, cfg.Storage.MaxUploadBytes)
		app.LocalFile = store
		app.Storage = store
	}
	telemetry.Info("bootstrap.storage", map[string]any{"provider": app.Storage.Provider()})
	return nil
}

func buildCache(ctx context.Context, app *App) (cache.ShareTokens, error) {
	cfg := app.Config.Redis
	if strings.TrimSpace(cfg.Addr) == "" {
		return cache.Noop{}, nil
	}
	tokens, client, err := cache.NewRedisShareTokens(ctx, cache.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		TTL:      cfg.TTL,
	})
	if err != nil {
		if app.Config.IsDevLike() {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err})
			return cache.Noop{}, nil
		}
		return nil, err
	}
	app.Redis = client
	return tokens, nil
}

func buildServices(app *App, shareCache cache.ShareTokens) {
	var (
		userRepo    users.Repo
		docRepo     documents.Repo
		commentRepo comments.Repo
	)
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
		commentRepo = &comments.PGRepo{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		docRepo = documents.NewMemoryRepo()
		commentRepo = comments.NewMemoryRepo()
	}
	docRepo = documents.NewCachedRepo(docRepo, shareCache)

	resolver := access.NewResolver(docRepo, app.Config.OpenDocumentReads)
	userSvc := users.NewService(userRepo, app.Tokens)
	pdfSvc := pdfs.NewService(docRepo, resolver, app.Storage, userSvc, pdfs.Options{
		PublicBaseURL: app.Config.FrontendURL,
		UploadTTL:     app.Config.Presign.UploadTTL,
		ViewTTL:       app.Config.Presign.ViewTTL,
		PublicViewTTL: app.Config.Presign.PublicViewTTL,
	})
	commentSvc := comments.NewService(commentRepo, resolver, userSvc)

	app.UsersRepo = userRepo
	app.DocumentsRepo = docRepo
	app.CommentsRepo = commentRepo
	app.Resolver = resolver
	app.UsersService = userSvc
	app.PDFService = pdfSvc
	app.CommentsService = commentSvc
	app.UsersHandler = users.NewHandler(userSvc)
	app.PDFHandler = pdfs.NewHandler(pdfSvc)
	app.CommentsHandler = comments.NewHandler(commentSvc)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.Google.ClientID,
		app.Config.Google.ClientSecret,
		app.Config.Google.RedirectURL,
		app.Config.UIRedirectURL,
		app.Tokens,
		userSvc,
	)
}

func buildHealth(app *App) *health.Service {
	checks := map[string]health.Check{}
	if app.DB != nil {
		checks["postgres"] = app.DB.PingContext
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}
	return health.NewService(checks)
}
