package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "pdfshare-backend/internal/auth"
	"pdfshare-backend/internal/comments"
	"pdfshare-backend/internal/pdfs"
	"pdfshare-backend/internal/services/health"
	"pdfshare-backend/internal/shared/config"
	"pdfshare-backend/internal/shared/metrics"
	"pdfshare-backend/internal/shared/server/middleware"
	"pdfshare-backend/internal/shared/server/respond"
	localstore "pdfshare-backend/internal/shared/storage/object/local"
	"pdfshare-backend/internal/users"
)

const (
	groupDefault = "DEFAULT"
	groupAuth    = "AUTH"
	groupPublic  = "PUBLIC"
	groupNone    = "NONE"
)

// RouterDeps holds handlers and collaborators for router construction.
type RouterDeps struct {
	Config          config.Config
	Tokens          middleware.TokenVerifier
	Health          *health.Service
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
	PDFHandler      *pdfs.Handler
	CommentsHandler *comments.Handler
	// LocalStore is set when objects are served by this process.
	LocalStore *localstore.Store
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.Config.IsDevLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	limiter := middleware.NewRateLimiter(nil)
	rules := rateLimitRules(deps.Config.RateLimit)

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		// Unauthenticated groups are limited per client IP here; protected
		// groups are limited per user after RequireAuth.
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: groupNone,
			GroupFor:     unauthenticatedGroup,
			Limiter:      limiter,
		}),
	)

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}
	r.GET("/health", func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	r.GET("/metrics", metrics.Handler())

	requireAuth := middleware.RequireAuth(deps.Tokens)
	perUser := middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: groupDefault,
		Limiter:      limiter,
	})

	authGroup := r.Group("/auth")
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(authGroup)
		deps.UserHandler.RegisterProtectedRoutes(r.Group("/auth", requireAuth, perUser))
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(authGroup)
	}

	public := r.Group("/public", middleware.Guest())
	if deps.PDFHandler != nil {
		deps.PDFHandler.RegisterRoutes(r.Group("/pdf", requireAuth, perUser))
		deps.PDFHandler.RegisterPublicRoutes(public)
	}
	if deps.CommentsHandler != nil {
		deps.CommentsHandler.RegisterRoutes(r.Group("/comments", requireAuth, perUser))
		deps.CommentsHandler.RegisterPublicRoutes(public)
	}

	if deps.LocalStore != nil {
		deps.LocalStore.RegisterRoutes(r)
	}

	return r
}

func rateLimitRules(cfg config.RateLimit) map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		groupDefault: {Rate: cfg.DefaultRate, Burst: cfg.DefaultBurst},
		groupAuth:    {Rate: cfg.AuthRate, Burst: cfg.AuthBurst},
		groupPublic:  {Rate: cfg.PublicRate, Burst: cfg.PublicBurst},
	}
}

func unauthenticatedGroup(c *gin.Context) string {
	path := c.FullPath()
	switch {
	case strings.HasPrefix(path, "/public/"):
		return groupPublic
	case path == "/auth/register" || path == "/auth/login" || strings.HasPrefix(path, "/auth/google/"):
		return groupAuth
	default:
		return groupNone
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
