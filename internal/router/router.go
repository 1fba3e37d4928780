package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepaconcours/prepa-backend/internal/config"
	"github.com/prepaconcours/prepa-backend/internal/handler"
	"github.com/prepaconcours/prepa-backend/internal/middleware"
	"github.com/prepaconcours/prepa-backend/internal/response"
	"github.com/prepaconcours/prepa-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Review *handler.ReviewHandler
	WS     *handler.WSHandler
	System *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// limiter may be nil to disable rate limiting.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	// ─── System ────────────────────────────────────────────────────────
	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", handlers.System.Metrics())

	// ─── 1. Candidate API (JWT) ────────────────────────────────────────
	me := router.Group("/api/v1/me")
	me.Use(middleware.RequireJWT(authService), middleware.NoStore())
	if limiter != nil {
		me.Use(limiter.Middleware())
	}
	{
		me.GET("/attempts", handlers.Review.ListAttempts)
		me.GET("/attempts/:exam_type/:exam_number", handlers.Review.GetAttempt)
		me.DELETE("/attempts/:exam_type/:exam_number", handlers.Review.DeleteAttempt)
		me.GET("/progress", handlers.Review.GetProgress)
		me.GET("/exams/:exam_type/:exam_number/draft", handlers.Review.GetDraft)
	}

	// ─── 2. Exam stream (WS auth + plan) ───────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/exams/:exam_type/:exam_number/stream",
			middleware.RequireExamAccess(cfg.FreeExamLimit),
			handlers.WS.ExamStream,
		)
	}

	return router
}
