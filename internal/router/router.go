package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/config"
	"github.com/telcprep/exam-session/internal/handler"
	"github.com/telcprep/exam-session/internal/middleware"
	"github.com/telcprep/exam-session/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// submitLimiter guards the submit route, which fans out to the backend.
func SetupRouter(
	handlers *Handlers,
	submitLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(response.RequestLogger(log))

	// Apply brotli middleware globally. Upgrade requests pass through.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	// ─── 1. Session API ────────────────────────────────────────────────
	// Session state changes every second; nothing here may be cached.
	sessions := router.Group("/api/v1/sessions")
	sessions.Use(middleware.NoStore())
	{
		sessions.POST("", handlers.Session.OpenSession)
		sessions.GET("/:id", handlers.Session.GetSession)
		sessions.DELETE("/:id", handlers.Session.CloseSession)

		sessions.POST("/:id/start", handlers.Session.Start)
		sessions.POST("/:id/listening/start", handlers.Session.StartListening)
		sessions.POST("/:id/writing/start", handlers.Session.StartWriting)
		sessions.POST("/:id/navigate", handlers.Session.Navigate)

		sessions.PUT("/:id/answers", handlers.Session.UpdateAnswer)
		sessions.PUT("/:id/student", handlers.Session.SetStudentName)
		sessions.POST("/:id/submit", submitLimiter.Middleware(), handlers.Session.Submit)
	}

	// ─── 2. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/sessions/:id/stream", handlers.WS.SessionStream)
	}

	return router
}
