package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quizquest/quizquest-go/internal/config"
	"github.com/quizquest/quizquest-go/internal/handler"
	"github.com/quizquest/quizquest-go/internal/middleware"
	"github.com/quizquest/quizquest-go/internal/response"
	"github.com/quizquest/quizquest-go/internal/service"
)

// submitBodyLimit caps submission payloads. A multi-select answer is a
// few hundred bytes at most.
const submitBodyLimit = 16 << 10

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth *handler.AuthHandler
	Game *handler.GameHandler
	WS   *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key", "Cache-Control"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/refresh", handlers.Auth.Refresh)
	}

	// ─── 2. Game Group (Player JWT) ────────────────────────────────────
	game := router.Group("/api/v1/game")
	game.Use(
		middleware.RequirePlayerJWT(authService),
		middleware.NoStore(),
		middleware.MaxBodyBytes(submitBodyLimit),
	)
	{
		game.GET("/levels/:level_id/intro", handlers.Game.Intro)
		game.POST("/levels/:level_id/start", handlers.Game.Start)
		game.POST("/levels/:level_id/replay", handlers.Game.Replay)
		game.GET("/levels/:level_id/next", handlers.Game.NextTask)
		game.GET("/levels/:level_id/leaderboard", handlers.Game.Leaderboard)
		game.POST("/tasks/:task_id/submit", handlers.Game.Submit)
	}

	// ─── 3. WebSocket Group (Query-Token Auth) ─────────────────────────
	ws := router.Group("/api/v1/game")
	ws.Use(middleware.RequirePlayerWSAuth(authService))
	{
		ws.GET("/levels/:level_id/leaderboard/ws", handlers.WS.LeaderboardStream)
	}

	return router
}
