package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizquest/quizquest-go/internal/config"
	"github.com/quizquest/quizquest-go/internal/database"
	"github.com/quizquest/quizquest-go/internal/handler"
	"github.com/quizquest/quizquest-go/internal/logger"
	"github.com/quizquest/quizquest-go/internal/model"
	"github.com/quizquest/quizquest-go/internal/repository"
	"github.com/quizquest/quizquest-go/internal/router"
	"github.com/quizquest/quizquest-go/internal/service"
	"github.com/quizquest/quizquest-go/internal/validator"
	ws "github.com/quizquest/quizquest-go/internal/websocket"
	"github.com/quizquest/quizquest-go/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting QuizQuest Game Server")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Load Level Content ────────────────────────────────────────────
	// Postgres is optional: without DATABASE_URL the built-in level pack
	// is served, which is enough for client development.
	var levels []model.Level
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()

		levels, err = repository.NewLevelRepository(pool).GetAll(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load levels")
		}
		log.Info().Int("levels", len(levels)).Msg("Levels loaded from PostgreSQL")
	} else {
		levels = repository.SeedLevels()
		log.Info().Int("levels", len(levels)).Msg("Using built-in level pack")
	}

	// ─── Initialize Repositories & Services ───────────────────────────
	playRepo := repository.NewPlayRepository(rdb)

	players, err := service.DemoPlayers(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed players")
	}
	authService := service.NewAuthService(cfg, playRepo, players, log)
	gameService := service.NewGameService(cfg, playRepo, levels, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	hub := ws.NewHub()
	handlers := &router.Handlers{
		Auth: handler.NewAuthHandler(authService),
		Game: handler.NewGameHandler(gameService),
		WS:   handler.NewWSHandler(hub, gameService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	leaderboardWorker := worker.NewLeaderboardWorker(rdb, hub, log)
	go leaderboardWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	workerCancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
