package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/client"
	"github.com/telcprep/exam-session/internal/config"
	"github.com/telcprep/exam-session/internal/database"
	"github.com/telcprep/exam-session/internal/handler"
	"github.com/telcprep/exam-session/internal/logger"
	"github.com/telcprep/exam-session/internal/middleware"
	"github.com/telcprep/exam-session/internal/model"
	"github.com/telcprep/exam-session/internal/repository"
	"github.com/telcprep/exam-session/internal/router"
	"github.com/telcprep/exam-session/internal/service"
	"github.com/telcprep/exam-session/internal/validator"
	"github.com/telcprep/exam-session/internal/worker"
)

const limiterCleanupInterval = time.Minute

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("exam_api", cfg.ExamAPIURL).
		Msg("Starting exam session service")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, 5*time.Second, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	flagRepo := repository.NewProgressFlagRepository(rdb, cfg.SessionTTL)
	draftRepo := repository.NewAnswerDraftRepository(rdb, cfg.SessionTTL)

	// ─── Initialize Services ──────────────────────────────────────────
	autosaveQueue := make(chan model.AnswerDraft, cfg.AutosaveBuffer)
	examAPI := client.NewExamAPIClient(cfg.ExamAPIURL, cfg.ExamAPITimeout, log)
	sessionService := service.NewSessionService(
		examAPI,
		flagRepo,
		draftRepo,
		autosaveQueue,
		clockwork.NewRealClock(),
		service.TimerDurations{
			Teil13:    cfg.Teil13Seconds,
			Listening: cfg.ListeningSeconds,
			Writing:   cfg.WritingSeconds,
		},
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	submitLimiter := middleware.NewRateLimiter(clockwork.NewRealClock(), cfg.SubmitRateLimit, time.Minute, middleware.BySessionParam)
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(sessionService),
		WS:      handler.NewWSHandler(sessionService, submitLimiter, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(draftRepo, autosaveQueue, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		autosaveWorker.Start(workerCtx)
	}()

	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				submitLimiter.Cleanup()
			}
		}
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, submitLimiter, cfg, log)

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

	// 1. Stop accepting new HTTP requests (5s timeout). Hijacked WebSocket
	// connections end when their session closes below.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop every clock and clear the in-progress flags.
	sessionService.Shutdown()

	// 3. Stop the autosave worker and wait for the queue to drain.
	workerCancel()
	<-workerDone

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
