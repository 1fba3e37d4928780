package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prepaconcours/prepa-backend/internal/config"
	"github.com/prepaconcours/prepa-backend/internal/database"
	"github.com/prepaconcours/prepa-backend/internal/handler"
	"github.com/prepaconcours/prepa-backend/internal/logger"
	"github.com/prepaconcours/prepa-backend/internal/middleware"
	"github.com/prepaconcours/prepa-backend/internal/repository"
	"github.com/prepaconcours/prepa-backend/internal/router"
	"github.com/prepaconcours/prepa-backend/internal/service"
	"github.com/prepaconcours/prepa-backend/internal/session"
	"github.com/prepaconcours/prepa-backend/internal/validator"
	"github.com/prepaconcours/prepa-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("persist_mode", cfg.PersistMode).
		Msg("Starting Prepa Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to the Store ──────────────────────────────────────────
	stores, err := repository.OpenStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer stores.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	draftService := service.NewDraftService(rdb, cfg.ExamDuration)
	questionService := service.NewQuestionService(stores.Questions, rdb, cfg.QuestionCacheTTL, log)
	attemptService := service.NewAttemptService(stores.Attempts, draftService, log)

	var (
		recorder  session.Recorder
		integrity service.IntegrityRecorder
	)
	switch cfg.PersistMode {
	case config.PersistModeDirect:
		recorder = attemptService
		integrity = service.NewDirectIntegrity(stores.Integrity)
	default:
		queue := service.NewPersistQueue(rdb)
		recorder = queue
		integrity = queue
	}

	sessionService := service.NewExamSessionService(
		questionService,
		recorder,
		integrity,
		draftService,
		session.Config{
			Duration:           cfg.ExamDuration,
			IntegrityThreshold: cfg.IntegrityThreshold,
			AutosaveInterval:   cfg.AutosaveInterval,
			PersistTimeout:     cfg.PersistTimeout,
		},
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Review: handler.NewReviewHandler(attemptService, draftService),
		WS:     handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		System: handler.NewSystemHandler(stores.Ping, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	if cfg.PersistMode == config.PersistModeQueue {
		attemptWorker := worker.NewAttemptWorker(stores.Attempts, rdb, log)
		integrityWorker := worker.NewIntegrityWorker(stores.Integrity, rdb, log)

		workers.Add(2)
		go func() { defer workers.Done(); attemptWorker.Start(workerCtx) }()
		go func() { defer workers.Done(); integrityWorker.Start(workerCtx) }()
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	limiter := middleware.NewRateLimiter(120, time.Minute)
	defer limiter.Close()

	r := router.SetupRouter(authService, handlers, limiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	// 1. Stop accepting new HTTP requests. Hijacked WebSockets are not
	// tracked by Shutdown; their sessions are abandoned when the process exits.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for their final flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
