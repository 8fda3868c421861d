package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"echolog/api/internal/asr"
	"echolog/api/internal/cache"
	"echolog/api/internal/config"
	"echolog/api/internal/database"
	"echolog/api/internal/email"
	"echolog/api/internal/handlers"
	"echolog/api/internal/jobs"
	"echolog/api/internal/llm"
	"echolog/api/internal/log"
	"echolog/api/internal/repository"
	"echolog/api/internal/server"
	"echolog/api/internal/service"
	"echolog/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if err := database.EnsureSchema(ctx, dbPool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	users := repository.NewUserRepository(dbPool)
	guests := repository.NewGuestRepository(dbPool)
	recordings := repository.NewRecordingRepository(dbPool)
	transcripts := repository.NewTranscriptRepository(dbPool)
	analyses := repository.NewAnalysisRepository(dbPool)

	asrClient := asr.NewHTTPClient(cfg.ASR)
	llmClient := llm.NewHTTPClient(cfg.LLM)
	mailer := email.NewMailer(cfg.SMTP, logger)

	authSvc := service.NewAuthService(users, cfg.Auth, logger)
	usageSvc := service.NewUsageService(users, guests, cfg.Auth.GuestFreeQuota, logger)
	resolver := service.NewIdentityResolver(authSvc, usageSvc)
	recordingSvc := service.NewRecordingService(recordings, objectStore, logger)
	transcribeSvc := service.NewTranscribeService(recordings, transcripts, objectStore, asrClient, redisClient, cfg.ASR.Model, logger)
	analysisSvc := service.NewAnalysisService(analyses, transcripts, llmClient, logger)
	qaSvc := service.NewQAService(recordings, transcripts, llmClient, logger)

	if cfg.Auth.AdminPassword != "" {
		if _, err := authSvc.EnsureAdmin(ctx); err != nil {
			logger.Error().Err(err).Msg("admin bootstrap failed")
		}
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Services{
		Auth:       authSvc,
		Usage:      usageSvc,
		Resolver:   resolver,
		Recordings: recordingSvc,
		Transcribe: transcribeSvc,
		Analysis:   analysisSvc,
		QA:         qaSvc,
	}, objectStore, mailer, dbPool, redisClient)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(redisClient, recordings, transcribeSvc, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		cancel := scheduler.Stop()
		cancel()
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
