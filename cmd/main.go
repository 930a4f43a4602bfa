package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arenalink/tournament-platform/config"
	"github.com/arenalink/tournament-platform/db"
	"github.com/arenalink/tournament-platform/handlers"
	"github.com/arenalink/tournament-platform/live"
	"github.com/arenalink/tournament-platform/repositories"
	api "github.com/arenalink/tournament-platform/routes"
	"github.com/arenalink/tournament-platform/services"
	"github.com/arenalink/tournament-platform/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const schedulerInterval = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.RunMigrations(dbConn); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("Cloudflare R2 is not configured, media uploads are disabled")
	}

	wsHub := live.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	// Репозитории
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	slotRepo := repositories.NewPostgresSlotRepository(dbConn)
	auditRepo := repositories.NewPostgresAuditRepository(dbConn)
	txRunner := repositories.NewSQLTxRunner(dbConn)
	logger.Info("repositories initialized")

	// Сервисы
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo, uploader, logger)
	tournamentService := services.NewTournamentService(
		txRunner, tournamentRepo, groupRepo, slotRepo, auditRepo, uploader, logger)
	slotService := services.NewSlotService(
		txRunner, slotRepo, groupRepo, registrationRepo, tournamentRepo, auditRepo,
		uploader, wsHub, logger)
	registrationService := services.NewRegistrationService(
		txRunner, registrationRepo, playerRepo, tournamentRepo, userRepo, auditRepo,
		slotService, uploader, logger)
	auditService := services.NewAuditService(auditRepo)
	logger.Info("services initialized")

	// Планировщик продвижения статусов турниров по временным окнам.
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go func() {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		logger.Info("tournament status scheduler started", slog.Duration("interval", schedulerInterval))

		if _, err := tournamentService.SyncStatusesByWindows(schedulerCtx); err != nil {
			logger.Error("scheduler: initial run failed", slog.Any("error", err))
		}
		for {
			select {
			case <-ticker.C:
				if _, err := tournamentService.SyncStatusesByWindows(schedulerCtx); err != nil {
					logger.Error("scheduler: periodic run failed", slog.Any("error", err))
				}
			case <-schedulerCtx.Done():
				logger.Info("tournament status scheduler stopped")
				return
			}
		}
	}()

	// HTTP-обработчики
	h := api.Handlers{
		Auth:         handlers.NewAuthHandler(authService, cfg.JWTSecretKey, cfg.TokenTTL),
		User:         handlers.NewUserHandler(userService),
		Tournament:   handlers.NewTournamentHandler(tournamentService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		Slot:         handlers.NewSlotHandler(slotService),
		Audit:        handlers.NewAuditHandler(auditService),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, logger),
	}

	router := chi.NewRouter()
	api.SetupRoutes(router, h, cfg.JWTSecretKey, cfg.CORSAllowedOrigins)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stopScheduler()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
