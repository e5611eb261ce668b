package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lumiprep/session-service/internal/cache"
	"github.com/lumiprep/session-service/internal/config"
	"github.com/lumiprep/session-service/internal/handlers"
	"github.com/lumiprep/session-service/internal/models"
	"github.com/lumiprep/session-service/internal/repositories/postgres"
	"github.com/lumiprep/session-service/internal/services"
	"github.com/lumiprep/session-service/internal/validator"
	"github.com/lumiprep/session-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Environment == "development" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("Starting session service",
		"environment", cfg.Environment,
		"port", cfg.Port)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(&models.Assignment{}, &models.Question{}, &models.Result{}); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// Repositories
	assignmentRepo := postgres.NewAssignmentPostgreSQL(db)
	questionRepo := postgres.NewQuestionPostgreSQL(db)
	resultRepo := postgres.NewResultPostgreSQL(db)

	// Services
	v := validator.New()
	progressStore := cache.NewRedisProgressStore(
		redisClient,
		time.Duration(cfg.ProgressTTLSec)*time.Second,
		logger,
	)
	assignmentService := services.NewAssignmentService(assignmentRepo, questionRepo, logger, v)
	sourceService := services.NewQuestionSourceService(assignmentRepo, questionRepo, logger, v)
	sessionService := services.NewSessionService(
		assignmentRepo,
		resultRepo,
		sourceService,
		progressStore,
		publisher,
		v,
		logger,
	)

	// HTTP layer
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handlerManager := handlers.NewHandlerManager(
		sessionService,
		assignmentService,
		sourceService,
		questionRepo,
		resultRepo,
		logger,
	)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
