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

	"github.com/Dosada05/prediction-league/cache"
	"github.com/Dosada05/prediction-league/config"
	"github.com/Dosada05/prediction-league/db"
	"github.com/Dosada05/prediction-league/handlers"
	"github.com/Dosada05/prediction-league/live"
	"github.com/Dosada05/prediction-league/repositories"
	api "github.com/Dosada05/prediction-league/routes"
	"github.com/Dosada05/prediction-league/services"
	"github.com/Dosada05/prediction-league/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Duration("scoring_interval", cfg.ScoringInterval),
		slog.Int("scoring_workers", cfg.ScoringWorkers),
		slog.Int("max_points", cfg.Rules.MaxPoints()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, db.DefaultPoolConfig(), 5*time.Second, logger)
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
	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	healthChecks := map[string]handlers.HealthCheck{
		"postgres": dbConn.PingContext,
	}

	// Кэш таблицы лидеров (Redis) не обязателен
	var leaderboardCache services.LeaderboardCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer rdb.Close()
		leaderboardCache = cache.NewRedisLeaderboardCache(rdb, cfg.LeaderboardCacheTTL)
		healthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info("redis leaderboard cache enabled", slog.Duration("ttl", cfg.LeaderboardCacheTTL))
	}

	// Публикация снимков таблицы в Cloudflare R2
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
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
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(logger)
	go wsHub.Run(ctx)

	// Инициализация репозиториев
	transactor := repositories.NewPostgresTransactor(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	predictionRepo := repositories.NewPostgresPredictionRepository(dbConn)
	contestantRepo := repositories.NewPostgresContestantRepository(dbConn)
	streakRepo := repositories.NewPostgresStreakRepository(dbConn)
	leaderboardRepo := repositories.NewPostgresLeaderboardRepository(dbConn)

	// Инициализация сервисов
	leaderboardService := services.NewLeaderboardService(leaderboardRepo, leaderboardCache, uploader, logger)
	scoringService := services.NewScoringService(
		transactor,
		matchRepo,
		predictionRepo,
		contestantRepo,
		streakRepo,
		leaderboardService,
		wsHub,
		cfg.Rules,
		services.ScoringOptions{
			Timeout: cfg.ScoringTimeout,
			Workers: cfg.ScoringWorkers,
			Batch:   cfg.ScoringBatch,
		},
		logger,
	)
	matchService := services.NewMatchService(transactor, matchRepo, predictionRepo, contestantRepo, wsHub, logger)
	predictionService := services.NewPredictionService(predictionRepo, matchRepo, contestantRepo, logger)
	contestantService := services.NewContestantService(contestantRepo, leaderboardService, logger)
	logger.Info("services initialized")

	// Планировщик подсчета очков
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		runScoringScheduler(ctx, scoringService, cfg.ScoringInterval, logger)
	}()

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Match:       handlers.NewMatchHandler(matchService, scoringService),
		Contestant:  handlers.NewContestantHandler(contestantService, predictionService),
		Prediction:  handlers.NewPredictionHandler(predictionService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
		Health:      handlers.NewHealthHandler(healthChecks),
	}, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.ScoringTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
			<-schedulerDone
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}

	<-schedulerDone
	logger.Info("application exited")
}

// runScoringScheduler scores finished matches once at startup and then on every tick.
func runScoringScheduler(ctx context.Context, svc services.ScoringService, interval time.Duration, logger *slog.Logger) {
	logger = logger.With(slog.String("component", "scheduler"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("scoring scheduler started", slog.Duration("interval", interval))

	for {
		scored, err := svc.ScorePendingMatches(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Error("scoring run finished with errors", slog.Int("matches_scored", scored), slog.Any("error", err))
		} else if scored > 0 {
			logger.Info("scoring run finished", slog.Int("matches_scored", scored))
		}

		select {
		case <-ctx.Done():
			logger.Info("scoring scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
