package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/automax/grievance-backend/internal/classifier"
	"github.com/automax/grievance-backend/internal/config"
	"github.com/automax/grievance-backend/internal/database"
	"github.com/automax/grievance-backend/internal/handlers"
	"github.com/automax/grievance-backend/internal/middleware"
	"github.com/automax/grievance-backend/internal/repository"
	"github.com/automax/grievance-backend/internal/services"
	"github.com/automax/grievance-backend/internal/storage"
	"github.com/automax/grievance-backend/pkg/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

// runServe starts the server. Unreachable dependencies are logged and the
// server still comes up so that /health can report them.
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		repo      repository.GrievanceRepository
		dbPinger  services.Pinger
		cache     services.ListCache
		cachePing services.Pinger
		store     services.ObjectStore
		storePing services.Pinger
	)

	if db := openDatabase(cfg, logger); db != nil {
		defer database.Close(db)
		repo = repository.NewGrievanceRepository(db)
		dbPinger = services.PingFunc(func(ctx context.Context) error { return database.Ping(ctx, db) })
	}

	if cfg.Redis.Enabled {
		client, err := database.ConnectRedis(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, listing cache disabled", zap.Error(err))
		} else {
			defer database.CloseRedis(client)
			c := database.NewCache(client, "grievance:")
			cache, cachePing = c, c
		}
	}

	if cfg.MinIO.Enabled {
		s, err := storage.NewMinIOStorage(ctx, &cfg.MinIO, logger)
		if err != nil {
			logger.Warn("MinIO unavailable, attachments disabled", zap.Error(err))
		} else {
			store, storePing = s, s
		}
	}

	var generator classifier.TextGenerator
	if cfg.AI.Enabled {
		gen, err := newGenerator(ctx, &cfg.AI)
		if err != nil {
			logger.Warn("Model client unavailable, keyword rules only", zap.Error(err))
		} else {
			generator = gen
			logger.Info("Model client ready", zap.String("model", gen.Model()), zap.Bool("vertex", cfg.AI.UseVertex()))
		}
	}

	pipeline := classifier.NewPipeline(
		classifier.NewPrimaryClassifier(generator, cfg.AI.Timeout),
		logger,
		services.ClassificationMetrics{},
	)

	grievanceService := services.NewGrievanceService(repo, pipeline, cache, cfg.Redis.CacheTTL, store, logger)
	healthService := services.NewHealthService(serviceName, dbPinger, pipeline.Model(), cachePing, storePing)

	if repo != nil {
		monitor := services.NewEscalationMonitor(repo, cfg.Monitor.Interval, cfg.Monitor.EscalationAfter, logger)
		monitor.Start(ctx)
		defer monitor.Stop()
	}

	var jwtManager *utils.JWTManager
	if cfg.JWT.Secret != "" {
		jwtManager = utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpireHour)
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, cfg.JWT.MinTokenLength)
	if !authMiddleware.Verifies() {
		logger.Warn("JWT_SECRET not set, bearer tokens are only checked for length",
			zap.Int("min_token_length", cfg.JWT.MinTokenLength))
	}

	app := newApp(cfg)
	handlers.SetupRoutes(app,
		handlers.NewGrievanceHandler(grievanceService),
		handlers.NewHealthHandler(healthService, version),
		authMiddleware,
	)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", addr), zap.String("version", version))
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	logger.Info("Server exited")
	return nil
}

func newApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      serviceName,
		BodyLimit:    handlers.BodyLimit,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, OPTIONS",
	}))
	app.Use(middleware.Metrics(middleware.MetricsConfig{
		SkipPaths: []string{"/metrics"},
	}))
	return app
}

// openDatabase connects and migrates. It returns nil when either step fails.
func openDatabase(cfg *config.Config, log *zap.Logger) *gorm.DB {
	db, err := database.Connect(&cfg.Database, log)
	if err != nil {
		log.Error("Database unavailable, grievance endpoints will return 503", zap.Error(err))
		return nil
	}
	if err := database.Migrate(db, log); err != nil {
		log.Error("Failed to run migrations", zap.Error(err))
		database.Close(db)
		return nil
	}
	return db
}

func newGenerator(ctx context.Context, ai *config.AIConfig) (*classifier.GeminiGenerator, error) {
	if ai.APIKey == "" && ai.Project == "" {
		return nil, errors.New("neither GEMINI_API_KEY nor GOOGLE_CLOUD_PROJECT is set")
	}
	return classifier.NewGeminiGenerator(ctx, classifier.GeminiOptions{
		APIKey:   ai.APIKey,
		Project:  ai.Project,
		Location: ai.Location,
		Model:    ai.Model,
	})
}
