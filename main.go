package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/auth"
	"github.com/vidmark-labs/vidmark-engine/pkg/config"
	"github.com/vidmark-labs/vidmark-engine/pkg/database"
	"github.com/vidmark-labs/vidmark-engine/pkg/handlers"
	"github.com/vidmark-labs/vidmark-engine/pkg/logging"
	"github.com/vidmark-labs/vidmark-engine/pkg/middleware"
	"github.com/vidmark-labs/vidmark-engine/pkg/repositories"
	"github.com/vidmark-labs/vidmark-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	rdb, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService)
	scoped := database.WithScope(db, logger)

	// Repositories
	userRepo := repositories.NewUserRepository()
	scientistRepo := repositories.NewScientistRepository()
	labelerRepo := repositories.NewLabelerRepository()
	projectRepo := repositories.NewProjectRepository()
	subjectRepo := repositories.NewSubjectRepository()
	videoGroupRepo := repositories.NewVideoGroupRepository()
	videoRepo := repositories.NewVideoRepository()
	labelRepo := repositories.NewLabelRepository()
	assignmentRepo := repositories.NewAssignmentRepository()
	assignedLabelRepo := repositories.NewAssignedLabelRepository()
	accessCodeRepo := repositories.NewAccessCodeRepository()
	eventRepo := repositories.NewEventRepository()

	// Services
	accessContext := services.NewAccessContextService(scientistRepo, labelerRepo, logger)
	eventService := services.NewDomainEventService(eventRepo, logger)
	ownership := services.NewOwnershipService(accessContext, projectRepo, subjectRepo,
		videoGroupRepo, videoRepo, labelRepo, assignmentRepo, logger)
	labelerAccess := services.NewLabelerAccessService(accessContext, assignmentRepo,
		videoRepo, assignedLabelRepo, logger)
	accessCodes := services.NewAccessCodeService(projectRepo, accessCodeRepo, eventService, ownership, logger)
	membership := services.NewMembershipService(labelerAccess, ownership, projectRepo,
		subjectRepo, assignmentRepo, accessCodeRepo, eventService, logger)
	projectService := services.NewProjectService(accessContext, ownership, projectRepo,
		eventService, logger)
	userService := services.NewUserService(userRepo, scientistRepo, labelerRepo, logger)

	dispatcher := services.NewEventDispatcher(db, eventRepo,
		&services.LogDeliverer{Logger: logger}, rdb, &cfg.Dispatcher, logger)
	go dispatcher.Run(ctx)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewProjectHandler(projectService, membership, accessContext, logger).
		RegisterRoutes(mux, authMiddleware, scoped)
	handlers.NewAccessCodeHandler(accessCodes, ownership, accessContext, logger).
		RegisterRoutes(mux, authMiddleware, scoped)
	handlers.NewAssignmentHandler(membership, labelerAccess, ownership, accessContext, logger).
		RegisterRoutes(mux, authMiddleware, scoped)
	handlers.NewUserHandler(userService, logger).
		RegisterRoutes(mux, authMiddleware, scoped)

	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.BindAddr + ":" + cfg.Port,
		Handler:      middleware.RequestLogger(logger)(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Starting vidmark-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
