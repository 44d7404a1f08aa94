package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/meridianerp/policyflow/internal/api/rest"
	"github.com/meridianerp/policyflow/internal/api/rest/handlers"
	"github.com/meridianerp/policyflow/internal/engine"
	"github.com/meridianerp/policyflow/internal/repository/postgres"
	"github.com/meridianerp/policyflow/internal/services"
	"github.com/meridianerp/policyflow/internal/workers"
	"github.com/meridianerp/policyflow/pkg/auth"
	"github.com/meridianerp/policyflow/pkg/config"
	"github.com/meridianerp/policyflow/pkg/database"
	"github.com/meridianerp/policyflow/pkg/logger"
	"github.com/meridianerp/policyflow/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	logger.SetDefault(log)
	log.Info("Starting PolicyFlow API",
		logger.String("version", cfg.App.Version),
		logger.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL
	db, err := database.NewPostgresDB(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize Redis
	redis, err := database.NewRedisClient(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redis.Close()

	// Prometheus registry
	m := metrics.New()

	// Initialize repositories
	docRepo := postgres.NewDocumentRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	rulesetRepo := postgres.NewRuleSetRepository(db)

	// Initialize engine components
	ruleStore := engine.NewSnapshotStore(log)
	decider := engine.NewDecider(ruleStore, log)
	machine := engine.NewStateMachine()

	// Initialize services
	ruleService := services.NewRuleService(rulesetRepo, ruleStore, redis, m, log)
	auditService := services.NewAuditService(auditRepo, redis, cfg.Audit.QueueKey, m, log)

	coordinator := engine.NewCoordinator(machine, decider, ruleStore, docRepo, auditService, m, log, engine.CoordinatorConfig{
		AuditTimeout: cfg.Audit.WriteTimeout,
		WarnAmount:   cfg.Engine.WarnAmount,
		CritAmount:   cfg.Engine.CritAmount,
	})
	docService := services.NewDocumentService(docRepo, coordinator, cfg.Engine.DenyAmountLimit, log)

	// Seed the active rule set from storage; an empty store is a valid start,
	// every decision is then a default allow.
	if err := ruleService.Reload(context.Background()); err != nil && !errors.Is(err, postgres.ErrNoRuleSet) {
		log.Warn("Could not load stored rule set, starting empty", logger.Err(err))
	}

	// Initialize token manager
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		if cfg.App.Environment == "production" {
			return fmt.Errorf("JWT_SECRET environment variable must be set in production")
		}
		jwtSecret = "default-secret-change-this-in-production"
		log.Warn("JWT_SECRET not set, using default (INSECURE - only for development)")
	}
	tokens := auth.NewTokenManager(jwtSecret)

	// Start background workers
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	drainWorker := workers.NewAuditDrainWorker(auditService, log, cfg.Audit.DrainInterval, cfg.Audit.DrainBatch)
	drainWorker.Start(workerCtx)

	reloadWorker := workers.NewRuleReloadWorker(ruleService, log, cfg.Engine.RuleReloadInterval)
	reloadWorker.Start(workerCtx)

	// Initialize handlers
	h := handlers.NewHandlers(
		log,
		decider,
		docService,
		ruleService,
		auditService,
		m,
		&handlers.HealthCheckers{
			DB:    db,
			Redis: redis,
		},
		cfg.App.Version,
	)

	// Initialize router
	router := rest.NewRouter(log, h, tokens, m)
	router.SetupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("API server listening", logger.String("address", addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", logger.String("signal", sig.String()))

		// Stop background workers first
		drainWorker.Stop()
		reloadWorker.Stop()

		// Give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
