// Package server wires the database, services, handlers and background
// jobs into one runnable HTTP application.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/folkops/opsboard/api/handlers"
	"github.com/folkops/opsboard/config"
	"github.com/folkops/opsboard/internal/jobs"
	"github.com/folkops/opsboard/internal/legacy"
	"github.com/folkops/opsboard/internal/models"
	"github.com/folkops/opsboard/internal/registry"
	"github.com/folkops/opsboard/internal/repository"
	"github.com/folkops/opsboard/internal/service"
)

// Server is the assembled HTTP application.
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *gorm.DB
	http      *http.Server
	scheduler *jobs.Scheduler
}

// New opens the database, runs migrations, bootstraps the admin account
// and builds the full handler stack.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.ColumnPermission{},
		&models.Order{},
		&models.Report{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	reg := registry.Orders()

	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db, reg)
	reportRepo := repository.NewReportRepository(db)

	authService := service.NewAuthService(userRepo, cfg, logger)
	orderService := service.NewOrderService(orderRepo, "system", logger)
	reportService := service.NewReportService(reportRepo, logger)

	if _, err := authService.BootstrapDefaultAdmin(); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	router := mux.NewRouter()
	router.Use(handlers.LoggingMiddleware(logger))

	handlers.NewAuthHandler(authService, logger).RegisterRoutes(router)
	handlers.NewOrderHandler(orderService, authService, reg, logger).RegisterRoutes(router)
	handlers.NewReportHandler(reportService, authService, logger).RegisterRoutes(router)

	scheduler := jobs.NewScheduler(logger)
	if cfg.LegacyBaseURL != "" {
		legacyClient := legacy.New(cfg.LegacyBaseURL, cfg.LegacyToken)
		syncService := service.NewSyncService(legacyClient, orderRepo, logger)
		scheduler.Register(jobs.NewSyncOrdersJob(syncService), cfg.SyncInterval)
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		db:     db,
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		scheduler: scheduler,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully. Background jobs run for the lifetime of the context.
func (s *Server) Run(ctx context.Context) error {
	s.scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.scheduler.Wait()

	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
	return nil
}
