package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/folkops/opsboard/config"
	"github.com/folkops/opsboard/internal/legacy"
	"github.com/folkops/opsboard/internal/localstore"
	"github.com/folkops/opsboard/internal/logging"
	"github.com/folkops/opsboard/internal/models"
	"github.com/folkops/opsboard/internal/registry"
	"github.com/folkops/opsboard/internal/repository"
	"github.com/folkops/opsboard/internal/server"
	"github.com/folkops/opsboard/internal/service"
	"github.com/folkops/opsboard/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "opsboard",
		Short:         "Order sheet dashboard: HTTP API, terminal grid and legacy sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newGridCmd(), newSyncCmd())
	return root
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			srv, err := server.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			go watchConfig(ctx, cfg, logger)
			return srv.Run(ctx)
		},
	}
}

// watchConfig hot-reloads log-level style settings. Structural settings
// (addresses, DSNs) need a restart.
func watchConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	watcher, err := config.NewWatcher(cfg, logger, func(fresh *config.Config) {
		logger.Info("settings updated", zap.String("log_level", fresh.LogLevel))
	})
	if err != nil {
		logger.Debug("config watcher disabled", zap.Error(err))
		return
	}
	go watcher.Watch()
	<-ctx.Done()
	watcher.Close()
}

func newGridCmd() *cobra.Command {
	var asUser string

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Open the orders sheet in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(&models.Order{}); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			reg := registry.Orders()
			orderRepo := repository.NewOrderRepository(db, reg)
			store := service.NewOrderService(orderRepo, asUser, logger)

			local, err := localstore.Default()
			if err != nil {
				return fmt.Errorf("open local store: %w", err)
			}

			model, err := tui.New(tui.Options{
				Store:        store,
				Local:        local,
				Registry:     reg,
				Logger:       logger,
				PageSize:     local.LoadPageSize(),
				PageSizePref: local,
				ColumnsPref:  local,
				FlushDelay:   cfg.FlushDelay,
				Bulk:         cfg.BulkThreshold,
				HistoryLimit: cfg.HistoryLimit,
			})
			if err != nil {
				return err
			}

			program := tea.NewProgram(model, tea.WithAltScreen())
			_, err = program.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&asUser, "as", "tui", "username stamped on writes")
	return cmd
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Mirror the legacy spreadsheet API into Postgres once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.LegacyBaseURL == "" {
				return fmt.Errorf("LEGACY_API_URL is required")
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(&models.Order{}); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			reg := registry.Orders()
			orderRepo := repository.NewOrderRepository(db, reg)
			client := legacy.New(cfg.LegacyBaseURL, cfg.LegacyToken)
			syncService := service.NewSyncService(client, orderRepo, logger)

			ctx, cancel := signalContext()
			defer cancel()

			stats, err := syncService.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("synced %d rows across %d pages in %s (%d skipped)\n",
				stats.Upserted, stats.Pages, stats.Duration.Round(time.Millisecond), stats.Skipped)
			return nil
		},
	}
}
