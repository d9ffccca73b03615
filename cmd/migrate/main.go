package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/config"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/logger"
	"github.com/feral-file/ff-affiliate-migrator/internal/migrator"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/source/plugins"
	"github.com/feral-file/ff-affiliate-migrator/internal/store"
)

// app holds the dependencies shared by every subcommand
type app struct {
	configFile string
	envPath    string

	migration config.MigrationConfig
	store     store.Store
	registry  *source.Registry
	clock     adapter.Clock
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand(&app{}).ExecuteContext(ctx)
	stop()
	logger.Flush(2 * time.Second)

	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Migrate legacy WordPress affiliate plugin data",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&a.envPath, "env", "config/", "Path to environment files")

	rootCmd.AddCommand(
		runCommand(a),
		statusCommand(a),
		statsCommand(a),
		recountCommand(a),
	)

	return rootCmd
}

// open loads configuration and connects to both databases. It is a no-op when
// the dependencies were provided up front.
func (a *app) open(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	config.ChdirRepoRoot()
	cfg, err := config.LoadMigrateConfig(a.configFile, a.envPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Service:         "affiliate-migrator-cli",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := store.Connect(ctx, cfg.Database.Dialector(), store.ConnectOptions{
		Name:            "target",
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return err
	}

	wpDB := db
	if !cfg.SourceDatabase.SharesTarget(cfg.Database) {
		wpDB, err = store.Connect(ctx, cfg.SourceDatabase.Dialector(), store.ConnectOptions{
			Name:         "wordpress",
			MaxOpenConns: cfg.SourceDatabase.MaxOpenConns,
			MaxIdleConns: cfg.SourceDatabase.MaxIdleConns,
		})
		if err != nil {
			return err
		}
	}

	a.store = store.NewSQLStore(db)
	if err := a.store.AutoMigrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate target schema: %w", err)
	}

	a.migration = cfg.Migration
	a.clock = adapter.NewClock()
	a.registry = plugins.NewRegistry(source.NewWordPress(wpDB, cfg.SourceDatabase.TablePrefix), a.clock)

	logger.Debug("Connected",
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("shared_database", cfg.SourceDatabase.SharesTarget(cfg.Database)))

	return nil
}

// activeProvider returns the adapter of a source that is active on the WordPress install
func (a *app) activeProvider(ctx context.Context, value string) (source.Provider, error) {
	src, err := domain.ParseSource(value)
	if err != nil {
		return nil, err
	}
	provider, err := a.registry.Get(src)
	if err != nil {
		return nil, err
	}

	active, err := provider.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to detect %s: %w", src.DisplayName(), err)
	}
	if !active {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, src.DisplayName())
	}
	return provider, nil
}

func (a *app) engineConfig() migrator.Config {
	return migrator.Config{
		BatchSize:        a.migration.BatchSize,
		RecountChunkSize: a.migration.RecountChunkSize,
		Workers:          a.migration.Workers,
	}
}
