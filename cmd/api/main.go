package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/api/middleware"
	"github.com/feral-file/ff-affiliate-migrator/internal/api/server"
	"github.com/feral-file/ff-affiliate-migrator/internal/api/shared/executor"
	"github.com/feral-file/ff-affiliate-migrator/internal/config"
	"github.com/feral-file/ff-affiliate-migrator/internal/logger"
	"github.com/feral-file/ff-affiliate-migrator/internal/metrics"
	"github.com/feral-file/ff-affiliate-migrator/internal/migrator"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/source/plugins"
	"github.com/feral-file/ff-affiliate-migrator/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Service:         "affiliate-migrator-api",
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting affiliate migration API")

	// Connect to the target database
	db, err := store.Connect(ctx, cfg.Database.Dialector(), store.ConnectOptions{
		Name:            "target",
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)

	// Connect to WordPress, reusing the target pool when the tables share a database
	wpDB := db
	if !cfg.SourceDatabase.SharesTarget(cfg.Database) {
		wpDB, err = connectWordPress(ctx, cfg.SourceDatabase)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to WordPress database", zap.Error(err), zap.String("host", cfg.SourceDatabase.Host))
		}
	}

	// Initialize store
	dataStore := store.NewSQLStore(db)
	if err := dataStore.AutoMigrate(ctx); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate target schema", zap.Error(err))
	}

	clock := adapter.NewClock()
	registry := plugins.NewRegistry(source.NewWordPress(wpDB, cfg.SourceDatabase.TablePrefix), clock)

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	migrationMetrics, err := metrics.NewMigrationMetrics(promRegistry)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to register metrics", zap.Error(err))
	}

	exec := executor.NewExecutor(executor.Config{
		Engine: migrator.Config{
			BatchSize:        cfg.Migration.BatchSize,
			RecountChunkSize: cfg.Migration.RecountChunkSize,
			Workers:          cfg.Migration.Workers,
		},
		MaxRunTime:    cfg.Migration.MaxRunTime,
		StatsCacheTTL: cfg.Migration.StatsCacheTTL,
	}, dataStore, registry, clock, migrationMetrics)

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
			Disabled:     cfg.Auth.Disabled,
		},
	}
	if serverConfig.Auth.Disabled {
		logger.WarnCtx(ctx, "Authentication is disabled, migration routes are open")
	}

	srv := server.New(serverConfig, exec, promRegistry, clock)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// A poll in flight commits its current batch before returning, so give it the full budget
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Migration.MaxRunTime+5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, fmt.Errorf("server forced to shutdown: %w", err))
	}

	logger.Info("API server stopped")
}

func connectWordPress(ctx context.Context, cfg config.SourceDatabaseConfig) (*gorm.DB, error) {
	return store.Connect(ctx, cfg.Dialector(), store.ConnectOptions{
		Name:            "wordpress",
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})
}
