package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/api/shared/constants"
	"github.com/feral-file/ff-affiliate-migrator/internal/api/shared/dto"
	apierrors "github.com/feral-file/ff-affiliate-migrator/internal/api/shared/errors"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/logger"
	"github.com/feral-file/ff-affiliate-migrator/internal/metrics"
	"github.com/feral-file/ff-affiliate-migrator/internal/migrator"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/store"
)

// Executor is the interface for the API executor
//
//go:generate mockgen -source=executor.go -destination=../../../mocks/mock_api_executor.go -package=mocks -mock_names=Executor=MockAPIExecutor
type Executor interface {
	// GetAvailableMigrations lists the legacy plugins active on the WordPress install
	GetAvailableMigrations(ctx context.Context) (*dto.AvailableMigrationsResponse, error)

	// GetMigrationStatistics compares source row counts with migrated row counts
	GetMigrationStatistics(ctx context.Context, src domain.Source) (*dto.MigrationStatisticsResponse, error)

	// StartMigration positions the source at the first stage, truncating migrated data first when reset is set
	StartMigration(ctx context.Context, src domain.Source, reset bool) (*dto.MigrationStatusResponse, error)

	// GetPollingStatus processes batches until the run time budget is spent and returns the progress
	GetPollingStatus(ctx context.Context, src domain.Source) (*dto.MigrationStatusResponse, error)
}

// Config holds executor configuration
type Config struct {
	Engine        migrator.Config
	MaxRunTime    time.Duration // Budget of one polling request
	StatsCacheTTL time.Duration // How long source counts are reused
}

type executor struct {
	config   Config
	store    store.Store
	registry *source.Registry
	clock    adapter.Clock
	metrics  *metrics.MigrationMetrics
	counts   *cache.Cache
	locks    map[domain.Source]*sync.Mutex
}

func NewExecutor(config Config, store store.Store, registry *source.Registry, clock adapter.Clock, m *metrics.MigrationMetrics) Executor {
	if config.MaxRunTime <= 0 {
		config.MaxRunTime = constants.DEFAULT_MAX_RUN_TIME
	}
	if config.StatsCacheTTL <= 0 {
		config.StatsCacheTTL = constants.DEFAULT_STATS_CACHE_TTL
	}

	locks := make(map[domain.Source]*sync.Mutex)
	for _, src := range domain.Sources() {
		locks[src] = &sync.Mutex{}
	}

	return &executor{
		config:   config,
		store:    store,
		registry: registry,
		clock:    clock,
		metrics:  m,
		counts:   cache.New(config.StatsCacheTTL, 2*config.StatsCacheTTL),
		locks:    locks,
	}
}

func (e *executor) GetAvailableMigrations(ctx context.Context) (*dto.AvailableMigrationsResponse, error) {
	response := &dto.AvailableMigrationsResponse{Migrations: []dto.MigrationSummary{}}

	for _, provider := range e.registry.All() {
		active, err := provider.Detect(ctx)
		if err != nil {
			return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to detect %s: %v", provider.Source(), err))
		}
		if !active {
			continue
		}

		counts, err := e.sourceCounts(ctx, provider)
		if err != nil {
			return nil, err
		}
		status, err := e.store.GetMigrationStatus(ctx, provider.Source())
		if err != nil {
			return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get migration status: %v", err))
		}

		response.Migrations = append(response.Migrations, dto.MigrationSummary{
			Migrator:     provider.Source(),
			Name:         provider.Source().DisplayName(),
			Counts:       counts,
			CurrentStage: status.CurrentStage,
		})
	}

	return response, nil
}

func (e *executor) GetMigrationStatistics(ctx context.Context, src domain.Source) (*dto.MigrationStatisticsResponse, error) {
	provider, err := e.provider(src)
	if err != nil {
		return nil, err
	}

	counts, err := e.sourceCounts(ctx, provider)
	if err != nil {
		return nil, err
	}

	migrated, err := e.store.CountMigrated(ctx)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to count migrated rows: %v", err))
	}

	status, err := e.store.GetMigrationStatus(ctx, src)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get migration status: %v", err))
	}

	return &dto.MigrationStatisticsResponse{
		Migrator:       src,
		Name:           src.DisplayName(),
		SourceCounts:   counts,
		MigratedCounts: migrated,
		Status:         dto.NewMigrationStatusResponse(src, status),
	}, nil
}

func (e *executor) StartMigration(ctx context.Context, src domain.Source, reset bool) (*dto.MigrationStatusResponse, error) {
	provider, err := e.provider(src)
	if err != nil {
		return nil, err
	}

	active, err := provider.Detect(ctx)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to detect %s: %v", src, err))
	}
	if !active {
		return nil, apierrors.NewNotFoundError(domain.ErrSourceUnavailable.Error(), string(src))
	}

	lock := e.locks[src]
	if !lock.TryLock() {
		return nil, apierrors.NewConflictError(domain.ErrMigrationRunning.Error(), string(src))
	}
	defer lock.Unlock()

	if reset {
		if err := e.store.ResetMigration(ctx, src); err != nil {
			return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to reset migration: %v", err))
		}
		logger.InfoCtx(ctx, "migration data reset", zap.String("source", string(src)))
	}

	now := e.clock.Now().UTC()
	status := domain.NewMigrationStatus()
	status.RunID = uuid.New().String()
	status.StartedAt = &now
	status.UpdatedAt = &now

	saved, err := e.store.UpdateMigrationStatus(ctx, src, status, false)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to start migration: %v", err))
	}
	e.counts.Delete(string(src))

	logger.InfoCtx(ctx, "migration started",
		zap.String("source", string(src)),
		zap.String("run_id", saved.RunID),
		zap.Bool("reset", reset))

	return dto.NewMigrationStatusResponse(src, saved), nil
}

func (e *executor) GetPollingStatus(ctx context.Context, src domain.Source) (*dto.MigrationStatusResponse, error) {
	provider, err := e.provider(src)
	if err != nil {
		return nil, err
	}

	lock := e.locks[src]
	if !lock.TryLock() {
		return nil, apierrors.NewConflictError(domain.ErrMigrationRunning.Error(), string(src))
	}
	defer lock.Unlock()

	engine := migrator.NewEngine(e.config.Engine, e.store, provider, e.clock, e.metrics)
	status, err := engine.Run(ctx, e.config.MaxRunTime)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownStage):
			return nil, apierrors.NewMigrationError(domain.ErrUnknownStage.Error(), err.Error())
		case errors.Is(err, domain.ErrBatchFailed) && status != nil:
			// the poll stalls on the failed batch, the caller decides whether to retry
			response := dto.NewMigrationStatusResponse(src, status)
			response.Error = err.Error()
			return response, nil
		default:
			return nil, apierrors.NewInternalError("Failed to run migration", err.Error())
		}
	}

	return dto.NewMigrationStatusResponse(src, status), nil
}

// provider returns the adapter of a source
func (e *executor) provider(src domain.Source) (source.Provider, error) {
	provider, err := e.registry.Get(src)
	if err != nil {
		return nil, apierrors.NewBadRequestError(fmt.Sprintf("Unsupported migrator: %s", src))
	}
	return provider, nil
}

// sourceCounts returns the cached legacy row counts of a source
func (e *executor) sourceCounts(ctx context.Context, provider source.Provider) (domain.StageCounts, error) {
	key := string(provider.Source())
	if cached, ok := e.counts.Get(key); ok {
		return cached.(domain.StageCounts), nil
	}

	counts, err := provider.Counts(ctx)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to count %s rows: %v", provider.Source(), err))
	}

	e.counts.Set(key, counts, cache.DefaultExpiration)
	return counts, nil
}
