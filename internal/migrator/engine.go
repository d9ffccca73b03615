// Package migrator moves legacy affiliate plugin data into the target tables
// in resumable batches, then links and recounts the migrated rows.
package migrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/logger"
	"github.com/feral-file/ff-affiliate-migrator/internal/metrics"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/store"
)

// Config holds engine configuration
type Config struct {
	BatchSize        int // Source rows read per batch
	RecountChunkSize int // Affiliates recounted between budget checks
	Workers          int // Concurrent lookups and recounts within a chunk
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = domain.DEFAULT_BATCH_SIZE
	}
	if c.RecountChunkSize <= 0 {
		c.RecountChunkSize = domain.DEFAULT_RECOUNT_CHUNK_SIZE
	}
	if c.Workers <= 0 {
		c.Workers = domain.DEFAULT_WORKERS
	}
	return c
}

// Engine runs the stage migrators of one source
type Engine struct {
	config    Config
	store     store.Store
	provider  source.Provider
	clock     adapter.Clock
	metrics   *metrics.MigrationMetrics
	linker    *Linker
	recounter *Recounter
}

// NewEngine creates a migration engine for one source adapter
func NewEngine(config Config, st store.Store, provider source.Provider, clock adapter.Clock, m *metrics.MigrationMetrics) *Engine {
	config = config.withDefaults()
	return &Engine{
		config:    config,
		store:     st,
		provider:  provider,
		clock:     clock,
		metrics:   m,
		linker:    NewLinker(st, provider, clock, config.BatchSize, config.Workers, m),
		recounter: NewRecounter(st, clock, config.RecountChunkSize, config.Workers, m),
	}
}

// Source returns the source this engine migrates
func (e *Engine) Source() domain.Source {
	return e.provider.Source()
}

// Run processes batches from the persisted cursor until the migration completes or
// maxRunTime elapses. A zero maxRunTime runs to completion. The returned status is
// the persisted document; on failure it carries the error in LastError.
func (e *Engine) Run(ctx context.Context, maxRunTime time.Duration) (*domain.MigrationStatus, error) {
	src := e.provider.Source()
	deadline := newBudget(e.clock, maxRunTime)

	status, err := e.store.GetMigrationStatus(ctx, src)
	if err != nil {
		return nil, err
	}
	if !status.CurrentStage.Valid() {
		return status, fmt.Errorf("%w: %q", domain.ErrUnknownStage, status.CurrentStage)
	}

	run := logger.RunInfo{Source: string(src), RunID: status.RunID}
	log := logger.ForRun(ctx, run)
	ctx = logger.WithFields(logger.WithRun(ctx, run), run.Fields()...)

	for !status.Completed() {
		if err := ctx.Err(); err != nil {
			return status, err
		}

		stage := status.CurrentStage
		started := e.clock.Now()

		result, err := e.migrateBatch(ctx, status)
		if err != nil {
			return e.fail(ctx, status, stage, err)
		}

		for _, s := range result.skipped {
			log.Warn("skipped source row",
				zap.String("stage", string(stage)),
				zap.Int64("source_id", s.ID),
				zap.String("reason", s.Reason))
		}

		if result.fetched > 0 {
			e.metrics.RecordBatch(string(src), string(stage), result.fetched, len(result.skipped), e.clock.Since(started))
			log.Debug("batch migrated",
				zap.String("stage", string(stage)),
				zap.Int("fetched", result.fetched),
				zap.Int64("inserted", result.inserted),
				zap.Int("cursor", status.Cursor(stage)))
		}

		// a short page means the source has no more rows for the stage
		if result.fetched < e.config.BatchSize {
			done, err := e.finishStage(ctx, status, deadline)
			if err != nil {
				return e.fail(ctx, status, stage, err)
			}
			if !done {
				return status, nil
			}
			e.metrics.RecordStageCompleted(string(src), string(stage))
			log.Info("stage completed",
				zap.String("stage", string(stage)),
				zap.Int("migrated", status.Cursor(stage)),
				zap.String("next", string(status.CurrentStage)))
		}

		if deadline.exceeded() {
			return status, nil
		}
	}

	return status, nil
}

// finishStage moves the status past an exhausted stage. Leaving visits runs the
// linker and the earnings recount first, both resumable; done is false when
// either yielded to the budget.
func (e *Engine) finishStage(ctx context.Context, status *domain.MigrationStatus, deadline budget) (bool, error) {
	if status.CurrentStage == domain.StageVisits {
		if !status.Linked() {
			done, err := e.linker.Resume(ctx, status, deadline)
			if err != nil || !done {
				return false, err
			}
			if deadline.exceeded() {
				return false, nil
			}
		}
		if err := e.store.SyncSequences(ctx); err != nil {
			return false, err
		}

		done, err := e.recounter.Run(ctx, e.provider.Source(), status, deadline)
		if err != nil || !done {
			return false, err
		}
	}

	next := status.Clone()
	next.CurrentStage = status.CurrentStage.Next()
	now := e.clock.Now().UTC()
	if status.CurrentStage == domain.StageVisits {
		next.RecountCursor = 0
		next.LinkPass, next.LinkCursor, next.LinkCursorAt = "", 0, nil
		next.CompletedAt = &now
	}
	next.UpdatedAt = &now
	next.LastError = ""

	saved, err := e.store.UpdateMigrationStatus(ctx, e.provider.Source(), next, false)
	if err != nil {
		return false, err
	}
	*status = *saved
	return true, nil
}

// fail records the error on the status document and wraps it as a batch failure
func (e *Engine) fail(ctx context.Context, status *domain.MigrationStatus, stage domain.Stage, cause error) (*domain.MigrationStatus, error) {
	src := e.provider.Source()
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return status, cause
	}

	e.metrics.RecordBatchFailure(string(src), string(stage))
	logger.ErrorCtx(ctx, fmt.Errorf("migration batch failed: %w", cause),
		zap.String("stage", string(stage)),
		zap.Int("cursor", status.Cursor(stage)))

	failed := status.Clone()
	failed.LastError = cause.Error()
	now := e.clock.Now().UTC()
	failed.UpdatedAt = &now
	if saved, err := e.store.UpdateMigrationStatus(ctx, src, failed, false); err == nil {
		*status = *saved
	} else {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to record migration error: %w", err))
		*status = *failed
	}

	return status, fmt.Errorf("%w: %s: %w", domain.ErrBatchFailed, stage, cause)
}

// budget tracks the cooperative time limit of one poll
type budget struct {
	clock   adapter.Clock
	started time.Time
	limit   time.Duration
}

func newBudget(clock adapter.Clock, limit time.Duration) budget {
	return budget{clock: clock, started: clock.Now(), limit: limit}
}

func (b budget) exceeded() bool {
	return b.limit > 0 && b.clock.Since(b.started) >= b.limit
}
