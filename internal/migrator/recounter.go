package migrator

import (
	"context"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/logger"
	"github.com/feral-file/ff-affiliate-migrator/internal/metrics"
	"github.com/feral-file/ff-affiliate-migrator/internal/store"
)

// Recounter recomputes affiliate earnings aggregates from their referrals and visits.
// Progress is kept in the status document so a yielded recount resumes where it stopped.
type Recounter struct {
	store     store.Store
	clock     adapter.Clock
	workers   int
	chunkSize int
	metrics   *metrics.MigrationMetrics
}

// NewRecounter creates a recounter. The affiliates of a chunk are recounted on up to workers goroutines.
func NewRecounter(st store.Store, clock adapter.Clock, chunkSize, workers int, m *metrics.MigrationMetrics) *Recounter {
	if chunkSize <= 0 {
		chunkSize = domain.DEFAULT_RECOUNT_CHUNK_SIZE
	}
	if workers <= 0 {
		workers = domain.DEFAULT_WORKERS
	}
	return &Recounter{
		store:     st,
		clock:     clock,
		workers:   workers,
		chunkSize: chunkSize,
		metrics:   m,
	}
}

// recountChunk recounts every affiliate of a chunk. Each affiliate is independent,
// the chunk fails when any of them does.
func (r *Recounter) recountChunk(ctx context.Context, ids []int64) error {
	pool := pond.NewPool(r.workers, pond.WithContext(ctx))
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for _, id := range ids {
		group.SubmitErr(func() error {
			return r.store.RecountAffiliateEarnings(ctx, id)
		})
	}
	return group.Wait()
}

// Run recounts affiliates after status.RecountCursor in chunks. The cursor is saved
// after every chunk; done is false when the budget ran out before the last affiliate.
// On completion the cursor is left at the last affiliate, the caller resets it.
func (r *Recounter) Run(ctx context.Context, src domain.Source, status *domain.MigrationStatus, deadline budget) (bool, error) {
	for {
		ids, err := r.store.ListAffiliateIDs(ctx, status.RecountCursor, r.chunkSize)
		if err != nil {
			return false, err
		}
		if len(ids) == 0 {
			return true, nil
		}

		if err := r.recountChunk(ctx, ids); err != nil {
			return false, err
		}
		r.metrics.RecordRecounted(string(src), len(ids))

		next := status.Clone()
		next.RecountCursor = ids[len(ids)-1]
		now := r.clock.Now().UTC()
		next.UpdatedAt = &now

		saved, err := r.store.UpdateMigrationStatus(ctx, src, next, false)
		if err != nil {
			return false, err
		}
		*status = *saved

		logger.DebugCtx(ctx, "affiliates recounted",
			zap.Int("count", len(ids)),
			zap.Int64("cursor", status.RecountCursor))

		if len(ids) < r.chunkSize {
			return true, nil
		}
		if deadline.exceeded() {
			return false, nil
		}
	}
}

// RecountAll recounts every affiliate without a time budget, ignoring any saved cursor
func (r *Recounter) RecountAll(ctx context.Context) (int, error) {
	var after int64
	total := 0

	for {
		ids, err := r.store.ListAffiliateIDs(ctx, after, r.chunkSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		if err := r.recountChunk(ctx, ids); err != nil {
			return total, err
		}
		total += len(ids)
		after = ids[len(ids)-1]
	}
}
