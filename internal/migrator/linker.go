package migrator

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/logger"
	"github.com/feral-file/ff-affiliate-migrator/internal/metrics"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/store"
)

// Link pass names, used as metric labels
const (
	PassCustomers = "customers"
	PassVisits    = "visits"
	PassPayouts   = "payouts"
)

// LinkResult counts the rows updated by each pass
type LinkResult struct {
	Customers int64
	Visits    int64
	Payouts   int64
}

// Linker reconnects migrated rows using relations the legacy plugin kept elsewhere.
// Every pass only fills unset links, so running it again changes nothing.
type Linker struct {
	store     store.Store
	provider  source.Provider
	clock     adapter.Clock
	workers   int
	chunkSize int
	metrics   *metrics.MigrationMetrics
}

// linkStep is the outcome of one chunk of a pass
type linkStep struct {
	linked   int64
	cursor   int64
	cursorAt *time.Time
	finished bool
}

// NewLinker creates a linker. The source lookups of a chunk run on up to workers goroutines.
func NewLinker(st store.Store, provider source.Provider, clock adapter.Clock, chunkSize, workers int, m *metrics.MigrationMetrics) *Linker {
	if chunkSize <= 0 {
		chunkSize = domain.DEFAULT_BATCH_SIZE
	}
	if workers <= 0 {
		workers = domain.DEFAULT_WORKERS
	}
	return &Linker{
		store:     st,
		provider:  provider,
		clock:     clock,
		workers:   workers,
		chunkSize: chunkSize,
		metrics:   m,
	}
}

// Resume continues the link passes recorded in status. Progress is saved after
// every chunk; done is false when the budget ran out before the last pass finished.
func (l *Linker) Resume(ctx context.Context, status *domain.MigrationStatus, deadline budget) (bool, error) {
	src := l.provider.Source()
	if status.LinkPass == "" {
		status.LinkPass = domain.LinkPassCustomers
		status.LinkCursor, status.LinkCursorAt = 0, nil
	}

	for !status.Linked() {
		pass := status.LinkPass
		step, err := l.step(ctx, pass, status.LinkCursor, status.LinkCursorAt)
		if err != nil {
			return false, fmt.Errorf("link pass %s: %w", pass, err)
		}

		next := status.Clone()
		next.LinkCursor, next.LinkCursorAt = step.cursor, step.cursorAt
		if step.finished {
			next.LinkPass = nextLinkPass(pass, step.cursor)
			next.LinkCursor, next.LinkCursorAt = 0, nil
		}
		now := l.clock.Now().UTC()
		next.UpdatedAt = &now

		saved, err := l.store.UpdateMigrationStatus(ctx, src, next, false)
		if err != nil {
			return false, err
		}
		*status = *saved

		if step.finished {
			logger.InfoCtx(ctx, "link pass completed",
				zap.String("pass", string(pass)),
				zap.String("next", string(status.LinkPass)))
		}
		if status.Linked() {
			return true, nil
		}
		if deadline.exceeded() {
			return false, nil
		}
	}

	return true, nil
}

// Run executes every pass to the end without a time budget, then recounts payout totals
func (l *Linker) Run(ctx context.Context) error {
	_, err := l.RunWithResult(ctx)
	return err
}

// RunWithResult is Run that also reports how many rows each pass updated
func (l *Linker) RunWithResult(ctx context.Context) (LinkResult, error) {
	var result LinkResult
	var err error

	if result.Customers, err = l.LinkCustomers(ctx); err != nil {
		return result, err
	}
	if result.Visits, err = l.LinkVisits(ctx); err != nil {
		return result, err
	}
	if result.Payouts, err = l.LinkPayouts(ctx); err != nil {
		return result, err
	}
	if err := l.store.RecountPayoutTotals(ctx); err != nil {
		return result, err
	}

	logger.InfoCtx(ctx, "linking completed",
		zap.Int64("customers", result.Customers),
		zap.Int64("visits", result.Visits),
		zap.Int64("payouts", result.Payouts))

	return result, nil
}

// LinkCustomers sets customer_id on the referrals the source attributes to each customer
func (l *Linker) LinkCustomers(ctx context.Context) (int64, error) {
	total, _, err := l.runPass(ctx, domain.LinkPassCustomers)
	return total, err
}

// LinkVisits connects visits and referrals. Explicit source links are used when
// the plugin records them, otherwise each referral without a visit takes the
// affiliate's latest unlinked visit that happened before it.
func (l *Linker) LinkVisits(ctx context.Context) (int64, error) {
	total, read, err := l.runPass(ctx, domain.LinkPassVisitLinks)
	if err != nil || read > 0 {
		return total, err
	}
	return l.runPassTotal(ctx, domain.LinkPassVisitsByTime)
}

// LinkPayouts assigns referrals to payout transactions, oldest transaction first,
// and marks them paid. Failed transactions settle nothing.
func (l *Linker) LinkPayouts(ctx context.Context) (int64, error) {
	return l.runPassTotal(ctx, domain.LinkPassPayouts)
}

func (l *Linker) runPassTotal(ctx context.Context, pass domain.LinkPass) (int64, error) {
	total, _, err := l.runPass(ctx, pass)
	return total, err
}

// runPass walks one pass to its end and returns the rows linked and the final cursor
func (l *Linker) runPass(ctx context.Context, pass domain.LinkPass) (int64, int64, error) {
	var total int64
	var cursor int64
	var cursorAt *time.Time

	for {
		step, err := l.step(ctx, pass, cursor, cursorAt)
		if err != nil {
			return total, cursor, err
		}
		total += step.linked
		cursor, cursorAt = step.cursor, step.cursorAt
		if step.finished {
			return total, cursor, nil
		}
	}
}

// step runs one chunk of a pass from the cursor
func (l *Linker) step(ctx context.Context, pass domain.LinkPass, cursor int64, cursorAt *time.Time) (linkStep, error) {
	var step linkStep
	var err error
	label := ""

	switch pass {
	case domain.LinkPassCustomers:
		label = PassCustomers
		step, err = l.linkCustomerChunk(ctx, cursor)
	case domain.LinkPassVisitLinks:
		label = PassVisits
		step, err = l.linkVisitChunk(ctx, cursor)
	case domain.LinkPassVisitsByTime:
		label = PassVisits
		step, err = l.linkVisitByTimeChunk(ctx, cursor)
	case domain.LinkPassPayouts:
		label = PassPayouts
		after := store.PayoutCursor{ID: cursor}
		if cursorAt != nil {
			after.CreatedAt = *cursorAt
		}
		step, err = l.linkPayoutChunk(ctx, after)
	case domain.LinkPassPayoutTotals:
		return linkStep{finished: true}, l.store.RecountPayoutTotals(ctx)
	default:
		return linkStep{}, fmt.Errorf("unknown link pass %q", pass)
	}
	if err != nil {
		return step, err
	}

	l.metrics.RecordLinked(string(l.provider.Source()), label, step.linked)
	return step, nil
}

// nextLinkPass returns the pass following a finished one. Time based visit
// linking only runs when the source recorded no explicit visit links.
func nextLinkPass(pass domain.LinkPass, cursor int64) domain.LinkPass {
	switch pass {
	case domain.LinkPassCustomers:
		return domain.LinkPassVisitLinks
	case domain.LinkPassVisitLinks:
		if cursor > 0 {
			return domain.LinkPassPayouts
		}
		return domain.LinkPassVisitsByTime
	case domain.LinkPassVisitsByTime:
		return domain.LinkPassPayouts
	case domain.LinkPassPayouts:
		return domain.LinkPassPayoutTotals
	default:
		return domain.LinkPassDone
	}
}

// linkCustomerChunk links the referrals of the customers after the cursor.
// The source lookups run concurrently, the updates in customer order.
func (l *Linker) linkCustomerChunk(ctx context.Context, after int64) (linkStep, error) {
	customers, err := l.store.ListCustomers(ctx, after, l.chunkSize)
	if err != nil {
		return linkStep{}, err
	}
	if len(customers) == 0 {
		return linkStep{cursor: after, finished: true}, nil
	}

	referralIDs := make([][]int64, len(customers))
	pool := pond.NewPool(l.workers, pond.WithContext(ctx))
	group := pool.NewGroup()
	for i, customer := range customers {
		group.SubmitErr(func() error {
			ids, err := l.provider.CustomerReferralIDs(ctx, customer)
			referralIDs[i] = ids
			return err
		})
	}
	err = group.Wait()
	pool.StopAndWait()
	if err != nil {
		return linkStep{}, err
	}

	var linked int64
	for i, customer := range customers {
		n, err := l.store.LinkCustomerReferrals(ctx, customer.ID, referralIDs[i])
		if err != nil {
			return linkStep{}, err
		}
		linked += n
	}

	return linkStep{
		linked:   linked,
		cursor:   customers[len(customers)-1].ID,
		finished: len(customers) < l.chunkSize,
	}, nil
}

// linkVisitChunk applies the source's explicit visit links from an offset.
// The cursor counts the links read, zero when the source has none.
func (l *Linker) linkVisitChunk(ctx context.Context, offset int64) (linkStep, error) {
	links, err := l.provider.VisitLinks(ctx, int(offset), l.chunkSize)
	if err != nil {
		return linkStep{}, err
	}
	if len(links) == 0 {
		return linkStep{cursor: offset, finished: true}, nil
	}

	var linked int64
	for _, link := range links {
		referralID := link.ReferralID
		if referralID == 0 && link.ProviderID != "" {
			referral, err := l.store.GetReferralByProviderID(ctx, link.ProviderID)
			if err != nil {
				return linkStep{}, err
			}
			if referral == nil {
				continue
			}
			referralID = referral.ID
		}
		if referralID == 0 {
			continue
		}

		ok, err := l.store.LinkVisitReferral(ctx, link.VisitID, referralID)
		if err != nil {
			return linkStep{}, err
		}
		if ok {
			linked++
		}
	}

	return linkStep{
		linked:   linked,
		cursor:   offset + int64(len(links)),
		finished: len(links) < l.chunkSize,
	}, nil
}

func (l *Linker) linkVisitByTimeChunk(ctx context.Context, after int64) (linkStep, error) {
	referrals, err := l.store.ListReferralsWithoutVisit(ctx, after, l.chunkSize)
	if err != nil {
		return linkStep{}, err
	}
	if len(referrals) == 0 {
		return linkStep{cursor: after, finished: true}, nil
	}

	var linked int64
	for _, referral := range referrals {
		visit, err := l.store.FindLatestUnlinkedVisit(ctx, referral.AffiliateID, referral.CreatedAt)
		if err != nil {
			return linkStep{}, err
		}
		if visit == nil {
			continue
		}

		ok, err := l.store.LinkVisitReferral(ctx, visit.ID, referral.ID)
		if err != nil {
			return linkStep{}, err
		}
		if ok {
			linked++
		}
	}

	return linkStep{
		linked:   linked,
		cursor:   referrals[len(referrals)-1].ID,
		finished: len(referrals) < l.chunkSize,
	}, nil
}

func (l *Linker) linkPayoutChunk(ctx context.Context, after store.PayoutCursor) (linkStep, error) {
	transactions, err := l.store.ListPayoutTransactions(ctx, after, l.chunkSize)
	if err != nil {
		return linkStep{}, err
	}
	if len(transactions) == 0 {
		step := linkStep{cursor: after.ID, finished: true}
		if !after.CreatedAt.IsZero() {
			step.cursorAt = &after.CreatedAt
		}
		return step, nil
	}

	var linked int64
	for _, txn := range transactions {
		if txn.Status == domain.TransactionStatusFailed {
			continue
		}

		ids, err := l.provider.PayoutReferralIDs(ctx, txn)
		if err != nil {
			return linkStep{}, err
		}
		n, err := l.store.LinkPayoutReferrals(ctx, txn, ids)
		if err != nil {
			return linkStep{}, err
		}
		linked += n
	}

	last := transactions[len(transactions)-1]
	createdAt := last.CreatedAt
	return linkStep{
		linked:   linked,
		cursor:   last.ID,
		cursorAt: &createdAt,
		finished: len(transactions) < l.chunkSize,
	}, nil
}
