package migrator

import (
	"context"
	"fmt"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/store"
	"github.com/feral-file/ff-affiliate-migrator/internal/store/schema"
)

// batchResult summarizes one committed batch
type batchResult struct {
	fetched  int
	inserted int64
	skipped  []source.Skipped
}

// writeFunc inserts mapped rows inside the batch transaction and returns the
// number of inserted rows plus any rows it had to leave out
type writeFunc func(ctx context.Context, tx store.Store) (int64, []source.Skipped, error)

// migrateBatch reads the next page of the current stage and commits its rows
// together with the advanced cursor. A zero fetched count means the stage is exhausted.
func (e *Engine) migrateBatch(ctx context.Context, status *domain.MigrationStatus) (batchResult, error) {
	stage := status.CurrentStage
	offset := status.Cursor(stage)
	limit := e.config.BatchSize

	var (
		fetched int
		skipped []source.Skipped
		write   writeFunc
	)

	switch stage {
	case domain.StageAffiliateGroups:
		batch, err := e.provider.AffiliateGroups(ctx, offset, limit)
		if err != nil {
			return batchResult{}, err
		}
		fetched, skipped = batch.Fetched, batch.Skipped
		write = func(ctx context.Context, tx store.Store) (int64, []source.Skipped, error) {
			n, err := tx.InsertAffiliateGroups(ctx, batch.Rows)
			return n, nil, err
		}

	case domain.StageAffiliates:
		batch, err := e.provider.Affiliates(ctx, offset, limit)
		if err != nil {
			return batchResult{}, err
		}
		fetched, skipped = batch.Fetched, batch.Skipped
		write = func(ctx context.Context, tx store.Store) (int64, []source.Skipped, error) {
			return writeAffiliates(ctx, tx, batch.Rows)
		}

	case domain.StageReferrals:
		batch, err := e.provider.Referrals(ctx, offset, limit)
		if err != nil {
			return batchResult{}, err
		}
		fetched, skipped = batch.Fetched, batch.Skipped
		write = func(ctx context.Context, tx store.Store) (int64, []source.Skipped, error) {
			n, err := tx.InsertReferrals(ctx, batch.Rows)
			return n, nil, err
		}

	case domain.StageCustomers:
		batch, err := e.provider.Customers(ctx, offset, limit)
		if err != nil {
			return batchResult{}, err
		}
		fetched, skipped = batch.Fetched, batch.Skipped
		write = func(ctx context.Context, tx store.Store) (int64, []source.Skipped, error) {
			n, err := tx.InsertCustomers(ctx, batch.Rows)
			return n, nil, err
		}

	case domain.StagePayouts:
		batch, err := e.provider.Payouts(ctx, offset, limit)
		if err != nil {
			return batchResult{}, err
		}
		fetched, skipped = batch.Fetched, batch.Skipped
		write = func(ctx context.Context, tx store.Store) (int64, []source.Skipped, error) {
			n, err := writePayouts(ctx, tx, batch.Rows)
			return n, nil, err
		}

	case domain.StageVisits:
		batch, err := e.provider.Visits(ctx, offset, limit)
		if err != nil {
			return batchResult{}, err
		}
		fetched, skipped = batch.Fetched, batch.Skipped
		write = func(ctx context.Context, tx store.Store) (int64, []source.Skipped, error) {
			n, err := tx.InsertVisits(ctx, batch.Rows)
			return n, nil, err
		}

	default:
		return batchResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownStage, stage)
	}

	result := batchResult{fetched: fetched, skipped: skipped}
	if fetched == 0 {
		return result, nil
	}

	next := status.Clone()
	next.SetCursor(stage, offset+fetched)
	next.LastError = ""
	now := e.clock.Now().UTC()
	next.UpdatedAt = &now

	var saved *domain.MigrationStatus
	err := e.store.WithTransaction(ctx, func(tx store.Store) error {
		inserted, dropped, err := write(ctx, tx)
		if err != nil {
			return err
		}
		result.inserted = inserted
		result.skipped = append(result.skipped, dropped...)

		saved, err = tx.UpdateMigrationStatus(ctx, e.provider.Source(), next, false)
		return err
	})
	if err != nil {
		return batchResult{}, err
	}

	*status = *saved
	return result, nil
}

// writeAffiliates resolves the user of every affiliate, then inserts the affiliates
func writeAffiliates(ctx context.Context, tx store.Store, records []source.AffiliateRecord) (int64, []source.Skipped, error) {
	affiliates := make([]schema.Affiliate, 0, len(records))
	var skipped []source.Skipped

	for _, record := range records {
		userID, err := resolveUser(ctx, tx, record.User)
		if err != nil {
			return 0, nil, err
		}
		if userID == 0 {
			skipped = append(skipped, source.Skipped{ID: record.Affiliate.ID, Reason: "affiliate has no resolvable user"})
			continue
		}

		affiliate := record.Affiliate
		affiliate.UserID = userID
		affiliates = append(affiliates, affiliate)
	}

	n, err := tx.InsertAffiliates(ctx, affiliates)
	if err != nil {
		return 0, nil, err
	}
	return n, skipped, nil
}

// resolveUser finds the target user of a source user, creating it only when no
// user with the same email exists. The source ID is kept when it is free.
// Zero is returned when the user can neither be found nor created.
func resolveUser(ctx context.Context, tx store.Store, user schema.User) (int64, error) {
	if user.Email != "" {
		existing, err := tx.GetUserByEmail(ctx, user.Email)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			return existing.ID, nil
		}
	}

	if user.ID > 0 {
		existing, err := tx.GetUserByID(ctx, user.ID)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			if user.Email == "" {
				return existing.ID, nil
			}
			// the source ID belongs to someone else in the target
			user.ID = 0
		}
	}

	if user.Email == "" {
		return 0, nil
	}

	if user.Login == "" {
		user.Login = user.Email
	}
	if err := tx.CreateUser(ctx, &user); err != nil {
		return 0, err
	}
	return user.ID, nil
}

// writePayouts ensures every payout container exists, then inserts the transactions into them
func writePayouts(ctx context.Context, tx store.Store, records []source.PayoutRecord) (int64, error) {
	transactions := make([]schema.PayoutTransaction, 0, len(records))
	containers := make(map[string]int64)

	for _, record := range records {
		key := ""
		if record.Payout.Reference != nil {
			key = *record.Payout.Reference
		}

		payoutID, ok := containers[key]
		if !ok || key == "" {
			payout := record.Payout
			id, err := tx.EnsurePayout(ctx, &payout)
			if err != nil {
				return 0, err
			}
			payoutID = id
			containers[key] = id
		}

		txn := record.Transaction
		txn.PayoutID = payoutID
		transactions = append(transactions, txn)
	}

	return tx.InsertPayoutTransactions(ctx, transactions)
}
