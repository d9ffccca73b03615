package migrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/mocks"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/source/affiliatewp"
	"github.com/feral-file/ff-affiliate-migrator/internal/store"
	"github.com/feral-file/ff-affiliate-migrator/internal/store/schema"
	"github.com/feral-file/ff-affiliate-migrator/internal/testutil"
)

// =============================================================================
// Fixtures
// =============================================================================

var (
	day1 = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	day2 = day1.Add(24 * time.Hour)
	day3 = day1.Add(72 * time.Hour)
)

// seedWordPress creates an AffiliateWP install with three affiliates, four
// referrals, one customer, one payout and two visits
func seedWordPress(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.NewSourceDB(t)

	testutil.SeedTable(t, db, "users",
		source.UserRow{ID: 7, UserLogin: "alice", UserEmail: "alice@example.com", DisplayName: "Alice", UserRegistered: day1},
	)
	testutil.SeedTable(t, db, affiliatewp.TableAffiliates,
		affiliatewp.AffiliateRow{AffiliateID: 1, UserID: 7, Rate: "20", RateType: "percentage", Status: "active", DateRegistered: day1},
		affiliatewp.AffiliateRow{AffiliateID: 2, PaymentEmail: "bob@example.com", Rate: "5", RateType: "flat", Status: "active", DateRegistered: day1},
		affiliatewp.AffiliateRow{AffiliateID: 3, PaymentEmail: "carol@example.com", Status: "inactive", DateRegistered: day1},
	)
	testutil.SeedTable(t, db, affiliatewp.TableReferrals,
		affiliatewp.ReferralRow{ReferralID: 10, AffiliateID: 1, VisitID: 21, CustomerID: 31, Status: "unpaid", Amount: "10", Currency: "usd", Context: "woocommerce", Reference: "5001", Type: "sale", Date: day1.Add(time.Hour)},
		affiliatewp.ReferralRow{ReferralID: 11, AffiliateID: 1, Status: "paid", Amount: "5", Context: "woocommerce", Reference: "5002", Date: day1},
		affiliatewp.ReferralRow{ReferralID: 12, AffiliateID: 2, Status: "unpaid", Amount: "7.5", Context: "woocommerce", Reference: "5003", Date: day2},
		affiliatewp.ReferralRow{ReferralID: 13, AffiliateID: 2, Status: "rejected", Amount: "3", Context: "woocommerce", Reference: "5004", Date: day2},
	)
	testutil.SeedTable(t, db, affiliatewp.TableCustomers,
		affiliatewp.CustomerRow{CustomerID: 31, Email: "buyer@example.com", FirstName: "Bea", DateCreated: day1},
	)
	testutil.SeedTable(t, db, affiliatewp.TablePayouts,
		affiliatewp.PayoutRow{PayoutID: 41, AffiliateID: 1, Referrals: "10", Amount: "10", Owner: 1, PayoutMethod: "manual", Status: "paid", Date: day3},
	)
	testutil.SeedTable(t, db, affiliatewp.TableVisits,
		affiliatewp.VisitRow{VisitID: 21, AffiliateID: 1, URL: "https://shop.example.com/?ref=1", Date: day1},
		affiliatewp.VisitRow{VisitID: 22, AffiliateID: 2, URL: "https://shop.example.com/?ref=2", Date: day1},
	)

	return db
}

func newTarget(t *testing.T) (*gorm.DB, store.Store) {
	t.Helper()
	db := testutil.NewTargetDB(t)
	return db, store.NewSQLStore(db)
}

func newAffiliateWP(db *gorm.DB) source.Provider {
	return affiliatewp.New(source.NewWordPress(db, testutil.WPPrefix), adapter.NewClock())
}

// yieldingClock reports every budget as spent, so each poll processes exactly one batch
func yieldingClock(t *testing.T) *mocks.MockClock {
	t.Helper()
	clock := mocks.NewMockClock(gomock.NewController(t))
	clock.EXPECT().Now().Return(day3).AnyTimes()
	clock.EXPECT().Since(gomock.Any()).Return(time.Hour).AnyTimes()
	return clock
}

// pollUntilCompleted keeps polling the engine like the UI would
func pollUntilCompleted(t *testing.T, engine *Engine) *domain.MigrationStatus {
	t.Helper()
	for i := 0; i < 100; i++ {
		status, err := engine.Run(context.Background(), time.Second)
		require.NoError(t, err)
		if status.Completed() {
			return status
		}
	}
	t.Fatal("migration did not complete")
	return nil
}

type referralState struct {
	ID         int64
	CustomerID *int64
	VisitID    *int64
	PayoutID   *int64
	Status     domain.ReferralStatus
}

type affiliateState struct {
	ID             int64
	TotalEarnings  string
	UnpaidEarnings string
	Referrals      int64
	Visits         int64
}

// snapshot captures the linked target state for comparing runs
func snapshot(t *testing.T, db *gorm.DB) ([]referralState, []affiliateState) {
	t.Helper()

	var referrals []schema.Referral
	require.NoError(t, db.Order("id").Find(&referrals).Error)
	refs := make([]referralState, 0, len(referrals))
	for _, r := range referrals {
		refs = append(refs, referralState{ID: r.ID, CustomerID: r.CustomerID, VisitID: r.VisitID, PayoutID: r.PayoutID, Status: r.Status})
	}

	var affiliates []schema.Affiliate
	require.NoError(t, db.Order("id").Find(&affiliates).Error)
	affs := make([]affiliateState, 0, len(affiliates))
	for _, a := range affiliates {
		affs = append(affs, affiliateState{
			ID:             a.ID,
			TotalEarnings:  a.TotalEarnings.String(),
			UnpaidEarnings: a.UnpaidEarnings.String(),
			Referrals:      a.Referrals,
			Visits:         a.Visits,
		})
	}

	return refs, affs
}

func affiliateIDs(t *testing.T, db *gorm.DB) []int64 {
	t.Helper()
	var ids []int64
	require.NoError(t, db.Model(&schema.Affiliate{}).Order("id").Pluck("id", &ids).Error)
	return ids
}

// =============================================================================
// Engine
// =============================================================================

func TestEngine_RunToCompletion(t *testing.T) {
	ctx := context.Background()
	targetDB, st := newTarget(t)
	engine := NewEngine(Config{BatchSize: 100}, st, newAffiliateWP(seedWordPress(t)), adapter.NewClock(), nil)

	status, err := engine.Run(ctx, 0)
	require.NoError(t, err)
	require.True(t, status.Completed())
	assert.NotNil(t, status.CompletedAt)
	assert.Equal(t, int64(0), status.RecountCursor)
	assert.Empty(t, status.LastError)

	assert.Equal(t, 3, status.Cursor(domain.StageAffiliates))
	assert.Equal(t, 4, status.Cursor(domain.StageReferrals))
	assert.Equal(t, 1, status.Cursor(domain.StageCustomers))
	assert.Equal(t, 1, status.Cursor(domain.StagePayouts))
	assert.Equal(t, 2, status.Cursor(domain.StageVisits))

	persisted, err := st.GetMigrationStatus(ctx, domain.SourceAffiliateWP)
	require.NoError(t, err)
	assert.Equal(t, domain.StageCompleted, persisted.CurrentStage)
	assert.Equal(t, status.Counts, persisted.Counts)

	t.Run("source IDs are preserved", func(t *testing.T) {
		assert.Equal(t, []int64{1, 2, 3}, affiliateIDs(t, targetDB))

		var referralIDs []int64
		require.NoError(t, targetDB.Model(&schema.Referral{}).Order("id").Pluck("id", &referralIDs).Error)
		assert.Equal(t, []int64{10, 11, 12, 13}, referralIDs)

		txn, err := st.GetReferralByID(ctx, 10)
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, "5001", txn.ProviderID)
		assert.Equal(t, "USD", txn.Currency)
	})

	t.Run("users are resolved or created", func(t *testing.T) {
		alice, err := st.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, alice)
		assert.Equal(t, int64(7), alice.ID)

		bob, err := st.GetUserByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		require.NotNil(t, bob)
		assert.Equal(t, "bob@example.com", bob.Login)

		affiliate, err := st.GetAffiliateByID(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, affiliate)
		assert.Equal(t, bob.ID, affiliate.UserID)
	})

	t.Run("rows are linked", func(t *testing.T) {
		referral, err := st.GetReferralByID(ctx, 10)
		require.NoError(t, err)
		require.NotNil(t, referral.CustomerID)
		assert.Equal(t, int64(31), *referral.CustomerID)
		require.NotNil(t, referral.VisitID)
		assert.Equal(t, int64(21), *referral.VisitID)
		require.NotNil(t, referral.PayoutID)
		require.NotNil(t, referral.PayoutTransactionID)
		assert.Equal(t, int64(41), *referral.PayoutTransactionID)
		assert.Equal(t, domain.ReferralStatusPaid, referral.Status)

		unpaid, err := st.GetReferralByID(ctx, 11)
		require.NoError(t, err)
		assert.Nil(t, unpaid.PayoutID)
		assert.Equal(t, domain.ReferralStatusUnpaid, unpaid.Status)

		var payout schema.Payout
		require.NoError(t, targetDB.First(&payout, *referral.PayoutID).Error)
		assert.True(t, decimal.NewFromInt(10).Equal(payout.TotalAmount))
	})

	t.Run("earnings match referrals", func(t *testing.T) {
		assertEarningsInvariant(t, targetDB)

		affiliate, err := st.GetAffiliateByID(ctx, 1)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(15).Equal(affiliate.TotalEarnings), affiliate.TotalEarnings.String())
		assert.True(t, decimal.NewFromInt(5).Equal(affiliate.UnpaidEarnings), affiliate.UnpaidEarnings.String())
		assert.Equal(t, int64(2), affiliate.Referrals)
		assert.Equal(t, int64(1), affiliate.Visits)
	})

	t.Run("completed migration is a no-op", func(t *testing.T) {
		again, err := engine.Run(ctx, 0)
		require.NoError(t, err)
		assert.True(t, again.Completed())
		assert.Equal(t, status.Counts, again.Counts)
	})
}

func assertEarningsInvariant(t *testing.T, db *gorm.DB) {
	t.Helper()

	var affiliates []schema.Affiliate
	require.NoError(t, db.Find(&affiliates).Error)
	require.NotEmpty(t, affiliates)

	for _, affiliate := range affiliates {
		var referrals []schema.Referral
		require.NoError(t, db.Where("affiliate_id = ?", affiliate.ID).Find(&referrals).Error)

		total, unpaid := decimal.Zero, decimal.Zero
		for _, r := range referrals {
			switch r.Status {
			case domain.ReferralStatusPaid:
				total = total.Add(r.Amount)
			case domain.ReferralStatusUnpaid:
				total = total.Add(r.Amount)
				unpaid = unpaid.Add(r.Amount)
			}
		}

		assert.True(t, total.Equal(affiliate.TotalEarnings), "affiliate %d total %s != %s", affiliate.ID, affiliate.TotalEarnings, total)
		assert.True(t, unpaid.Equal(affiliate.UnpaidEarnings), "affiliate %d unpaid %s != %s", affiliate.ID, affiliate.UnpaidEarnings, unpaid)
	}
}

func TestEngine_BatchesAreResumable(t *testing.T) {
	ctx := context.Background()
	sourceDB := seedWordPress(t)

	targetDB, st := newTarget(t)
	engine := NewEngine(Config{BatchSize: 2, RecountChunkSize: 2}, st, newAffiliateWP(sourceDB), yieldingClock(t), nil)

	// the first poll finds no affiliate groups
	status, err := engine.Run(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.StageAffiliates, status.CurrentStage)

	status, err = engine.Run(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.StageAffiliates, status.CurrentStage)
	assert.Equal(t, 2, status.Cursor(domain.StageAffiliates))
	assert.Equal(t, []int64{1, 2}, affiliateIDs(t, targetDB))

	status, err = engine.Run(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.StageReferrals, status.CurrentStage)
	assert.Equal(t, 3, status.Cursor(domain.StageAffiliates))
	assert.Equal(t, []int64{1, 2, 3}, affiliateIDs(t, targetDB))

	batched := pollUntilCompleted(t, engine)
	batchedRefs, batchedAffs := snapshot(t, targetDB)

	onceDB, onceStore := newTarget(t)
	once, err := NewEngine(Config{BatchSize: 1000}, onceStore, newAffiliateWP(sourceDB), adapter.NewClock(), nil).Run(ctx, 0)
	require.NoError(t, err)
	onceRefs, onceAffs := snapshot(t, onceDB)

	assert.Equal(t, once.Counts, batched.Counts)
	assert.Equal(t, onceRefs, batchedRefs)
	assert.Equal(t, onceAffs, batchedAffs)
}

func TestEngine_StagesOnlyMoveForward(t *testing.T) {
	ctx := context.Background()
	_, st := newTarget(t)
	engine := NewEngine(Config{BatchSize: 1}, st, newAffiliateWP(seedWordPress(t)), yieldingClock(t), nil)

	previous := domain.StageAffiliateGroups
	for i := 0; i < 100; i++ {
		status, err := engine.Run(ctx, time.Second)
		require.NoError(t, err)
		assert.False(t, status.CurrentStage.Before(previous), "%s after %s", status.CurrentStage, previous)
		previous = status.CurrentStage
		if status.Completed() {
			return
		}
	}
	t.Fatal("migration did not complete")
}

func TestEngine_RecountYieldsAndResumes(t *testing.T) {
	ctx := context.Background()
	targetDB, st := newTarget(t)
	engine := NewEngine(Config{BatchSize: 100, RecountChunkSize: 1}, st, newAffiliateWP(seedWordPress(t)), yieldingClock(t), nil)

	var status *domain.MigrationStatus
	var err error
	for i := 0; i < 20; i++ {
		status, err = engine.Run(ctx, time.Second)
		require.NoError(t, err)
		if status.RecountCursor > 0 {
			break
		}
	}
	require.Equal(t, domain.StageVisits, status.CurrentStage)
	assert.Equal(t, int64(1), status.RecountCursor)

	status, err = engine.Run(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.StageVisits, status.CurrentStage)
	assert.Equal(t, int64(2), status.RecountCursor)

	status = pollUntilCompleted(t, engine)
	assert.Equal(t, int64(0), status.RecountCursor)
	assertEarningsInvariant(t, targetDB)
}

func TestEngine_UnknownStage(t *testing.T) {
	ctx := context.Background()
	_, st := newTarget(t)

	_, err := st.UpdateMigrationStatus(ctx, domain.SourceAffiliateWP, &domain.MigrationStatus{CurrentStage: "invoices"}, false)
	require.NoError(t, err)

	engine := NewEngine(Config{}, st, newAffiliateWP(seedWordPress(t)), adapter.NewClock(), nil)
	status, err := engine.Run(ctx, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownStage))
	require.NotNil(t, status)
	assert.Equal(t, domain.Stage("invoices"), status.CurrentStage)
}

func TestEngine_BatchFailure(t *testing.T) {
	ctx := context.Background()
	_, st := newTarget(t)

	_, err := st.UpdateMigrationStatus(ctx, domain.SourceAffiliateWP, &domain.MigrationStatus{
		CurrentStage: domain.StageReferrals,
		Counts:       map[domain.Stage]int{domain.StageAffiliates: 3, domain.StageReferrals: 4},
	}, false)
	require.NoError(t, err)

	provider := mocks.NewMockProvider(gomock.NewController(t))
	provider.EXPECT().Source().Return(domain.SourceAffiliateWP).AnyTimes()
	provider.EXPECT().Referrals(gomock.Any(), 4, 10).Return(source.Batch[schema.Referral]{}, errors.New("connection reset by peer"))

	engine := NewEngine(Config{BatchSize: 10}, st, provider, adapter.NewClock(), nil)
	status, err := engine.Run(ctx, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBatchFailed))
	assert.Contains(t, err.Error(), "referrals")

	require.NotNil(t, status)
	assert.Equal(t, domain.StageReferrals, status.CurrentStage)
	assert.Equal(t, 4, status.Cursor(domain.StageReferrals))
	assert.Equal(t, "connection reset by peer", status.LastError)

	persisted, err := st.GetMigrationStatus(ctx, domain.SourceAffiliateWP)
	require.NoError(t, err)
	assert.Equal(t, "connection reset by peer", persisted.LastError)
	assert.Equal(t, 4, persisted.Cursor(domain.StageReferrals))
}

func TestEngine_FailedInsertLeavesCursor(t *testing.T) {
	ctx := context.Background()
	targetDB, st := newTarget(t)

	_, err := st.UpdateMigrationStatus(ctx, domain.SourceAffiliateWP, &domain.MigrationStatus{CurrentStage: domain.StageVisits}, false)
	require.NoError(t, err)
	require.NoError(t, targetDB.Migrator().DropTable(&schema.Visit{}))

	provider := mocks.NewMockProvider(gomock.NewController(t))
	provider.EXPECT().Source().Return(domain.SourceAffiliateWP).AnyTimes()
	provider.EXPECT().Visits(gomock.Any(), 0, 10).Return(source.Batch[schema.Visit]{
		Rows:    []schema.Visit{{ID: 1, AffiliateID: 1, CreatedAt: day1, UpdatedAt: day1}},
		Fetched: 1,
	}, nil)

	engine := NewEngine(Config{BatchSize: 10}, st, provider, adapter.NewClock(), nil)
	status, err := engine.Run(ctx, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBatchFailed))
	assert.Equal(t, 0, status.Cursor(domain.StageVisits))
	assert.NotEmpty(t, status.LastError)
}

func TestEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, st := newTarget(t)
	engine := NewEngine(Config{}, st, newAffiliateWP(seedWordPress(t)), adapter.NewClock(), nil)

	_, err := engine.Run(ctx, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, domain.ErrBatchFailed))
}

// =============================================================================
// User resolution
// =============================================================================

func TestResolveUser(t *testing.T) {
	ctx := context.Background()
	_, st := newTarget(t)

	require.NoError(t, st.CreateUser(ctx, &schema.User{ID: 7, Login: "alice", Email: "alice@example.com", CreatedAt: day1}))

	t.Run("existing email wins over source ID", func(t *testing.T) {
		id, err := resolveUser(ctx, st, schema.User{ID: 50, Email: "alice@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
	})

	t.Run("free source ID is kept", func(t *testing.T) {
		id, err := resolveUser(ctx, st, schema.User{ID: 50, Email: "dave@example.com", CreatedAt: day1})
		require.NoError(t, err)
		assert.Equal(t, int64(50), id)

		user, err := st.GetUserByID(ctx, 50)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "dave@example.com", user.Login)
	})

	t.Run("taken source ID gets a new ID", func(t *testing.T) {
		id, err := resolveUser(ctx, st, schema.User{ID: 7, Email: "erin@example.com", CreatedAt: day1})
		require.NoError(t, err)
		assert.NotZero(t, id)
		assert.NotEqual(t, int64(7), id)
	})

	t.Run("user without email resolves by ID", func(t *testing.T) {
		id, err := resolveUser(ctx, st, schema.User{ID: 7})
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
	})

	t.Run("unknown user without email is unresolvable", func(t *testing.T) {
		id, err := resolveUser(ctx, st, schema.User{ID: 404})
		require.NoError(t, err)
		assert.Zero(t, id)
	})
}

func TestWritePayouts_SharesContainers(t *testing.T) {
	ctx := context.Background()
	targetDB, st := newTarget(t)

	ref := "solid_bulk:9"
	records := []source.PayoutRecord{
		{
			Payout:      schema.Payout{Reference: &ref, Title: "Bulk #9", Status: domain.PayoutStatusPaid, CreatedAt: day1, UpdatedAt: day1},
			Transaction: schema.PayoutTransaction{ID: 1, AffiliateID: 1, TotalAmount: decimal.NewFromInt(4), Status: domain.TransactionStatusPaid, CreatedAt: day1, UpdatedAt: day1},
		},
		{
			Payout:      schema.Payout{Reference: &ref, Title: "Bulk #9", Status: domain.PayoutStatusPaid, CreatedAt: day1, UpdatedAt: day1},
			Transaction: schema.PayoutTransaction{ID: 2, AffiliateID: 2, TotalAmount: decimal.NewFromInt(6), Status: domain.TransactionStatusPaid, CreatedAt: day1, UpdatedAt: day1},
		},
	}

	n, err := writePayouts(ctx, st, records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// a re-run of the same batch creates nothing
	n, err = writePayouts(ctx, st, records)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	var payouts int64
	require.NoError(t, targetDB.Model(&schema.Payout{}).Count(&payouts).Error)
	assert.Equal(t, int64(1), payouts)

	var transactions []schema.PayoutTransaction
	require.NoError(t, targetDB.Order("id").Find(&transactions).Error)
	require.Len(t, transactions, 2)
	assert.Equal(t, transactions[0].PayoutID, transactions[1].PayoutID)
}
