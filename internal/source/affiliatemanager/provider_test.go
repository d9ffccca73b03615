package affiliatemanager_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/source/affiliatemanager"
	"github.com/feral-file/ff-affiliate-migrator/internal/testutil"
)

var day = time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC)

func seedAffiliateManager(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.NewSourceDB(t)

	testutil.SeedTable(t, db, "users",
		source.UserRow{ID: 12, UserLogin: "mark", UserEmail: "mark@example.com", UserRegistered: day},
	)
	testutil.SeedTable(t, db, affiliatemanager.TableAffiliates,
		affiliatemanager.AffiliateRow{AffiliateID: 1, UserID: 12, Email: "mark@example.com", Status: "approved", BountyType: "percent", BountyAmount: "30", DateCreated: day},
		affiliatemanager.AffiliateRow{AffiliateID: 2, UserID: 77, FirstName: "Gone", Email: "Gone@Example.com", Status: "applied", BountyType: "fixed", BountyAmount: "4", PaypalEmail: "pay@example.com"},
		affiliatemanager.AffiliateRow{AffiliateID: 3, Email: "blocked@example.com", Status: "blocked"},
	)
	testutil.SeedTable(t, db, affiliatemanager.TableTransactions,
		affiliatemanager.TransactionRow{TransactionID: 100, AffiliateID: 1, Amount: "15", Type: affiliatemanager.TypeCredit, Status: "confirmed", ReferenceID: "7001", Email: "Shopper@Example.com", DateCreated: day},
		affiliatemanager.TransactionRow{TransactionID: 101, AffiliateID: 2, Amount: "5", Type: affiliatemanager.TypeCredit, Status: "pending", ReferenceID: "7002", Email: "shopper@example.com", DateCreated: day.Add(time.Hour)},
		affiliatemanager.TransactionRow{TransactionID: 102, AffiliateID: 1, Amount: "-15", Type: affiliatemanager.TypePayout, Status: "confirmed", DateCreated: day.Add(48 * time.Hour)},
		affiliatemanager.TransactionRow{TransactionID: 103, AffiliateID: 1, Amount: "2.5", Type: affiliatemanager.TypeAdjustment, Status: "confirmed", Email: "other@example.com", DateCreated: day.Add(2 * time.Hour)},
		affiliatemanager.TransactionRow{TransactionID: 104, AffiliateID: 1, Amount: "-15", Type: affiliatemanager.TypeRefund, Status: "refunded", ReferenceID: "7001", Email: "shopper@example.com", DateCreated: day.Add(3 * time.Hour)},
	)
	testutil.SeedTable(t, db, affiliatemanager.TableTrackingTokens,
		affiliatemanager.TrackingTokenRow{TrackingTokenID: 50, AffiliateID: 1, Referer: "https://blog.example.com", SourceID: "newsletter", DateCreated: day},
	)
	testutil.SeedTable(t, db, affiliatemanager.TablePurchaseLogs,
		affiliatemanager.PurchaseLogRow{TrackingTokenPurchaseLogID: 1, TrackingTokenID: 50, PurchaseLogID: " 7001 "},
	)

	return db
}

func newProvider(db *gorm.DB) *affiliatemanager.Provider {
	return affiliatemanager.New(source.NewWordPress(db, testutil.WPPrefix), adapter.NewClock())
}

func TestProvider_Counts(t *testing.T) {
	counts, err := newProvider(seedAffiliateManager(t)).Counts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StageCounts{
		domain.StageAffiliateGroups: 0,
		domain.StageAffiliates:      3,
		domain.StageReferrals:       4,
		domain.StageCustomers:       2,
		domain.StagePayouts:         1,
		domain.StageVisits:          1,
	}, counts)
}

func TestProvider_Affiliates(t *testing.T) {
	batch, err := newProvider(seedAffiliateManager(t)).Affiliates(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 3)

	mark := batch.Rows[0]
	assert.Equal(t, domain.AffiliateStatusActive, mark.Affiliate.Status)
	assert.Equal(t, domain.RateTypePercentage, mark.Affiliate.RateType)
	assert.Equal(t, int64(12), mark.User.ID)
	assert.Equal(t, "mark", mark.User.Login)

	gone := batch.Rows[1]
	assert.Equal(t, domain.AffiliateStatusPending, gone.Affiliate.Status)
	assert.Equal(t, domain.RateTypeFlat, gone.Affiliate.RateType)
	assert.Equal(t, "pay@example.com", gone.Affiliate.PaymentEmail)
	assert.Equal(t, int64(0), gone.User.ID)
	assert.Equal(t, "gone@example.com", gone.User.Email)

	assert.Equal(t, domain.AffiliateStatusInactive, batch.Rows[2].Affiliate.Status)
	assert.Equal(t, domain.RateTypeDefault, batch.Rows[2].Affiliate.RateType)
}

func TestProvider_Referrals(t *testing.T) {
	batch, err := newProvider(seedAffiliateManager(t)).Referrals(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 4)

	ids := make([]int64, 0, len(batch.Rows))
	for _, r := range batch.Rows {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{100, 101, 103, 104}, ids)

	assert.Equal(t, domain.ReferralStatusUnpaid, batch.Rows[0].Status)
	assert.Equal(t, "7001", batch.Rows[0].ProviderID)
	assert.Equal(t, domain.ReferralStatusPending, batch.Rows[1].Status)
	assert.Equal(t, domain.ReferralStatusUnpaid, batch.Rows[2].Status)
	assert.Equal(t, "2.5", batch.Rows[2].Amount.String())
	assert.Equal(t, domain.ReferralStatusRejected, batch.Rows[3].Status)
}

func TestProvider_Customers(t *testing.T) {
	ctx := context.Background()
	p := newProvider(seedAffiliateManager(t))

	batch, err := p.Customers(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 2)

	shopper := batch.Rows[0]
	assert.Equal(t, int64(0), shopper.ID)
	assert.Equal(t, "shopper@example.com", shopper.Email)
	require.NotNil(t, shopper.ByAffiliateID)
	assert.Equal(t, int64(1), *shopper.ByAffiliateID)
	assert.True(t, day.Equal(shopper.CreatedAt))

	assert.Equal(t, "other@example.com", batch.Rows[1].Email)

	ids, err := p.CustomerReferralIDs(ctx, shopper)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 104}, ids)

	next, err := p.Customers(ctx, 2, 10)
	require.NoError(t, err)
	assert.True(t, next.Empty())
}

func TestProvider_Payouts(t *testing.T) {
	batch, err := newProvider(seedAffiliateManager(t)).Payouts(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)

	payout := batch.Rows[0]
	assert.Equal(t, "affiliate_manager:102", *payout.Payout.Reference)
	assert.Equal(t, int64(102), payout.Transaction.ID)
	assert.Equal(t, "15", payout.Transaction.TotalAmount.String())
}

func TestProvider_VisitsAndLinks(t *testing.T) {
	ctx := context.Background()
	p := newProvider(seedAffiliateManager(t))

	batch, err := p.Visits(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "newsletter", batch.Rows[0].UTMSource)

	links, err := p.VisitLinks(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []source.VisitLink{{VisitID: 50, ProviderID: "7001"}}, links)
}
