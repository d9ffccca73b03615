package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func buildTestAffiliate(id int64) schema.Affiliate {
	return schema.Affiliate{
		ID:             id,
		UserID:         id * 10,
		Rate:           decimal.NewFromInt(20),
		RateType:       domain.RateTypePercentage,
		Status:         domain.AffiliateStatusActive,
		TotalEarnings:  decimal.Zero,
		UnpaidEarnings: decimal.Zero,
		CreatedAt:      baseTime,
		UpdatedAt:      baseTime,
	}
}

func buildTestReferral(id, affiliateID int64, amount string, status domain.ReferralStatus, createdAt time.Time) schema.Referral {
	return schema.Referral{
		ID:          id,
		AffiliateID: affiliateID,
		Amount:      decimal.RequireFromString(amount),
		OrderTotal:  decimal.RequireFromString(amount).Mul(decimal.NewFromInt(5)),
		Currency:    "USD",
		Status:      status,
		Type:        domain.ReferralTypeSale,
		Provider:    "woo",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func buildTestVisit(id, affiliateID int64, createdAt time.Time) schema.Visit {
	return schema.Visit{
		ID:          id,
		AffiliateID: affiliateID,
		URL:         "https://shop.example.com/?ref=1",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func buildTestTransaction(id, payoutID, affiliateID int64, amount string, createdAt time.Time) schema.PayoutTransaction {
	return schema.PayoutTransaction{
		ID:          id,
		PayoutID:    payoutID,
		AffiliateID: affiliateID,
		TotalAmount: decimal.RequireFromString(amount),
		Currency:    "USD",
		Status:      domain.TransactionStatusPaid,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func stringPtr(s string) *string {
	return &s
}

// =============================================================================
// Suite
// =============================================================================

// runStoreTests runs the shared store behaviour tests against an implementation
func runStoreTests(t *testing.T, initDB func(t *testing.T) Store) {
	t.Run("migration status defaults to first stage", func(t *testing.T) {
		s := initDB(t)
		status, err := s.GetMigrationStatus(context.Background(), domain.SourceAffiliateWP)
		require.NoError(t, err)
		assert.Equal(t, domain.StageAffiliateGroups, status.CurrentStage)
		assert.Equal(t, 0, status.Cursor(domain.StageAffiliates))
	})

	t.Run("migration status merge and replace", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		initial := domain.NewMigrationStatus()
		initial.CurrentStage = domain.StageAffiliates
		initial.RunID = "run-1"
		_, err := s.UpdateMigrationStatus(ctx, domain.SourceAffiliateWP, initial, false)
		require.NoError(t, err)

		merged, err := s.UpdateMigrationStatus(ctx, domain.SourceAffiliateWP,
			&domain.MigrationStatus{Counts: map[domain.Stage]int{domain.StageAffiliates: 2}}, true)
		require.NoError(t, err)
		assert.Equal(t, domain.StageAffiliates, merged.CurrentStage)
		assert.Equal(t, 2, merged.Cursor(domain.StageAffiliates))
		assert.Equal(t, "run-1", merged.RunID)

		stored, err := s.GetMigrationStatus(ctx, domain.SourceAffiliateWP)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Cursor(domain.StageAffiliates))
		assert.Equal(t, "run-1", stored.RunID)

		replaced, err := s.UpdateMigrationStatus(ctx, domain.SourceAffiliateWP, domain.NewMigrationStatus(), false)
		require.NoError(t, err)
		assert.Equal(t, domain.StageAffiliateGroups, replaced.CurrentStage)
		assert.Empty(t, replaced.RunID)

		stored, err = s.GetMigrationStatus(ctx, domain.SourceAffiliateWP)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.Cursor(domain.StageAffiliates))
	})

	t.Run("migration status is namespaced by source", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		status := domain.NewMigrationStatus()
		status.CurrentStage = domain.StageVisits
		_, err := s.UpdateMigrationStatus(ctx, domain.SourceSolidAffiliate, status, false)
		require.NoError(t, err)

		other, err := s.GetMigrationStatus(ctx, domain.SourceAffiliateManager)
		require.NoError(t, err)
		assert.Equal(t, domain.StageAffiliateGroups, other.CurrentStage)

		solid, err := s.GetMigrationStatus(ctx, domain.SourceSolidAffiliate)
		require.NoError(t, err)
		assert.Equal(t, domain.StageVisits, solid.CurrentStage)
	})

	t.Run("insert preserves ids and skips existing rows", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		n, err := s.InsertAffiliates(ctx, []schema.Affiliate{buildTestAffiliate(7), buildTestAffiliate(42)})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = s.InsertAffiliates(ctx, []schema.Affiliate{buildTestAffiliate(42)})
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		affiliate, err := s.GetAffiliateByID(ctx, 42)
		require.NoError(t, err)
		require.NotNil(t, affiliate)
		assert.EqualValues(t, 420, affiliate.UserID)

		counts, err := s.CountMigrated(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, counts[domain.StageAffiliates])

		n, err = s.InsertAffiliates(ctx, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})

	t.Run("customers are unique by email", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		n, err := s.InsertCustomers(ctx, []schema.Customer{
			{ID: 1, Email: "buyer@example.com", CreatedAt: baseTime, UpdatedAt: baseTime},
			{ID: 2, Email: "other@example.com", CreatedAt: baseTime, UpdatedAt: baseTime},
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = s.InsertCustomers(ctx, []schema.Customer{
			{ID: 3, Email: "buyer@example.com", CreatedAt: baseTime, UpdatedAt: baseTime},
		})
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		customers, err := s.ListCustomers(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, customers, 2)
		assert.EqualValues(t, 1, customers[0].ID)

		customers, err = s.ListCustomers(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, customers, 1)
		assert.EqualValues(t, 2, customers[0].ID)
	})

	t.Run("customer linking only fills empty customer ids", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		_, err := s.InsertReferrals(ctx, []schema.Referral{
			buildTestReferral(1, 1, "10", domain.ReferralStatusUnpaid, baseTime),
			buildTestReferral(2, 1, "10", domain.ReferralStatusUnpaid, baseTime),
		})
		require.NoError(t, err)

		n, err := s.LinkCustomerReferrals(ctx, 5, []int64{1, 2, 99})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = s.LinkCustomerReferrals(ctx, 6, []int64{1, 2})
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		referral, err := s.GetReferralByID(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, referral.CustomerID)
		assert.EqualValues(t, 5, *referral.CustomerID)

		n, err = s.LinkCustomerReferrals(ctx, 6, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})

	t.Run("visit linking picks the latest preceding unlinked visit", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		_, err := s.InsertVisits(ctx, []schema.Visit{
			buildTestVisit(1, 1, baseTime.Add(-2*time.Hour)),
			buildTestVisit(2, 1, baseTime.Add(-time.Hour)),
			buildTestVisit(3, 1, baseTime.Add(time.Hour)),
			buildTestVisit(4, 2, baseTime.Add(-30*time.Minute)),
		})
		require.NoError(t, err)
		_, err = s.InsertReferrals(ctx, []schema.Referral{
			buildTestReferral(10, 1, "5", domain.ReferralStatusUnpaid, baseTime),
		})
		require.NoError(t, err)

		visit, err := s.FindLatestUnlinkedVisit(ctx, 1, baseTime)
		require.NoError(t, err)
		require.NotNil(t, visit)
		assert.EqualValues(t, 2, visit.ID)

		linked, err := s.LinkVisitReferral(ctx, visit.ID, 10)
		require.NoError(t, err)
		assert.True(t, linked)

		linked, err = s.LinkVisitReferral(ctx, visit.ID, 10)
		require.NoError(t, err)
		assert.False(t, linked)

		visit, err = s.FindLatestUnlinkedVisit(ctx, 1, baseTime)
		require.NoError(t, err)
		require.NotNil(t, visit)
		assert.EqualValues(t, 1, visit.ID)

		referral, err := s.GetReferralByID(ctx, 10)
		require.NoError(t, err)
		require.NotNil(t, referral.VisitID)
		assert.EqualValues(t, 2, *referral.VisitID)

		remaining, err := s.ListReferralsWithoutVisit(ctx, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, remaining)

		linked, err = s.LinkVisitReferral(ctx, 999, 10)
		require.NoError(t, err)
		assert.False(t, linked)
	})

	t.Run("visit linking never leaves a half link", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		_, err := s.InsertVisits(ctx, []schema.Visit{
			buildTestVisit(1, 1, baseTime.Add(-time.Hour)),
			buildTestVisit(2, 1, baseTime.Add(-30*time.Minute)),
		})
		require.NoError(t, err)
		_, err = s.InsertReferrals(ctx, []schema.Referral{
			buildTestReferral(10, 1, "5", domain.ReferralStatusUnpaid, baseTime),
			buildTestReferral(11, 1, "5", domain.ReferralStatusUnpaid, baseTime),
		})
		require.NoError(t, err)

		linked, err := s.LinkVisitReferral(ctx, 1, 10)
		require.NoError(t, err)
		assert.True(t, linked)

		// referral 10 already owns visit 1
		linked, err = s.LinkVisitReferral(ctx, 2, 10)
		require.NoError(t, err)
		assert.False(t, linked)

		// visit 1 already belongs to referral 10
		linked, err = s.LinkVisitReferral(ctx, 1, 11)
		require.NoError(t, err)
		assert.False(t, linked)

		visit, err := s.FindLatestUnlinkedVisit(ctx, 1, baseTime)
		require.NoError(t, err)
		require.NotNil(t, visit)
		assert.EqualValues(t, 2, visit.ID)

		other, err := s.GetReferralByID(ctx, 11)
		require.NoError(t, err)
		assert.Nil(t, other.VisitID)

		referral, err := s.GetReferralByID(ctx, 10)
		require.NoError(t, err)
		require.NotNil(t, referral.VisitID)
		assert.EqualValues(t, 1, *referral.VisitID)
	})

	t.Run("payout linking respects transaction date and is idempotent", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		_, err := s.InsertReferrals(ctx, []schema.Referral{
			buildTestReferral(1, 1, "10", domain.ReferralStatusUnpaid, baseTime.Add(-48*time.Hour)),
			buildTestReferral(2, 1, "20", domain.ReferralStatusUnpaid, baseTime.Add(48*time.Hour)),
			buildTestReferral(3, 1, "30", domain.ReferralStatusPending, baseTime.Add(-48*time.Hour)),
			buildTestReferral(4, 2, "40", domain.ReferralStatusUnpaid, baseTime.Add(-48*time.Hour)),
		})
		require.NoError(t, err)

		payoutID, err := s.EnsurePayout(ctx, &schema.Payout{
			Reference: stringPtr("test:1"),
			Status:    domain.PayoutStatusPaid,
			CreatedAt: baseTime,
			UpdatedAt: baseTime,
		})
		require.NoError(t, err)

		again, err := s.EnsurePayout(ctx, &schema.Payout{
			Reference: stringPtr("test:1"),
			Status:    domain.PayoutStatusPaid,
			CreatedAt: baseTime,
			UpdatedAt: baseTime,
		})
		require.NoError(t, err)
		assert.Equal(t, payoutID, again)

		txn := buildTestTransaction(100, payoutID, 1, "10", baseTime)
		_, err = s.InsertPayoutTransactions(ctx, []schema.PayoutTransaction{txn})
		require.NoError(t, err)

		n, err := s.LinkPayoutReferrals(ctx, txn, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = s.LinkPayoutReferrals(ctx, txn, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		paid, err := s.GetReferralByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.ReferralStatusPaid, paid.Status)
		require.NotNil(t, paid.PayoutID)
		assert.Equal(t, payoutID, *paid.PayoutID)
		require.NotNil(t, paid.PayoutTransactionID)
		assert.EqualValues(t, 100, *paid.PayoutTransactionID)

		later, err := s.GetReferralByID(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, domain.ReferralStatusUnpaid, later.Status)
		assert.Nil(t, later.PayoutID)

		pending, err := s.GetReferralByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.ReferralStatusPending, pending.Status)

		otherAffiliate, err := s.GetReferralByID(ctx, 4)
		require.NoError(t, err)
		assert.Nil(t, otherAffiliate.PayoutID)

		require.NoError(t, s.RecountPayoutTotals(ctx))
		transactions, err := s.ListPayoutTransactions(ctx, PayoutCursor{}, 10)
		require.NoError(t, err)
		require.Len(t, transactions, 1)

		transactions, err = s.ListPayoutTransactions(ctx, PayoutCursor{CreatedAt: txn.CreatedAt, ID: txn.ID}, 10)
		require.NoError(t, err)
		assert.Empty(t, transactions)
	})

	t.Run("explicit payout referral list", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		_, err := s.InsertReferrals(ctx, []schema.Referral{
			buildTestReferral(1, 1, "10", domain.ReferralStatusUnpaid, baseTime.Add(48*time.Hour)),
			buildTestReferral(2, 1, "10", domain.ReferralStatusRejected, baseTime),
			buildTestReferral(3, 1, "10", domain.ReferralStatusPending, baseTime),
		})
		require.NoError(t, err)

		txn := buildTestTransaction(5, 1, 1, "10", baseTime)
		n, err := s.LinkPayoutReferrals(ctx, txn, []int64{1, 2, 3})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		paid, err := s.GetReferralByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.ReferralStatusPaid, paid.Status)

		// a listed referral still awaiting approval is never settled by the payout
		pending, err := s.GetReferralByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.ReferralStatusPending, pending.Status)
		assert.Nil(t, pending.PayoutID)
		assert.Nil(t, pending.PayoutTransactionID)

		n, err = s.LinkPayoutReferrals(ctx, txn, []int64{})
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})

	t.Run("earnings recount", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		_, err := s.InsertAffiliates(ctx, []schema.Affiliate{buildTestAffiliate(1), buildTestAffiliate(2)})
		require.NoError(t, err)
		_, err = s.InsertReferrals(ctx, []schema.Referral{
			buildTestReferral(1, 1, "10.5", domain.ReferralStatusPaid, baseTime),
			buildTestReferral(2, 1, "20.25", domain.ReferralStatusUnpaid, baseTime),
			buildTestReferral(3, 1, "100", domain.ReferralStatusRejected, baseTime),
			buildTestReferral(4, 1, "7", domain.ReferralStatusPending, baseTime),
		})
		require.NoError(t, err)
		_, err = s.InsertVisits(ctx, []schema.Visit{
			buildTestVisit(1, 1, baseTime),
			buildTestVisit(2, 1, baseTime),
			buildTestVisit(3, 2, baseTime),
		})
		require.NoError(t, err)

		require.NoError(t, s.RecountAffiliateEarnings(ctx, 1))
		require.NoError(t, s.RecountAffiliateEarnings(ctx, 2))

		affiliate, err := s.GetAffiliateByID(ctx, 1)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("30.75").Equal(affiliate.TotalEarnings), affiliate.TotalEarnings.String())
		assert.True(t, decimal.RequireFromString("20.25").Equal(affiliate.UnpaidEarnings), affiliate.UnpaidEarnings.String())
		assert.EqualValues(t, 4, affiliate.Referrals)
		assert.EqualValues(t, 2, affiliate.Visits)

		empty, err := s.GetAffiliateByID(ctx, 2)
		require.NoError(t, err)
		assert.True(t, empty.TotalEarnings.IsZero())
		assert.EqualValues(t, 0, empty.Referrals)
		assert.EqualValues(t, 1, empty.Visits)

		ids, err := s.ListAffiliateIDs(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, ids)
	})

	t.Run("reset removes migrated rows and status in one step", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		require.NoError(t, s.CreateUser(ctx, &schema.User{Login: "a@example.com", Email: "a@example.com", CreatedAt: baseTime}))
		_, err := s.InsertAffiliates(ctx, []schema.Affiliate{buildTestAffiliate(1)})
		require.NoError(t, err)
		_, err = s.InsertReferrals(ctx, []schema.Referral{buildTestReferral(1, 1, "1", domain.ReferralStatusUnpaid, baseTime)})
		require.NoError(t, err)
		group, err := schema.NewAffiliateGroupMeta(3, "Gold", schema.AffiliateGroup{Rate: decimal.NewFromInt(15), RateType: domain.RateTypePercentage, Status: "active"}, baseTime)
		require.NoError(t, err)
		_, err = s.InsertAffiliateGroups(ctx, []schema.Meta{group})
		require.NoError(t, err)

		status := domain.NewMigrationStatus()
		status.CurrentStage = domain.StageCompleted
		_, err = s.UpdateMigrationStatus(ctx, domain.SourceAffiliateWP, status, false)
		require.NoError(t, err)

		require.NoError(t, s.ResetMigration(ctx, domain.SourceAffiliateWP))

		counts, err := s.CountMigrated(ctx)
		require.NoError(t, err)
		assert.Zero(t, counts.Total())

		stored, err := s.GetMigrationStatus(ctx, domain.SourceAffiliateWP)
		require.NoError(t, err)
		assert.Equal(t, domain.StageAffiliateGroups, stored.CurrentStage)

		user, err := s.GetUserByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		assert.NotNil(t, user)
	})

	t.Run("transaction rolls back every write", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		err := s.WithTransaction(ctx, func(tx Store) error {
			if _, err := tx.InsertAffiliates(ctx, []schema.Affiliate{buildTestAffiliate(1)}); err != nil {
				return err
			}
			status := domain.NewMigrationStatus()
			status.SetCursor(domain.StageAffiliates, 1)
			if _, err := tx.UpdateMigrationStatus(ctx, domain.SourceAffiliateWP, status, true); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		affiliate, err := s.GetAffiliateByID(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, affiliate)

		status, err := s.GetMigrationStatus(ctx, domain.SourceAffiliateWP)
		require.NoError(t, err)
		assert.Equal(t, 0, status.Cursor(domain.StageAffiliates))
	})

	t.Run("users lookup", func(t *testing.T) {
		s := initDB(t)
		ctx := context.Background()

		missing, err := s.GetUserByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, missing)

		user := &schema.User{Login: "jane", Email: "jane@example.com", CreatedAt: baseTime}
		require.NoError(t, s.CreateUser(ctx, user))
		assert.NotZero(t, user.ID)

		found, err := s.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "jane@example.com", found.Email)
	})
}
