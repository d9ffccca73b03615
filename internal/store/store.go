package store

import (
	"context"
	"time"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/store/schema"
)

// PayoutCursor is the keyset position when walking payout transactions oldest-first
type PayoutCursor struct {
	CreatedAt time.Time
	ID        int64
}

// Store defines the interface for target database operations
type Store interface {
	// AutoMigrate creates or updates the target tables
	AutoMigrate(ctx context.Context) error
	// WithTransaction runs fn against a store bound to a single database transaction
	WithTransaction(ctx context.Context, fn func(tx Store) error) error
	// SyncSequences moves auto-increment sequences past explicitly inserted IDs
	SyncSequences(ctx context.Context) error

	// GetMigrationStatus retrieves the progress document for a source
	GetMigrationStatus(ctx context.Context, source domain.Source) (*domain.MigrationStatus, error)
	// UpdateMigrationStatus merges (or replaces when merge is false) and persists the progress document
	UpdateMigrationStatus(ctx context.Context, source domain.Source, status *domain.MigrationStatus, merge bool) (*domain.MigrationStatus, error)
	// ResetMigration removes migrated target rows and the progress document in one transaction
	ResetMigration(ctx context.Context, source domain.Source) error

	// GetUserByEmail retrieves a user by email, nil when absent
	GetUserByEmail(ctx context.Context, email string) (*schema.User, error)
	// GetUserByID retrieves a user by ID, nil when absent
	GetUserByID(ctx context.Context, id int64) (*schema.User, error)
	// CreateUser inserts a new user record
	CreateUser(ctx context.Context, user *schema.User) error

	// InsertAffiliateGroups inserts affiliate group meta rows, skipping existing IDs
	InsertAffiliateGroups(ctx context.Context, groups []schema.Meta) (int64, error)
	// InsertAffiliates inserts affiliates, skipping existing IDs
	InsertAffiliates(ctx context.Context, affiliates []schema.Affiliate) (int64, error)
	// InsertReferrals inserts referrals, skipping existing IDs
	InsertReferrals(ctx context.Context, referrals []schema.Referral) (int64, error)
	// InsertCustomers inserts customers, skipping existing IDs and emails
	InsertCustomers(ctx context.Context, customers []schema.Customer) (int64, error)
	// InsertVisits inserts visits, skipping existing IDs
	InsertVisits(ctx context.Context, visits []schema.Visit) (int64, error)
	// EnsurePayout returns the ID of the payout with the same reference, creating it when absent
	EnsurePayout(ctx context.Context, payout *schema.Payout) (int64, error)
	// InsertPayoutTransactions inserts payout transactions, skipping existing IDs
	InsertPayoutTransactions(ctx context.Context, transactions []schema.PayoutTransaction) (int64, error)

	// ListCustomers returns customers with ID greater than afterID ordered by ID
	ListCustomers(ctx context.Context, afterID int64, limit int) ([]schema.Customer, error)
	// LinkCustomerReferrals sets customer_id on the given referrals that have none
	LinkCustomerReferrals(ctx context.Context, customerID int64, referralIDs []int64) (int64, error)
	// ListReferralsWithoutVisit returns referrals with no visit, ID greater than afterID, ordered by ID
	ListReferralsWithoutVisit(ctx context.Context, afterID int64, limit int) ([]schema.Referral, error)
	// GetReferralByProviderID returns the first referral carrying the provider order ID, nil when absent
	GetReferralByProviderID(ctx context.Context, providerID string) (*schema.Referral, error)
	// FindLatestUnlinkedVisit returns the affiliate's latest visit without referral created at or before the given time
	FindLatestUnlinkedVisit(ctx context.Context, affiliateID int64, before time.Time) (*schema.Visit, error)
	// LinkVisitReferral links a visit and a referral in both directions, only filling unset fields
	LinkVisitReferral(ctx context.Context, visitID, referralID int64) (bool, error)
	// ListPayoutTransactions returns transactions after the cursor ordered by created_at, id
	ListPayoutTransactions(ctx context.Context, after PayoutCursor, limit int) ([]schema.PayoutTransaction, error)
	// LinkPayoutReferrals assigns unlinked unpaid referrals to a payout transaction and marks them paid.
	// When referralIDs is nil the affiliate's unpaid referrals created at or before the transaction are used.
	LinkPayoutReferrals(ctx context.Context, transaction schema.PayoutTransaction, referralIDs []int64) (int64, error)
	// RecountPayoutTotals sets every payout total to the sum of its transactions
	RecountPayoutTotals(ctx context.Context) error

	// ListAffiliateIDs returns affiliate IDs greater than afterID in ascending order
	ListAffiliateIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	// RecountAffiliateEarnings recomputes earnings and counters of one affiliate from its detail rows
	RecountAffiliateEarnings(ctx context.Context, affiliateID int64) error
	// GetAffiliateByID retrieves an affiliate, nil when absent
	GetAffiliateByID(ctx context.Context, id int64) (*schema.Affiliate, error)
	// GetReferralByID retrieves a referral, nil when absent
	GetReferralByID(ctx context.Context, id int64) (*schema.Referral, error)
	// CountMigrated returns target row counts per stage
	CountMigrated(ctx context.Context) (domain.StageCounts, error)
}
