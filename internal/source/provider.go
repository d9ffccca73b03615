// Package source reads legacy affiliate plugin tables and maps their rows onto
// the target schema. Adapters never write to the foreign tables.
package source

import (
	"context"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/store/schema"
)

// Batch is one page of mapped source rows
type Batch[T any] struct {
	// Rows are the mapped target rows
	Rows []T
	// Fetched is the number of source rows read. The stage cursor advances by
	// this amount even when rows were skipped.
	Fetched int
	// Skipped lists source rows that could not be mapped
	Skipped []Skipped
}

// Skipped identifies a source row left out of a batch
type Skipped struct {
	ID     int64
	Reason string
}

// Empty reports whether the source has no more rows for the stage
func (b Batch[T]) Empty() bool {
	return b.Fetched == 0
}

// AffiliateRecord is a mapped affiliate together with the identity of its user
type AffiliateRecord struct {
	Affiliate schema.Affiliate
	// User carries the source user. ID is zero when the source affiliate has no linked user.
	User schema.User
}

// PayoutRecord is one source payout mapped to a payout container and its transaction
type PayoutRecord struct {
	// Payout is the container; records sharing a Reference share one container
	Payout      schema.Payout
	Transaction schema.PayoutTransaction
}

// VisitLink is an explicit visit to referral relation recorded by the source plugin
type VisitLink struct {
	VisitID int64
	// ReferralID is set when the source references the referral directly
	ReferralID int64
	// ProviderID is the order reference used when ReferralID is unknown
	ProviderID string
}

// Provider is a read-only adapter over one legacy plugin's tables
//
//go:generate mockgen -source=provider.go -destination=../mocks/provider.go -package=mocks -mock_names=Provider=MockProvider
type Provider interface {
	// Source returns the plugin this adapter reads
	Source() domain.Source
	// Detect reports whether the plugin is active on the WordPress install
	Detect(ctx context.Context) (bool, error)
	// Counts returns row counts per stage, zero for absent tables
	Counts(ctx context.Context) (domain.StageCounts, error)

	// AffiliateGroups returns a page of affiliate groups
	AffiliateGroups(ctx context.Context, offset, limit int) (Batch[schema.Meta], error)
	// Affiliates returns a page of affiliates
	Affiliates(ctx context.Context, offset, limit int) (Batch[AffiliateRecord], error)
	// Referrals returns a page of referrals
	Referrals(ctx context.Context, offset, limit int) (Batch[schema.Referral], error)
	// Customers returns a page of customers
	Customers(ctx context.Context, offset, limit int) (Batch[schema.Customer], error)
	// Payouts returns a page of payouts
	Payouts(ctx context.Context, offset, limit int) (Batch[PayoutRecord], error)
	// Visits returns a page of visits
	Visits(ctx context.Context, offset, limit int) (Batch[schema.Visit], error)

	// CustomerReferralIDs returns the source referral IDs belonging to a migrated customer
	CustomerReferralIDs(ctx context.Context, customer schema.Customer) ([]int64, error)
	// VisitLinks returns a page of explicit visit links, empty when the source keeps none
	VisitLinks(ctx context.Context, offset, limit int) ([]VisitLink, error)
	// PayoutReferralIDs returns the explicit referral list of a migrated transaction,
	// nil when the source does not record one
	PayoutReferralIDs(ctx context.Context, transaction schema.PayoutTransaction) ([]int64, error)
}
