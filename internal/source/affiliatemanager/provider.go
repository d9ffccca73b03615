// Package affiliatemanager reads Affiliates Manager tables.
package affiliatemanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/store/schema"
)

// providerName is recorded on referrals migrated from transactions
const providerName = "affiliate_manager"

// emailExpr normalizes transaction emails inside queries
const emailExpr = "LOWER(TRIM(email))"

// Provider is the Affiliates Manager adapter
type Provider struct {
	wp    *source.WordPress
	clock adapter.Clock
}

// New creates an Affiliates Manager adapter
func New(wp *source.WordPress, clock adapter.Clock) *Provider {
	return &Provider{wp: wp, clock: clock}
}

func (p *Provider) Source() domain.Source {
	return domain.SourceAffiliateManager
}

func (p *Provider) Detect(ctx context.Context) (bool, error) {
	return p.wp.PluginActive(ctx, PluginFile, TableAffiliates)
}

func (p *Provider) Counts(ctx context.Context) (domain.StageCounts, error) {
	counts := domain.StageCounts{domain.StageAffiliateGroups: 0}

	var err error
	if counts[domain.StageAffiliates], err = p.wp.Count(ctx, TableAffiliates); err != nil {
		return nil, err
	}
	if counts[domain.StageReferrals], err = p.wp.Count(ctx, TableTransactions, "type IN ?", ReferralTypes); err != nil {
		return nil, err
	}
	if counts[domain.StagePayouts], err = p.wp.Count(ctx, TableTransactions, "type = ?", TypePayout); err != nil {
		return nil, err
	}
	if counts[domain.StageVisits], err = p.wp.Count(ctx, TableTrackingTokens); err != nil {
		return nil, err
	}

	counts[domain.StageCustomers] = 0
	if p.wp.HasTable(ctx, TableTransactions) {
		var n int64
		err := p.wp.Query(ctx, TableTransactions).
			Select("COUNT(DISTINCT "+emailExpr+")").
			Where("type IN ? AND email <> ''", ReferralTypes).
			Scan(&n).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count customers: %w", err)
		}
		counts[domain.StageCustomers] = n
	}

	return counts, nil
}

// AffiliateGroups is a no-op, Affiliates Manager has no affiliate groups
func (p *Provider) AffiliateGroups(ctx context.Context, offset, limit int) (source.Batch[schema.Meta], error) {
	return source.Batch[schema.Meta]{}, nil
}

func (p *Provider) Affiliates(ctx context.Context, offset, limit int) (source.Batch[source.AffiliateRecord], error) {
	var batch source.Batch[source.AffiliateRecord]
	if !p.wp.HasTable(ctx, TableAffiliates) {
		return batch, nil
	}

	var rows []AffiliateRow
	err := p.wp.Query(ctx, TableAffiliates).
		Order("affiliateId ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read affiliates: %w", err)
	}
	batch.Fetched = len(rows)

	userIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		if row.UserID > 0 {
			userIDs = append(userIDs, row.UserID)
		}
	}
	users, err := p.wp.Users(ctx, userIDs)
	if err != nil {
		return batch, err
	}

	now := p.clock.Now()
	for _, row := range rows {
		createdAt := source.Timestamp(row.DateCreated, now)

		paymentEmail := strings.TrimSpace(row.PaypalEmail)
		if paymentEmail == "" {
			paymentEmail = strings.TrimSpace(row.Email)
		}

		record := source.AffiliateRecord{
			Affiliate: schema.Affiliate{
				ID:           row.AffiliateID,
				UserID:       row.UserID,
				Rate:         source.ParseDecimal(row.BountyAmount),
				RateType:     mapBountyType(row.BountyType, row.BountyAmount),
				PaymentEmail: paymentEmail,
				Status:       mapAffiliateStatus(row.Status),
				CreatedAt:    createdAt,
				UpdatedAt:    createdAt,
			},
			User: schema.User{
				ID:        row.UserID,
				Email:     source.NormalizeEmail(row.Email),
				FirstName: row.FirstName,
				LastName:  row.LastName,
				CreatedAt: createdAt,
			},
		}

		if user, ok := users[row.UserID]; ok {
			record.User.Login = user.UserLogin
			record.User.Email = source.NormalizeEmail(user.UserEmail)
			record.User.DisplayName = user.DisplayName
			record.User.CreatedAt = source.Timestamp(user.UserRegistered, createdAt)
		} else {
			// the affiliate row may reference a deleted user, resolve by email instead
			record.User.ID = 0
		}

		batch.Rows = append(batch.Rows, record)
	}

	return batch, nil
}

// Referrals maps credit, refund and adjustment transactions
func (p *Provider) Referrals(ctx context.Context, offset, limit int) (source.Batch[schema.Referral], error) {
	var batch source.Batch[schema.Referral]
	if !p.wp.HasTable(ctx, TableTransactions) {
		return batch, nil
	}

	var rows []TransactionRow
	err := p.wp.Query(ctx, TableTransactions).
		Where("type IN ?", ReferralTypes).
		Order("transactionId ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read referral transactions: %w", err)
	}
	batch.Fetched = len(rows)

	now := p.clock.Now()
	for _, row := range rows {
		if row.AffiliateID <= 0 {
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.TransactionID, Reason: "transaction has no affiliate"})
			continue
		}

		createdAt := source.Timestamp(row.DateCreated, now)
		batch.Rows = append(batch.Rows, schema.Referral{
			ID:          row.TransactionID,
			AffiliateID: row.AffiliateID,
			Description: row.Description,
			Amount:      source.ParseDecimal(row.Amount),
			Status:      mapReferralStatus(row.Status),
			Type:        domain.ReferralTypeSale,
			Provider:    providerName,
			ProviderID:  strings.TrimSpace(row.ReferenceID),
			Settings:    source.MarshalSettings(map[string]any{"transaction_type": row.Type}),
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
	}

	return batch, nil
}

type customerGroup struct {
	Email   string `gorm:"column:email"`
	FirstID int64  `gorm:"column:first_id"`
}

// Customers derives one customer per distinct transaction email, attributed to
// the affiliate of the earliest transaction. Target IDs are generated.
func (p *Provider) Customers(ctx context.Context, offset, limit int) (source.Batch[schema.Customer], error) {
	var batch source.Batch[schema.Customer]
	if !p.wp.HasTable(ctx, TableTransactions) {
		return batch, nil
	}

	var groups []customerGroup
	err := p.wp.Query(ctx, TableTransactions).
		Select(emailExpr+" AS email, MIN(transactionId) AS first_id").
		Where("type IN ? AND email <> ''", ReferralTypes).
		Group(emailExpr).
		Order("first_id ASC").
		Offset(offset).
		Limit(limit).
		Scan(&groups).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read customer emails: %w", err)
	}
	batch.Fetched = len(groups)
	if len(groups) == 0 {
		return batch, nil
	}

	firstIDs := make([]int64, 0, len(groups))
	for _, g := range groups {
		firstIDs = append(firstIDs, g.FirstID)
	}

	var firsts []TransactionRow
	err = p.wp.Query(ctx, TableTransactions).
		Where("transactionId IN ?", firstIDs).
		Find(&firsts).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read first transactions: %w", err)
	}
	byID := make(map[int64]TransactionRow, len(firsts))
	for _, t := range firsts {
		byID[t.TransactionID] = t
	}

	now := p.clock.Now()
	for _, g := range groups {
		first := byID[g.FirstID]
		createdAt := source.Timestamp(first.DateCreated, now)
		batch.Rows = append(batch.Rows, schema.Customer{
			ByAffiliateID: source.OptionalID(first.AffiliateID),
			Email:         g.Email,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		})
	}

	return batch, nil
}

// Payouts maps payout transactions, each in its own container
func (p *Provider) Payouts(ctx context.Context, offset, limit int) (source.Batch[source.PayoutRecord], error) {
	var batch source.Batch[source.PayoutRecord]
	if !p.wp.HasTable(ctx, TableTransactions) {
		return batch, nil
	}

	var rows []TransactionRow
	err := p.wp.Query(ctx, TableTransactions).
		Where("type = ?", TypePayout).
		Order("transactionId ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read payout transactions: %w", err)
	}
	batch.Fetched = len(rows)

	now := p.clock.Now()
	for _, row := range rows {
		if row.AffiliateID <= 0 {
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.TransactionID, Reason: "payout has no affiliate"})
			continue
		}

		createdAt := source.Timestamp(row.DateCreated, now)
		// payouts are stored as debits
		amount := source.ParseDecimal(row.Amount).Abs()

		batch.Rows = append(batch.Rows, source.PayoutRecord{
			Payout: schema.Payout{
				Reference:   source.StringPtr(fmt.Sprintf("affiliate_manager:%d", row.TransactionID)),
				Title:       fmt.Sprintf("Affiliates Manager payout #%d", row.TransactionID),
				Description: row.Description,
				TotalAmount: amount,
				Status:      domain.PayoutStatusPaid,
				CreatedAt:   createdAt,
				UpdatedAt:   createdAt,
			},
			Transaction: schema.PayoutTransaction{
				ID:          row.TransactionID,
				AffiliateID: row.AffiliateID,
				TotalAmount: amount,
				Status:      domain.TransactionStatusPaid,
				CreatedAt:   createdAt,
				UpdatedAt:   createdAt,
			},
		})
	}

	return batch, nil
}

// Visits maps tracking tokens
func (p *Provider) Visits(ctx context.Context, offset, limit int) (source.Batch[schema.Visit], error) {
	var batch source.Batch[schema.Visit]
	if !p.wp.HasTable(ctx, TableTrackingTokens) {
		return batch, nil
	}

	var rows []TrackingTokenRow
	err := p.wp.Query(ctx, TableTrackingTokens).
		Order("trackingTokenId ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read tracking tokens: %w", err)
	}
	batch.Fetched = len(rows)

	now := p.clock.Now()
	for _, row := range rows {
		if row.AffiliateID <= 0 {
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.TrackingTokenID, Reason: "tracking token has no affiliate"})
			continue
		}

		createdAt := source.Timestamp(row.DateCreated, now)
		batch.Rows = append(batch.Rows, schema.Visit{
			ID:          row.TrackingTokenID,
			AffiliateID: row.AffiliateID,
			Referrer:    row.Referer,
			UTMSource:   row.SourceID,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
	}

	return batch, nil
}

// CustomerReferralIDs matches referral transactions by email and attributed affiliate
func (p *Provider) CustomerReferralIDs(ctx context.Context, customer schema.Customer) ([]int64, error) {
	if customer.ByAffiliateID == nil || !p.wp.HasTable(ctx, TableTransactions) {
		return nil, nil
	}

	var ids []int64
	err := p.wp.Query(ctx, TableTransactions).
		Where("type IN ? AND affiliateId = ? AND "+emailExpr+" = ?", ReferralTypes, *customer.ByAffiliateID, source.NormalizeEmail(customer.Email)).
		Order("transactionId ASC").
		Pluck("transactionId", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read customer referrals: %w", err)
	}

	return ids, nil
}

// VisitLinks returns purchase logs, which reference referrals by order
func (p *Provider) VisitLinks(ctx context.Context, offset, limit int) ([]source.VisitLink, error) {
	if !p.wp.HasTable(ctx, TablePurchaseLogs) {
		return nil, nil
	}

	var rows []PurchaseLogRow
	err := p.wp.Query(ctx, TablePurchaseLogs).
		Order("trackingTokenPurchaseLogId ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read purchase logs: %w", err)
	}

	links := make([]source.VisitLink, 0, len(rows))
	for _, row := range rows {
		links = append(links, source.VisitLink{
			VisitID:    row.TrackingTokenID,
			ProviderID: strings.TrimSpace(row.PurchaseLogID),
		})
	}

	return links, nil
}

// PayoutReferralIDs returns nil, payouts do not list the transactions they settle
func (p *Provider) PayoutReferralIDs(ctx context.Context, transaction schema.PayoutTransaction) ([]int64, error) {
	return nil, nil
}

func mapAffiliateStatus(status string) domain.AffiliateStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved", "active":
		return domain.AffiliateStatusActive
	case "declined", "blocked", "inactive":
		return domain.AffiliateStatusInactive
	default:
		return domain.AffiliateStatusPending
	}
}

func mapBountyType(bountyType, amount string) domain.RateType {
	if strings.TrimSpace(amount) == "" {
		return domain.RateTypeDefault
	}
	switch strings.ToLower(strings.TrimSpace(bountyType)) {
	case "percent", "percentage":
		return domain.RateTypePercentage
	case "fixed", "flat":
		return domain.RateTypeFlat
	default:
		return domain.RateTypeDefault
	}
}

func mapReferralStatus(status string) domain.ReferralStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending":
		return domain.ReferralStatusPending
	case "failed", "refunded":
		return domain.ReferralStatusRejected
	default:
		return domain.ReferralStatusUnpaid
	}
}

var _ source.Provider = (*Provider)(nil)
