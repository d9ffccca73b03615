// Package solidaffiliate reads Solid Affiliate tables.
package solidaffiliate

import (
	"context"
	"fmt"
	"strings"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/store/schema"
)

// Provider is the Solid Affiliate adapter
type Provider struct {
	wp    *source.WordPress
	clock adapter.Clock
}

// New creates a Solid Affiliate adapter
func New(wp *source.WordPress, clock adapter.Clock) *Provider {
	return &Provider{wp: wp, clock: clock}
}

func (p *Provider) Source() domain.Source {
	return domain.SourceSolidAffiliate
}

func (p *Provider) Detect(ctx context.Context) (bool, error) {
	return p.wp.PluginActive(ctx, PluginFile, TableAffiliates)
}

func (p *Provider) Counts(ctx context.Context) (domain.StageCounts, error) {
	tables := map[domain.Stage]string{
		domain.StageAffiliateGroups: TableAffiliateGroups,
		domain.StageAffiliates:      TableAffiliates,
		domain.StageReferrals:       TableReferrals,
		domain.StageCustomers:       TableCustomerLinks,
		domain.StagePayouts:         TablePayouts,
		domain.StageVisits:          TableVisits,
	}

	counts := domain.StageCounts{}
	for stage, table := range tables {
		n, err := p.wp.Count(ctx, table)
		if err != nil {
			return nil, err
		}
		counts[stage] = n
	}

	return counts, nil
}

// AffiliateGroups maps groups to affiliate group meta rows keyed by group name
func (p *Provider) AffiliateGroups(ctx context.Context, offset, limit int) (source.Batch[schema.Meta], error) {
	var batch source.Batch[schema.Meta]
	if !p.wp.HasTable(ctx, TableAffiliateGroups) {
		return batch, nil
	}

	var rows []AffiliateGroupRow
	err := p.wp.Query(ctx, TableAffiliateGroups).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read affiliate groups: %w", err)
	}
	batch.Fetched = len(rows)

	now := p.clock.Now()
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			name = fmt.Sprintf("Group #%d", row.ID)
		}

		meta, err := schema.NewAffiliateGroupMeta(row.ID, name, schema.AffiliateGroup{
			Rate:     source.ParseDecimal(row.CommissionRate),
			RateType: mapCommissionType(row.CommissionType, row.CommissionRate),
			Status:   groupStatus(row.Status),
		}, source.Timestamp(row.CreatedAt, now))
		if err != nil {
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.ID, Reason: err.Error()})
			continue
		}
		batch.Rows = append(batch.Rows, meta)
	}

	return batch, nil
}

func (p *Provider) Affiliates(ctx context.Context, offset, limit int) (source.Batch[source.AffiliateRecord], error) {
	var batch source.Batch[source.AffiliateRecord]
	if !p.wp.HasTable(ctx, TableAffiliates) {
		return batch, nil
	}

	var rows []AffiliateRow
	err := p.wp.Query(ctx, TableAffiliates).
		Order("id ASC").
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
		createdAt := source.Timestamp(row.CreatedAt, now)

		rateType := mapCommissionType(row.CommissionType, row.CommissionRate)
		if row.AffiliateGroupID > 0 {
			rateType = domain.RateTypeGroup
		}

		record := source.AffiliateRecord{
			Affiliate: schema.Affiliate{
				ID:           row.ID,
				UserID:       row.UserID,
				GroupID:      source.OptionalID(row.AffiliateGroupID),
				Rate:         source.ParseDecimal(row.CommissionRate),
				RateType:     rateType,
				PaymentEmail: strings.TrimSpace(row.PaymentEmail),
				Status:       mapAffiliateStatus(row.Status),
				CustomParam:  row.CustomSlug,
				CreatedAt:    createdAt,
				UpdatedAt:    createdAt,
			},
			User: schema.User{
				ID:        row.UserID,
				Email:     source.NormalizeEmail(row.PaymentEmail),
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
		}

		batch.Rows = append(batch.Rows, record)
	}

	return batch, nil
}

func (p *Provider) Referrals(ctx context.Context, offset, limit int) (source.Batch[schema.Referral], error) {
	var batch source.Batch[schema.Referral]
	if !p.wp.HasTable(ctx, TableReferrals) {
		return batch, nil
	}

	var rows []ReferralRow
	err := p.wp.Query(ctx, TableReferrals).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read referrals: %w", err)
	}
	batch.Fetched = len(rows)

	now := p.clock.Now()
	for _, row := range rows {
		if row.AffiliateID <= 0 {
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.ID, Reason: "referral has no affiliate"})
			continue
		}

		createdAt := source.Timestamp(row.CreatedAt, now)
		batch.Rows = append(batch.Rows, schema.Referral{
			ID:          row.ID,
			AffiliateID: row.AffiliateID,
			Description: row.Description,
			Amount:      source.ParseDecimal(row.CommissionAmount),
			OrderTotal:  source.ParseDecimal(row.OrderAmount),
			Status:      mapReferralStatus(row.Status),
			Type:        mapReferralType(row.ReferralType),
			Provider:    row.OrderSource,
			ProviderID:  row.OrderID,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
	}

	return batch, nil
}

// Customers maps affiliate customer links. The email comes from the linked user.
func (p *Provider) Customers(ctx context.Context, offset, limit int) (source.Batch[schema.Customer], error) {
	var batch source.Batch[schema.Customer]
	if !p.wp.HasTable(ctx, TableCustomerLinks) {
		return batch, nil
	}

	var rows []CustomerLinkRow
	err := p.wp.Query(ctx, TableCustomerLinks).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read customer links: %w", err)
	}
	batch.Fetched = len(rows)

	userIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		if row.CustomerID > 0 {
			userIDs = append(userIDs, row.CustomerID)
		}
	}
	users, err := p.wp.Users(ctx, userIDs)
	if err != nil {
		return batch, err
	}

	now := p.clock.Now()
	for _, row := range rows {
		user, ok := users[row.CustomerID]
		email := source.NormalizeEmail(user.UserEmail)
		if !ok || email == "" {
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.ID, Reason: "customer user not found"})
			continue
		}

		createdAt := source.Timestamp(row.CreatedAt, now)
		first, last, _ := strings.Cut(strings.TrimSpace(user.DisplayName), " ")
		batch.Rows = append(batch.Rows, schema.Customer{
			ID:            row.ID,
			UserID:        source.OptionalID(row.CustomerID),
			ByAffiliateID: source.OptionalID(row.AffiliateID),
			Email:         email,
			FirstName:     first,
			LastName:      last,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		})
	}

	return batch, nil
}

// Payouts maps payouts to transactions. Payouts of one bulk payout share a container.
func (p *Provider) Payouts(ctx context.Context, offset, limit int) (source.Batch[source.PayoutRecord], error) {
	var batch source.Batch[source.PayoutRecord]
	if !p.wp.HasTable(ctx, TablePayouts) {
		return batch, nil
	}

	var rows []PayoutRow
	err := p.wp.Query(ctx, TablePayouts).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read payouts: %w", err)
	}
	batch.Fetched = len(rows)

	now := p.clock.Now()
	for _, row := range rows {
		if row.AffiliateID <= 0 {
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.ID, Reason: "payout has no affiliate"})
			continue
		}

		createdAt := source.Timestamp(row.CreatedAt, now)
		amount := source.ParseDecimal(row.Amount)
		txnStatus := mapTransactionStatus(row.Status)

		reference := fmt.Sprintf("solid_payout:%d", row.ID)
		title := fmt.Sprintf("Solid Affiliate payout #%d", row.ID)
		if row.BulkPayoutID > 0 {
			reference = fmt.Sprintf("solid_bulk:%d", row.BulkPayoutID)
			title = fmt.Sprintf("Solid Affiliate bulk payout #%d", row.BulkPayoutID)
		}

		batch.Rows = append(batch.Rows, source.PayoutRecord{
			Payout: schema.Payout{
				Reference:    source.StringPtr(reference),
				Title:        title,
				PayoutMethod: row.PayoutMethod,
				Status:       payoutStatusFor(txnStatus),
				CreatedBy:    row.CreatedByUserID,
				CreatedAt:    createdAt,
				UpdatedAt:    createdAt,
			},
			Transaction: schema.PayoutTransaction{
				ID:           row.ID,
				AffiliateID:  row.AffiliateID,
				TotalAmount:  amount,
				PayoutMethod: row.PayoutMethod,
				Status:       txnStatus,
				CreatedBy:    row.CreatedByUserID,
				CreatedAt:    createdAt,
				UpdatedAt:    createdAt,
			},
		})
	}

	return batch, nil
}

func (p *Provider) Visits(ctx context.Context, offset, limit int) (source.Batch[schema.Visit], error) {
	var batch source.Batch[schema.Visit]
	if !p.wp.HasTable(ctx, TableVisits) {
		return batch, nil
	}

	var rows []VisitRow
	err := p.wp.Query(ctx, TableVisits).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read visits: %w", err)
	}
	batch.Fetched = len(rows)

	now := p.clock.Now()
	for _, row := range rows {
		if row.AffiliateID <= 0 {
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.ID, Reason: "visit has no affiliate"})
			continue
		}

		createdAt := source.Timestamp(row.CreatedAt, now)
		batch.Rows = append(batch.Rows, schema.Visit{
			ID:          row.ID,
			AffiliateID: row.AffiliateID,
			URL:         row.LandingURL,
			Referrer:    row.HTTPReferrer,
			IP:          row.IP,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
	}

	return batch, nil
}

// CustomerReferralIDs matches referrals by the customer's user and attributed affiliate
func (p *Provider) CustomerReferralIDs(ctx context.Context, customer schema.Customer) ([]int64, error) {
	if customer.UserID == nil || customer.ByAffiliateID == nil || !p.wp.HasTable(ctx, TableReferrals) {
		return nil, nil
	}

	var ids []int64
	err := p.wp.Query(ctx, TableReferrals).
		Where("customer_id = ? AND affiliate_id = ?", *customer.UserID, *customer.ByAffiliateID).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read customer referrals: %w", err)
	}

	return ids, nil
}

// VisitLinks returns visits that recorded the referral they converted into
func (p *Provider) VisitLinks(ctx context.Context, offset, limit int) ([]source.VisitLink, error) {
	if !p.wp.HasTable(ctx, TableVisits) {
		return nil, nil
	}

	var rows []VisitRow
	err := p.wp.Query(ctx, TableVisits).
		Select("id", "referral_id").
		Where("referral_id > 0").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read visit links: %w", err)
	}

	links := make([]source.VisitLink, 0, len(rows))
	for _, row := range rows {
		links = append(links, source.VisitLink{VisitID: row.ID, ReferralID: row.ReferralID})
	}

	return links, nil
}

// PayoutReferralIDs returns nil, Solid Affiliate payouts do not list their referrals
func (p *Provider) PayoutReferralIDs(ctx context.Context, transaction schema.PayoutTransaction) ([]int64, error) {
	return nil, nil
}

func mapAffiliateStatus(status string) domain.AffiliateStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved", "active":
		return domain.AffiliateStatusActive
	case "rejected", "inactive":
		return domain.AffiliateStatusInactive
	default:
		return domain.AffiliateStatusPending
	}
}

func groupStatus(status string) string {
	if strings.TrimSpace(status) == "" {
		return "active"
	}
	return strings.ToLower(strings.TrimSpace(status))
}

func mapCommissionType(commissionType, rate string) domain.RateType {
	if strings.TrimSpace(rate) == "" {
		return domain.RateTypeDefault
	}
	switch strings.ToLower(strings.TrimSpace(commissionType)) {
	case "percentage", "percent":
		return domain.RateTypePercentage
	case "flat", "fixed":
		return domain.RateTypeFlat
	default:
		return domain.RateTypeDefault
	}
}

func mapReferralStatus(status string) domain.ReferralStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "unpaid":
		return domain.ReferralStatusUnpaid
	case "rejected":
		return domain.ReferralStatusRejected
	default:
		return domain.ReferralStatusPending
	}
}

func mapReferralType(t string) domain.ReferralType {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "opt_in", "opt-in", "lead":
		return domain.ReferralTypeOptIn
	default:
		return domain.ReferralTypeSale
	}
}

func mapTransactionStatus(status string) domain.TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "failed":
		return domain.TransactionStatusFailed
	case "processing", "pending":
		return domain.TransactionStatusProcessing
	default:
		return domain.TransactionStatusPaid
	}
}

func payoutStatusFor(status domain.TransactionStatus) domain.PayoutStatus {
	switch status {
	case domain.TransactionStatusPaid:
		return domain.PayoutStatusPaid
	case domain.TransactionStatusProcessing:
		return domain.PayoutStatusProcessing
	default:
		return domain.PayoutStatusDraft
	}
}

var _ source.Provider = (*Provider)(nil)
