// Package affiliatewp reads AffiliateWP tables.
package affiliatewp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/store/schema"
)

// Provider is the AffiliateWP adapter
type Provider struct {
	wp    *source.WordPress
	clock adapter.Clock
}

// New creates an AffiliateWP adapter
func New(wp *source.WordPress, clock adapter.Clock) *Provider {
	return &Provider{wp: wp, clock: clock}
}

// Source returns the plugin this adapter reads
func (p *Provider) Source() domain.Source {
	return domain.SourceAffiliateWP
}

// Detect reports whether AffiliateWP is active
func (p *Provider) Detect(ctx context.Context) (bool, error) {
	return p.wp.PluginActive(ctx, PluginFile, TableAffiliates)
}

// Counts returns row counts per stage
func (p *Provider) Counts(ctx context.Context) (domain.StageCounts, error) {
	tables := map[domain.Stage]string{
		domain.StageAffiliates: TableAffiliates,
		domain.StageReferrals:  TableReferrals,
		domain.StageCustomers:  TableCustomers,
		domain.StagePayouts:    TablePayouts,
		domain.StageVisits:     TableVisits,
	}

	counts := domain.StageCounts{domain.StageAffiliateGroups: 0}
	for stage, table := range tables {
		n, err := p.wp.Count(ctx, table)
		if err != nil {
			return nil, err
		}
		counts[stage] = n
	}

	return counts, nil
}

// AffiliateGroups is a no-op, AffiliateWP has no affiliate groups
func (p *Provider) AffiliateGroups(ctx context.Context, offset, limit int) (source.Batch[schema.Meta], error) {
	return source.Batch[schema.Meta]{}, nil
}

// Affiliates returns a page of affiliates ordered by ID
func (p *Provider) Affiliates(ctx context.Context, offset, limit int) (source.Batch[source.AffiliateRecord], error) {
	var batch source.Batch[source.AffiliateRecord]
	if !p.wp.HasTable(ctx, TableAffiliates) {
		return batch, nil
	}

	var rows []AffiliateRow
	err := p.wp.Query(ctx, TableAffiliates).
		Order("affiliate_id ASC").
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
		createdAt := source.Timestamp(row.DateRegistered, now)
		rateType := mapRateType(row.RateType, row.Rate)

		settings := map[string]any{}
		if row.FlatRateBasis != "" {
			settings["flat_rate_basis"] = row.FlatRateBasis
		}

		record := source.AffiliateRecord{
			Affiliate: schema.Affiliate{
				ID:             row.AffiliateID,
				UserID:         row.UserID,
				Rate:           source.ParseDecimal(row.Rate),
				RateType:       rateType,
				PaymentEmail:   strings.TrimSpace(row.PaymentEmail),
				Status:         mapAffiliateStatus(row.Status),
				TotalEarnings:  source.ParseDecimal(row.Earnings),
				UnpaidEarnings: source.ParseDecimal(row.UnpaidEarnings),
				Referrals:      row.Referrals,
				Visits:         row.Visits,
				Settings:       source.MarshalSettings(settings),
				CreatedAt:      createdAt,
				UpdatedAt:      createdAt,
			},
			User: schema.User{
				ID:        row.UserID,
				Email:     source.NormalizeEmail(row.PaymentEmail),
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

// Referrals returns a page of referrals ordered by ID
func (p *Provider) Referrals(ctx context.Context, offset, limit int) (source.Batch[schema.Referral], error) {
	var batch source.Batch[schema.Referral]
	if !p.wp.HasTable(ctx, TableReferrals) {
		return batch, nil
	}

	var rows []ReferralRow
	err := p.wp.Query(ctx, TableReferrals).
		Order("referral_id ASC").
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
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.ReferralID, Reason: "referral has no affiliate"})
			continue
		}

		createdAt := source.Timestamp(row.Date, now)
		settings := map[string]any{}
		if row.Campaign != "" {
			settings["campaign"] = row.Campaign
		}
		if row.Custom != "" {
			settings["custom"] = row.Custom
		}

		batch.Rows = append(batch.Rows, schema.Referral{
			ID:          row.ReferralID,
			AffiliateID: row.AffiliateID,
			Description: row.Description,
			Amount:      source.ParseDecimal(row.Amount),
			OrderTotal:  decimal.Zero,
			Currency:    strings.ToUpper(row.Currency),
			Status:      mapReferralStatus(row.Status),
			Type:        mapReferralType(row.Type),
			Provider:    row.Context,
			ProviderID:  row.Reference,
			Products:    source.MaybeUnserialize(row.Products),
			Settings:    source.MarshalSettings(settings),
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
	}

	return batch, nil
}

// Customers returns a page of customers ordered by ID
func (p *Provider) Customers(ctx context.Context, offset, limit int) (source.Batch[schema.Customer], error) {
	var batch source.Batch[schema.Customer]
	if !p.wp.HasTable(ctx, TableCustomers) {
		return batch, nil
	}

	var rows []CustomerRow
	err := p.wp.Query(ctx, TableCustomers).
		Order("customer_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return batch, fmt.Errorf("failed to read customers: %w", err)
	}
	batch.Fetched = len(rows)

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.CustomerID)
	}
	attribution, err := p.customerAffiliates(ctx, ids)
	if err != nil {
		return batch, err
	}

	now := p.clock.Now()
	for _, row := range rows {
		email := source.NormalizeEmail(row.Email)
		if email == "" {
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.CustomerID, Reason: "customer has no email"})
			continue
		}

		createdAt := source.Timestamp(row.DateCreated, now)
		batch.Rows = append(batch.Rows, schema.Customer{
			ID:            row.CustomerID,
			UserID:        source.OptionalID(row.UserID),
			ByAffiliateID: source.OptionalID(attribution[row.CustomerID]),
			Email:         email,
			FirstName:     row.FirstName,
			LastName:      row.LastName,
			IP:            row.IP,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		})
	}

	return batch, nil
}

// customerAffiliates returns the affiliate each customer was first attributed to
func (p *Provider) customerAffiliates(ctx context.Context, customerIDs []int64) (map[int64]int64, error) {
	attribution := make(map[int64]int64, len(customerIDs))
	if len(customerIDs) == 0 || !p.wp.HasTable(ctx, TableCustomerMeta) {
		return attribution, nil
	}

	var metas []CustomerMetaRow
	err := p.wp.Query(ctx, TableCustomerMeta).
		Where("affwp_customer_id IN ? AND meta_key = ?", customerIDs, "affiliate_id").
		Order("meta_id ASC").
		Find(&metas).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read customer meta: %w", err)
	}

	for _, meta := range metas {
		if _, ok := attribution[meta.AffwpCustomerID]; ok {
			continue
		}
		if id, err := strconv.ParseInt(strings.TrimSpace(meta.MetaValue), 10, 64); err == nil {
			attribution[meta.AffwpCustomerID] = id
		}
	}

	return attribution, nil
}

// Payouts returns a page of payouts ordered by ID. Every AffiliateWP payout
// becomes a transaction in its own payout container.
func (p *Provider) Payouts(ctx context.Context, offset, limit int) (source.Batch[source.PayoutRecord], error) {
	var batch source.Batch[source.PayoutRecord]
	if !p.wp.HasTable(ctx, TablePayouts) {
		return batch, nil
	}

	var rows []PayoutRow
	err := p.wp.Query(ctx, TablePayouts).
		Order("payout_id ASC").
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
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.PayoutID, Reason: "payout has no affiliate"})
			continue
		}

		createdAt := source.Timestamp(row.Date, now)
		amount := source.ParseDecimal(row.Amount)
		txnStatus := mapTransactionStatus(row.Status)

		batch.Rows = append(batch.Rows, source.PayoutRecord{
			Payout: schema.Payout{
				Reference:    source.StringPtr(fmt.Sprintf("affwp:%d", row.PayoutID)),
				Title:        fmt.Sprintf("AffiliateWP payout #%d", row.PayoutID),
				Description:  row.Description,
				TotalAmount:  amount,
				PayoutMethod: row.PayoutMethod,
				Status:       payoutStatusFor(txnStatus),
				CreatedBy:    row.Owner,
				CreatedAt:    createdAt,
				UpdatedAt:    createdAt,
			},
			Transaction: schema.PayoutTransaction{
				ID:           row.PayoutID,
				AffiliateID:  row.AffiliateID,
				TotalAmount:  amount,
				PayoutMethod: row.PayoutMethod,
				Status:       txnStatus,
				CreatedBy:    row.Owner,
				CreatedAt:    createdAt,
				UpdatedAt:    createdAt,
			},
		})
	}

	return batch, nil
}

// Visits returns a page of visits ordered by ID
func (p *Provider) Visits(ctx context.Context, offset, limit int) (source.Batch[schema.Visit], error) {
	var batch source.Batch[schema.Visit]
	if !p.wp.HasTable(ctx, TableVisits) {
		return batch, nil
	}

	var rows []VisitRow
	err := p.wp.Query(ctx, TableVisits).
		Order("visit_id ASC").
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
			batch.Skipped = append(batch.Skipped, source.Skipped{ID: row.VisitID, Reason: "visit has no affiliate"})
			continue
		}

		createdAt := source.Timestamp(row.Date, now)
		batch.Rows = append(batch.Rows, schema.Visit{
			ID:          row.VisitID,
			AffiliateID: row.AffiliateID,
			URL:         row.URL,
			Referrer:    row.Referrer,
			IP:          row.IP,
			UTMCampaign: row.Campaign,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
	}

	return batch, nil
}

// CustomerReferralIDs returns the referrals recorded against the customer
func (p *Provider) CustomerReferralIDs(ctx context.Context, customer schema.Customer) ([]int64, error) {
	if !p.wp.HasTable(ctx, TableReferrals) {
		return nil, nil
	}

	var ids []int64
	err := p.wp.Query(ctx, TableReferrals).
		Where("customer_id = ?", customer.ID).
		Order("referral_id ASC").
		Pluck("referral_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read customer referrals: %w", err)
	}

	return ids, nil
}

// VisitLinks returns referrals that recorded the visit they converted from
func (p *Provider) VisitLinks(ctx context.Context, offset, limit int) ([]source.VisitLink, error) {
	if !p.wp.HasTable(ctx, TableReferrals) {
		return nil, nil
	}

	var rows []ReferralRow
	err := p.wp.Query(ctx, TableReferrals).
		Select("referral_id", "visit_id").
		Where("visit_id > 0").
		Order("referral_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read visit links: %w", err)
	}

	links := make([]source.VisitLink, 0, len(rows))
	for _, row := range rows {
		links = append(links, source.VisitLink{VisitID: row.VisitID, ReferralID: row.ReferralID})
	}

	return links, nil
}

// PayoutReferralIDs returns the referral list stored on the payout
func (p *Provider) PayoutReferralIDs(ctx context.Context, transaction schema.PayoutTransaction) ([]int64, error) {
	if !p.wp.HasTable(ctx, TablePayouts) {
		return nil, nil
	}

	var row PayoutRow
	err := p.wp.Query(ctx, TablePayouts).
		Where("payout_id = ?", transaction.ID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read payout referrals: %w", err)
	}

	return source.SplitIDs(row.Referrals), nil
}

func mapAffiliateStatus(status string) domain.AffiliateStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active":
		return domain.AffiliateStatusActive
	case "inactive", "rejected":
		return domain.AffiliateStatusInactive
	default:
		return domain.AffiliateStatusPending
	}
}

func mapRateType(rateType, rate string) domain.RateType {
	if strings.TrimSpace(rate) == "" {
		return domain.RateTypeDefault
	}
	switch strings.ToLower(strings.TrimSpace(rateType)) {
	case "percentage":
		return domain.RateTypePercentage
	case "flat":
		return domain.RateTypeFlat
	default:
		return domain.RateTypeDefault
	}
}

// mapReferralStatus never yields paid, that status is assigned by payout linking
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
	case "opt-in", "optin", "opt_in", "lead":
		return domain.ReferralTypeOptIn
	default:
		return domain.ReferralTypeSale
	}
}

func mapTransactionStatus(status string) domain.TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "processing":
		return domain.TransactionStatusProcessing
	case "failed":
		return domain.TransactionStatusFailed
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
