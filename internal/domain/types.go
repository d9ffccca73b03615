package domain

import (
	"fmt"
	"strings"
)

// Source identifies a legacy affiliate plugin whose data can be migrated
type Source string

const (
	SourceAffiliateWP      Source = "affiliate_wp"
	SourceSolidAffiliate   Source = "solid_affiliate"
	SourceAffiliateManager Source = "affiliate_manager"
)

// Sources returns every supported migration source in display order
func Sources() []Source {
	return []Source{SourceAffiliateWP, SourceSolidAffiliate, SourceAffiliateManager}
}

// Valid checks if the source is one of the supported plugins
func (s Source) Valid() bool {
	return s == SourceAffiliateWP ||
		s == SourceSolidAffiliate ||
		s == SourceAffiliateManager
}

// ParseSource parses a source identifier, accepting the option prefixes as aliases
func ParseSource(value string) (Source, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "affwp", "affiliatewp":
		return SourceAffiliateWP, nil
	case "solid", "solidaffiliate":
		return SourceSolidAffiliate, nil
	case "affiliatemanager":
		return SourceAffiliateManager, nil
	}

	s := Source(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, value)
	}
	return s, nil
}

// OptionPrefix returns the namespace used for persisted migration state
func (s Source) OptionPrefix() string {
	switch s {
	case SourceAffiliateWP:
		return "affwp"
	case SourceSolidAffiliate:
		return "solid"
	case SourceAffiliateManager:
		return "affiliate_manager"
	default:
		return string(s)
	}
}

// DisplayName returns the plugin name shown to operators
func (s Source) DisplayName() string {
	switch s {
	case SourceAffiliateWP:
		return "AffiliateWP"
	case SourceSolidAffiliate:
		return "Solid Affiliate"
	case SourceAffiliateManager:
		return "Affiliate Manager"
	default:
		return string(s)
	}
}

// AffiliateStatus represents the status of a target affiliate
type AffiliateStatus string

const (
	AffiliateStatusPending  AffiliateStatus = "pending"
	AffiliateStatusActive   AffiliateStatus = "active"
	AffiliateStatusInactive AffiliateStatus = "inactive"
)

// RateType represents how an affiliate's commission rate is applied
type RateType string

const (
	RateTypeDefault    RateType = "default"
	RateTypeGroup      RateType = "group"
	RateTypeFlat       RateType = "flat"
	RateTypePercentage RateType = "percentage"
)

// ReferralStatus represents the lifecycle status of a referral
type ReferralStatus string

const (
	ReferralStatusPending    ReferralStatus = "pending"
	ReferralStatusUnpaid     ReferralStatus = "unpaid"
	ReferralStatusProcessing ReferralStatus = "processing"
	ReferralStatusPaid       ReferralStatus = "paid"
	ReferralStatusRejected   ReferralStatus = "rejected"
)

// ReferralType distinguishes sales from opt-in conversions
type ReferralType string

const (
	ReferralTypeSale  ReferralType = "sale"
	ReferralTypeOptIn ReferralType = "opt_in"
)

// PayoutStatus represents the status of a payout batch
type PayoutStatus string

const (
	PayoutStatusDraft      PayoutStatus = "draft"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
)

// TransactionStatus represents the status of one affiliate's payout line
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusPaid       TransactionStatus = "paid"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// MetaObjectAffiliateGroup is the meta object type holding affiliate groups
const MetaObjectAffiliateGroup = "affiliate_group"

// StageCounts holds a row count per migration stage
type StageCounts map[Stage]int64

// Total returns the sum of all stage counts
func (c StageCounts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}
