package schema

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
)

// Referral represents the fa_referrals table - one attributed sale or conversion
type Referral struct {
	// ID is the primary key, preserved from the source plugin when migrated
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	AffiliateID int64  `gorm:"column:affiliate_id;not null;index"`
	CustomerID  *int64 `gorm:"column:customer_id;index"`
	VisitID     *int64 `gorm:"column:visit_id;index"`
	// PayoutID and PayoutTransactionID are filled by payout linking
	PayoutID            *int64                `gorm:"column:payout_id;index"`
	PayoutTransactionID *int64                `gorm:"column:payout_transaction_id"`
	Description         string                `gorm:"column:description;type:text"`
	Amount              decimal.Decimal       `gorm:"column:amount;type:decimal(18,4);not null"`
	OrderTotal          decimal.Decimal       `gorm:"column:order_total;type:decimal(18,4);not null"`
	Currency            string                `gorm:"column:currency;size:10"`
	Status              domain.ReferralStatus `gorm:"column:status;size:20;not null;index"`
	Type                domain.ReferralType   `gorm:"column:type;size:20;not null"`
	// Provider identifies the commerce integration, ProviderID the order in it
	Provider      string `gorm:"column:provider;size:100"`
	ProviderID    string `gorm:"column:provider_id;size:191;index"`
	ProviderSubID string `gorm:"column:provider_sub_id;size:191"`
	// Products is the list of purchased items as JSON
	Products  datatypes.JSON `gorm:"column:products"`
	Settings  datatypes.JSON `gorm:"column:settings"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for the Referral model
func (Referral) TableName() string {
	return "fa_referrals"
}
