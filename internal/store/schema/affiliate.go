package schema

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
)

// Affiliate represents the fa_affiliates table - users earning commission for referred sales
type Affiliate struct {
	// ID is the primary key, preserved from the source plugin when migrated
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// UserID links the affiliate to its user record
	UserID int64 `gorm:"column:user_id;not null;index"`
	// GroupID references the affiliate group meta row, if any
	GroupID *int64 `gorm:"column:group_id;index"`
	// Rate is the commission rate; its meaning depends on RateType
	Rate     decimal.Decimal `gorm:"column:rate;type:decimal(10,4);not null"`
	RateType domain.RateType `gorm:"column:rate_type;size:20;not null"`
	// PaymentEmail is where payouts are sent
	PaymentEmail string                 `gorm:"column:payment_email;size:191"`
	Status       domain.AffiliateStatus `gorm:"column:status;size:20;not null;index"`
	// Aggregates below are maintained by the earnings recount, never by triggers
	TotalEarnings  decimal.Decimal `gorm:"column:total_earnings;type:decimal(18,4);not null"`
	UnpaidEarnings decimal.Decimal `gorm:"column:unpaid_earnings;type:decimal(18,4);not null"`
	Referrals      int64           `gorm:"column:referrals;not null"`
	Visits         int64           `gorm:"column:visits;not null"`
	CustomParam    string          `gorm:"column:custom_param;size:100"`
	Note           string          `gorm:"column:note;type:text"`
	// Settings is a free-form key-value bag
	Settings  datatypes.JSON `gorm:"column:settings"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for the Affiliate model
func (Affiliate) TableName() string {
	return "fa_affiliates"
}
