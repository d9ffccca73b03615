package schema

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
)

// Payout represents the fa_payouts table - a batch payment container
type Payout struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Reference identifies the source batch a migrated payout was built from
	Reference   *string         `gorm:"column:reference;size:191;uniqueIndex"`
	Title       string          `gorm:"column:title;size:191"`
	Description string          `gorm:"column:description;type:text"`
	// TotalAmount equals the sum of its transactions after a payout recount
	TotalAmount  decimal.Decimal     `gorm:"column:total_amount;type:decimal(18,4);not null"`
	Currency     string              `gorm:"column:currency;size:10"`
	PayoutMethod string              `gorm:"column:payout_method;size:50"`
	Status       domain.PayoutStatus `gorm:"column:status;size:20;not null"`
	CreatedBy    int64               `gorm:"column:created_by;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for the Payout model
func (Payout) TableName() string {
	return "fa_payouts"
}

// PayoutTransaction represents the fa_payout_transactions table - one affiliate's slice of a payout
type PayoutTransaction struct {
	// ID is the primary key, preserved from the source plugin when migrated
	ID           int64                    `gorm:"column:id;primaryKey;autoIncrement"`
	PayoutID     int64                    `gorm:"column:payout_id;not null;index"`
	AffiliateID  int64                    `gorm:"column:affiliate_id;not null;index"`
	TotalAmount  decimal.Decimal          `gorm:"column:total_amount;type:decimal(18,4);not null"`
	Currency     string                   `gorm:"column:currency;size:10"`
	PayoutMethod string                   `gorm:"column:payout_method;size:50"`
	Status       domain.TransactionStatus `gorm:"column:status;size:20;not null"`
	CreatedBy    int64                    `gorm:"column:created_by;not null"`
	CreatedAt    time.Time                `gorm:"column:created_at;not null;index"`
	UpdatedAt    time.Time                `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for the PayoutTransaction model
func (PayoutTransaction) TableName() string {
	return "fa_payout_transactions"
}
