package affiliatemanager

import "time"

// Table names without the WordPress prefix
const (
	TableAffiliates     = "aff_affiliates"
	TableTransactions   = "aff_transactions"
	TableTrackingTokens = "aff_tracking_tokens"
	TablePurchaseLogs   = "aff_tracking_tokens_purchase_logs"

	PluginFile = "affiliates-manager/boot-strap.php"
)

// Transaction types
const (
	TypeCredit     = "credit"
	TypeRefund     = "refund"
	TypeAdjustment = "adjustment"
	TypePayout     = "payout"
)

// ReferralTypes are the transaction types migrated as referrals.
// Adjustments are referrals too, leaving them out loses manual commissions.
var ReferralTypes = []string{TypeCredit, TypeRefund, TypeAdjustment}

// AffiliateRow is a row of aff_affiliates
type AffiliateRow struct {
	AffiliateID  int64     `gorm:"column:affiliateId;primaryKey"`
	UserID       int64     `gorm:"column:userId"`
	FirstName    string    `gorm:"column:firstName"`
	LastName     string    `gorm:"column:lastName"`
	Email        string    `gorm:"column:email"`
	Status       string    `gorm:"column:status"`
	BountyType   string    `gorm:"column:bountyType"`
	BountyAmount string    `gorm:"column:bountyAmount"`
	PaypalEmail  string    `gorm:"column:paypalEmail"`
	DateCreated  time.Time `gorm:"column:dateCreated"`
}

// TransactionRow is a row of aff_transactions
type TransactionRow struct {
	TransactionID int64     `gorm:"column:transactionId;primaryKey"`
	AffiliateID   int64     `gorm:"column:affiliateId"`
	Amount        string    `gorm:"column:amount"`
	DateCreated   time.Time `gorm:"column:dateCreated"`
	Description   string    `gorm:"column:description"`
	ReferenceID   string    `gorm:"column:referenceId"`
	Status        string    `gorm:"column:status"`
	Type          string    `gorm:"column:type"`
	Email         string    `gorm:"column:email"`
}

// TrackingTokenRow is a row of aff_tracking_tokens
type TrackingTokenRow struct {
	TrackingTokenID int64     `gorm:"column:trackingTokenId;primaryKey"`
	AffiliateID     int64     `gorm:"column:affiliateId"`
	Referer         string    `gorm:"column:referer"`
	SourceID        string    `gorm:"column:sourceId"`
	TrackingKey     string    `gorm:"column:trackingKey"`
	DateCreated     time.Time `gorm:"column:dateCreated"`
}

// PurchaseLogRow is a row of aff_tracking_tokens_purchase_logs
type PurchaseLogRow struct {
	TrackingTokenPurchaseLogID int64  `gorm:"column:trackingTokenPurchaseLogId;primaryKey"`
	TrackingTokenID            int64  `gorm:"column:trackingTokenId"`
	PurchaseLogID              string `gorm:"column:purchaseLogId"`
}
