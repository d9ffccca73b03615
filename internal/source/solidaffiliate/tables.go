package solidaffiliate

import "time"

// Table names without the WordPress prefix
const (
	TableAffiliateGroups = "solid_affiliate_affiliate_groups"
	TableAffiliates      = "solid_affiliate_affiliates"
	TableReferrals       = "solid_affiliate_referrals"
	TableCustomerLinks   = "solid_affiliate_affiliate_customer_links"
	TablePayouts         = "solid_affiliate_payouts"
	TableVisits          = "solid_affiliate_visits"

	PluginFile = "solid-affiliate/plugin.php"
)

// AffiliateGroupRow is a row of solid_affiliate_affiliate_groups
type AffiliateGroupRow struct {
	ID             int64     `gorm:"column:id;primaryKey"`
	Name           string    `gorm:"column:name"`
	CommissionType string    `gorm:"column:commission_type"`
	CommissionRate string    `gorm:"column:commission_rate"`
	Status         string    `gorm:"column:status"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// AffiliateRow is a row of solid_affiliate_affiliates
type AffiliateRow struct {
	ID               int64     `gorm:"column:id;primaryKey"`
	UserID           int64     `gorm:"column:user_id"`
	AffiliateGroupID int64     `gorm:"column:affiliate_group_id"`
	CommissionType   string    `gorm:"column:commission_type"`
	CommissionRate   string    `gorm:"column:commission_rate"`
	PaymentEmail     string    `gorm:"column:payment_email"`
	FirstName        string    `gorm:"column:first_name"`
	LastName         string    `gorm:"column:last_name"`
	Status           string    `gorm:"column:status"`
	CustomSlug       string    `gorm:"column:custom_slug"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

// ReferralRow is a row of solid_affiliate_referrals
type ReferralRow struct {
	ID               int64     `gorm:"column:id;primaryKey"`
	AffiliateID      int64     `gorm:"column:affiliate_id"`
	VisitID          int64     `gorm:"column:visit_id"`
	CustomerID       int64     `gorm:"column:customer_id"`
	ReferralType     string    `gorm:"column:referral_type"`
	Description      string    `gorm:"column:description"`
	OrderSource      string    `gorm:"column:order_source"`
	OrderID          string    `gorm:"column:order_id"`
	OrderAmount      string    `gorm:"column:order_amount"`
	CommissionAmount string    `gorm:"column:commission_amount"`
	Status           string    `gorm:"column:status"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

// CustomerLinkRow is a row of solid_affiliate_affiliate_customer_links
type CustomerLinkRow struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	AffiliateID int64     `gorm:"column:affiliate_id"`
	CustomerID  int64     `gorm:"column:customer_id"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

// PayoutRow is a row of solid_affiliate_payouts
type PayoutRow struct {
	ID              int64     `gorm:"column:id;primaryKey"`
	AffiliateID     int64     `gorm:"column:affiliate_id"`
	BulkPayoutID    int64     `gorm:"column:bulk_payout_id"`
	CreatedByUserID int64     `gorm:"column:created_by_user_id"`
	PayoutMethod    string    `gorm:"column:payout_method"`
	Amount          string    `gorm:"column:amount"`
	Status          string    `gorm:"column:status"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

// VisitRow is a row of solid_affiliate_visits
type VisitRow struct {
	ID           int64     `gorm:"column:id;primaryKey"`
	AffiliateID  int64     `gorm:"column:affiliate_id"`
	ReferralID   int64     `gorm:"column:referral_id"`
	LandingURL   string    `gorm:"column:landing_url"`
	HTTPReferrer string    `gorm:"column:http_referrer"`
	IP           string    `gorm:"column:ip"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}
