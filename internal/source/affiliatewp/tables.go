package affiliatewp

import "time"

// Table names without the WordPress prefix
const (
	TableAffiliates   = "affiliate_wp_affiliates"
	TableReferrals    = "affiliate_wp_referrals"
	TableCustomers    = "affiliate_wp_customers"
	TableCustomerMeta = "affiliate_wp_customermeta"
	TablePayouts      = "affiliate_wp_payouts"
	TableVisits       = "affiliate_wp_visits"

	// PluginFile is the plugin entry listed in active_plugins
	PluginFile = "affiliate-wp/affiliate-wp.php"
)

// AffiliateRow is a row of affiliate_wp_affiliates
type AffiliateRow struct {
	AffiliateID    int64     `gorm:"column:affiliate_id;primaryKey"`
	UserID         int64     `gorm:"column:user_id"`
	Rate           string    `gorm:"column:rate"`
	RateType       string    `gorm:"column:rate_type"`
	FlatRateBasis  string    `gorm:"column:flat_rate_basis"`
	PaymentEmail   string    `gorm:"column:payment_email"`
	Status         string    `gorm:"column:status"`
	Earnings       string    `gorm:"column:earnings"`
	UnpaidEarnings string    `gorm:"column:unpaid_earnings"`
	Referrals      int64     `gorm:"column:referrals"`
	Visits         int64     `gorm:"column:visits"`
	DateRegistered time.Time `gorm:"column:date_registered"`
}

// ReferralRow is a row of affiliate_wp_referrals
type ReferralRow struct {
	ReferralID  int64     `gorm:"column:referral_id;primaryKey"`
	AffiliateID int64     `gorm:"column:affiliate_id"`
	VisitID     int64     `gorm:"column:visit_id"`
	CustomerID  int64     `gorm:"column:customer_id"`
	Description string    `gorm:"column:description"`
	Status      string    `gorm:"column:status"`
	Amount      string    `gorm:"column:amount"`
	Currency    string    `gorm:"column:currency"`
	Custom      string    `gorm:"column:custom"`
	Context     string    `gorm:"column:context"`
	Campaign    string    `gorm:"column:campaign"`
	Type        string    `gorm:"column:type"`
	Reference   string    `gorm:"column:reference"`
	Products    string    `gorm:"column:products"`
	PayoutID    int64     `gorm:"column:payout_id"`
	Date        time.Time `gorm:"column:date"`
}

// CustomerRow is a row of affiliate_wp_customers
type CustomerRow struct {
	CustomerID  int64     `gorm:"column:customer_id;primaryKey"`
	UserID      int64     `gorm:"column:user_id"`
	Email       string    `gorm:"column:email"`
	FirstName   string    `gorm:"column:first_name"`
	LastName    string    `gorm:"column:last_name"`
	IP          string    `gorm:"column:ip"`
	DateCreated time.Time `gorm:"column:date_created"`
}

// CustomerMetaRow is a row of affiliate_wp_customermeta
type CustomerMetaRow struct {
	MetaID          int64  `gorm:"column:meta_id;primaryKey"`
	AffwpCustomerID int64  `gorm:"column:affwp_customer_id"`
	MetaKey         string `gorm:"column:meta_key"`
	MetaValue       string `gorm:"column:meta_value"`
}

// PayoutRow is a row of affiliate_wp_payouts
type PayoutRow struct {
	PayoutID     int64     `gorm:"column:payout_id;primaryKey"`
	AffiliateID  int64     `gorm:"column:affiliate_id"`
	Referrals    string    `gorm:"column:referrals"`
	Amount       string    `gorm:"column:amount"`
	Owner        int64     `gorm:"column:owner"`
	PayoutMethod string    `gorm:"column:payout_method"`
	Description  string    `gorm:"column:description"`
	Status       string    `gorm:"column:status"`
	Date         time.Time `gorm:"column:date"`
}

// VisitRow is a row of affiliate_wp_visits
type VisitRow struct {
	VisitID     int64     `gorm:"column:visit_id;primaryKey"`
	AffiliateID int64     `gorm:"column:affiliate_id"`
	ReferralID  int64     `gorm:"column:referral_id"`
	URL         string    `gorm:"column:url"`
	Referrer    string    `gorm:"column:referrer"`
	Campaign    string    `gorm:"column:campaign"`
	IP          string    `gorm:"column:ip"`
	Date        time.Time `gorm:"column:date"`
}
