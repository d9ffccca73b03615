package schema

import "time"

// Visit represents the fa_visits table - tracked click-throughs on affiliate links
type Visit struct {
	ID          int64 `gorm:"column:id;primaryKey;autoIncrement"`
	AffiliateID int64 `gorm:"column:affiliate_id;not null;index:idx_visits_affiliate_created,priority:1"`
	// ReferralID is the back-link set by visit linking
	ReferralID  *int64    `gorm:"column:referral_id;index"`
	URL         string    `gorm:"column:url;type:text"`
	Referrer    string    `gorm:"column:referrer;type:text"`
	IP          string    `gorm:"column:ip;size:45"`
	UTMCampaign string    `gorm:"column:utm_campaign;size:191"`
	UTMSource   string    `gorm:"column:utm_source;size:191"`
	UTMMedium   string    `gorm:"column:utm_medium;size:191"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;index:idx_visits_affiliate_created,priority:2"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for the Visit model
func (Visit) TableName() string {
	return "fa_visits"
}
