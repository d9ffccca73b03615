package schema

import "time"

// Customer represents the fa_customers table - buyers attributed to affiliates
type Customer struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement"`
	UserID *int64 `gorm:"column:user_id"`
	// ByAffiliateID records the affiliate whose referral first touched this email
	ByAffiliateID *int64    `gorm:"column:by_affiliate_id;index"`
	Email         string    `gorm:"column:email;size:191;not null;uniqueIndex"`
	FirstName     string    `gorm:"column:first_name;size:191"`
	LastName      string    `gorm:"column:last_name;size:191"`
	IP            string    `gorm:"column:ip;size:45"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "fa_customers"
}
