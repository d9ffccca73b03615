package schema

import "time"

// User represents the users table - the host user records affiliates belong to
type User struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Login       string    `gorm:"column:login;size:191;not null"`
	Email       string    `gorm:"column:email;size:191;not null;uniqueIndex"`
	DisplayName string    `gorm:"column:display_name;size:191"`
	FirstName   string    `gorm:"column:first_name;size:191"`
	LastName    string    `gorm:"column:last_name;size:191"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// Models returns every target model, in dependency order
func Models() []any {
	return []any{
		&KeyValueStore{},
		&User{},
		&Meta{},
		&Affiliate{},
		&Customer{},
		&Visit{},
		&Payout{},
		&PayoutTransaction{},
		&Referral{},
	}
}
