package schema

import "time"

// KeyValueStore stores arbitrary key-value pairs for persisted state.
// Migration status documents live here, one row per source under <prefix>_migrated_status.
type KeyValueStore struct {
	Key       string    `gorm:"column:key;primaryKey;type:varchar(191)"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (KeyValueStore) TableName() string {
	return "key_value_store"
}
