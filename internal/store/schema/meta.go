package schema

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
)

// Meta represents the fa_meta table - a generic tagged key-value store.
// Affiliate groups are rows with ObjectType = "affiliate_group" keyed by group name.
type Meta struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement"`
	ObjectType string         `gorm:"column:object_type;size:50;not null;index:idx_meta_object,priority:1"`
	ObjectID   *int64         `gorm:"column:object_id;index:idx_meta_object,priority:2"`
	MetaKey    string         `gorm:"column:meta_key;size:191;not null"`
	Value      datatypes.JSON `gorm:"column:value"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for the Meta model
func (Meta) TableName() string {
	return "fa_meta"
}

// AffiliateGroup is the value blob of an affiliate group meta row
type AffiliateGroup struct {
	Rate     decimal.Decimal `json:"rate"`
	RateType domain.RateType `json:"rate_type"`
	Status   string          `json:"status"`
}

// NewAffiliateGroupMeta builds the meta row for an affiliate group
func NewAffiliateGroupMeta(id int64, name string, group AffiliateGroup, createdAt time.Time) (Meta, error) {
	value, err := json.Marshal(group)
	if err != nil {
		return Meta{}, err
	}
	return Meta{
		ID:         id,
		ObjectType: domain.MetaObjectAffiliateGroup,
		MetaKey:    name,
		Value:      datatypes.JSON(value),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}, nil
}
