package source

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ParseDecimal parses a money or rate value, returning zero for malformed input
func ParseDecimal(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MaybeUnserialize converts a legacy blob column into JSON.
// JSON passes through, PHP serialized values are decoded, anything else is kept as a JSON string.
func MaybeUnserialize(raw string) datatypes.JSON {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if json.Valid([]byte(raw)) {
		return datatypes.JSON(raw)
	}
	if IsPHPSerialized(raw) {
		if v, err := UnserializePHP(raw); err == nil {
			if data, err := json.Marshal(v); err == nil {
				return datatypes.JSON(data)
			}
		}
	}
	data, _ := json.Marshal(raw)
	return datatypes.JSON(data)
}

// MarshalSettings encodes a settings bag, nil when empty
func MarshalSettings(settings map[string]any) datatypes.JSON {
	if len(settings) == 0 {
		return nil
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// SplitIDs parses a comma separated list of IDs, ignoring malformed entries
func SplitIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// OptionalID returns nil for non-positive IDs
func OptionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

// Timestamp normalizes a source timestamp to UTC, using fallback for zero dates
func Timestamp(t time.Time, fallback time.Time) time.Time {
	if t.IsZero() || t.Year() < 1971 {
		return fallback.UTC()
	}
	return t.UTC()
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
