package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-affiliate-migrator/internal/testutil"
)

// TestSQLiteStore runs all store tests against SQLite
func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewSQLStore(testutil.NewTargetDB(t))
	})
}

func TestCalculateSafeBatchSize(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		fields   int
		expected int
	}{
		{name: "small batch fits", total: 100, fields: 22, expected: 100},
		{name: "large batch is capped", total: 100000, fields: 22, expected: (32766 - 1000) / 22},
		{name: "single record", total: 1, fields: 1, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calculateSafeBatchSize(tt.total, tt.fields))
		})
	}
}

func TestNormalizeConnectionPoolSettings(t *testing.T) {
	open, idle, lifetime, idleTime := NormalizeConnectionPoolSettings(0, 0, 0, 0)
	assert.Equal(t, 20, open)
	assert.Equal(t, 5, idle)
	assert.Equal(t, 5*time.Minute, lifetime)
	assert.Equal(t, 10*time.Minute, idleTime)

	open, idle, _, _ = NormalizeConnectionPoolSettings(4, 10, time.Hour, time.Hour)
	assert.Equal(t, 4, open)
	assert.Equal(t, 4, idle)
}
