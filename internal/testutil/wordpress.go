package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// WPPrefix is the table prefix used by seeded WordPress databases
const WPPrefix = "wp_"

// SeedTable creates a prefixed legacy table from the row type and inserts rows
func SeedTable[T any](t *testing.T, db *gorm.DB, table string, rows ...T) {
	t.Helper()

	name := WPPrefix + table
	require.NoError(t, db.Table(name).AutoMigrate(new(T)))
	if len(rows) > 0 {
		require.NoError(t, db.Table(name).Create(&rows).Error)
	}
}

type optionRow struct {
	OptionID    int64  `gorm:"column:option_id;primaryKey"`
	OptionName  string `gorm:"column:option_name;size:191"`
	OptionValue string `gorm:"column:option_value;type:text"`
	Autoload    string `gorm:"column:autoload;size:20"`
}

// SeedActivePlugins writes the active_plugins option the way WordPress serializes it
func SeedActivePlugins(t *testing.T, db *gorm.DB, plugins ...string) {
	t.Helper()

	var b strings.Builder
	fmt.Fprintf(&b, "a:%d:{", len(plugins))
	for i, p := range plugins {
		fmt.Fprintf(&b, `i:%d;s:%d:"%s";`, i, len(p), p)
	}
	b.WriteString("}")

	SeedTable(t, db, "options", optionRow{
		OptionName:  "active_plugins",
		OptionValue: b.String(),
		Autoload:    "yes",
	})
}
