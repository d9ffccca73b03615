package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
)

// WordPress gives adapters access to the tables of one WordPress install
type WordPress struct {
	db     *gorm.DB
	prefix string
}

// NewWordPress creates a WordPress accessor. An empty prefix defaults to "wp_".
func NewWordPress(db *gorm.DB, prefix string) *WordPress {
	if prefix == "" {
		prefix = domain.DEFAULT_TABLE_PREFIX
	}
	return &WordPress{db: db, prefix: prefix}
}

// Table returns the prefixed table name
func (w *WordPress) Table(name string) string {
	return w.prefix + name
}

// Query starts a query on a prefixed table
func (w *WordPress) Query(ctx context.Context, name string) *gorm.DB {
	return w.db.WithContext(ctx).Table(w.Table(name))
}

// HasTable reports whether a prefixed table exists
func (w *WordPress) HasTable(ctx context.Context, name string) bool {
	return w.db.WithContext(ctx).Migrator().HasTable(w.Table(name))
}

// Count counts rows of a prefixed table. Absent tables count as zero.
func (w *WordPress) Count(ctx context.Context, name string, where ...any) (int64, error) {
	if !w.HasTable(ctx, name) {
		return 0, nil
	}

	query := w.Query(ctx, name)
	if len(where) > 0 {
		query = query.Where(where[0], where[1:]...)
	}

	var n int64
	if err := query.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", w.Table(name), err)
	}
	return n, nil
}

// OptionRow is a row of the options table
type OptionRow struct {
	OptionID    int64  `gorm:"column:option_id;primaryKey"`
	OptionName  string `gorm:"column:option_name;size:191"`
	OptionValue string `gorm:"column:option_value;type:text"`
	Autoload    string `gorm:"column:autoload;size:20"`
}

// PluginActive reports whether pluginFile is listed in the active_plugins option.
// When the options table is unreachable, the presence of primaryTable decides.
func (w *WordPress) PluginActive(ctx context.Context, pluginFile string, primaryTable string) (bool, error) {
	if !w.HasTable(ctx, "options") {
		return w.HasTable(ctx, primaryTable), nil
	}

	var option OptionRow
	err := w.Query(ctx, "options").Where("option_name = ?", "active_plugins").First(&option).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return w.HasTable(ctx, primaryTable), nil
		}
		return false, fmt.Errorf("failed to read active plugins: %w", err)
	}

	active, err := UnserializePHP(option.OptionValue)
	if err != nil {
		return strings.Contains(option.OptionValue, pluginFile), nil
	}

	switch plugins := active.(type) {
	case []any:
		for _, p := range plugins {
			if s, ok := p.(string); ok && s == pluginFile {
				return true, nil
			}
		}
	case map[string]any:
		for _, p := range plugins {
			if s, ok := p.(string); ok && s == pluginFile {
				return true, nil
			}
		}
	}

	return false, nil
}

// UserRow is a row of the users table
type UserRow struct {
	ID             int64     `gorm:"column:ID;primaryKey"`
	UserLogin      string    `gorm:"column:user_login;size:60"`
	UserEmail      string    `gorm:"column:user_email;size:100"`
	DisplayName    string    `gorm:"column:display_name;size:250"`
	UserRegistered time.Time `gorm:"column:user_registered"`
}

// Users loads users by ID. Missing users are absent from the result.
func (w *WordPress) Users(ctx context.Context, ids []int64) (map[int64]UserRow, error) {
	users := make(map[int64]UserRow, len(ids))
	if len(ids) == 0 || !w.HasTable(ctx, "users") {
		return users, nil
	}

	var rows []UserRow
	if err := w.Query(ctx, "users").Where("ID IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for _, row := range rows {
		users[row.ID] = row
	}

	return users, nil
}

// Registry holds the adapters of every supported plugin
type Registry struct {
	providers map[domain.Source]Provider
}

// NewRegistry creates a registry from adapters
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[domain.Source]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Source()] = p
	}
	return r
}

// Get returns the adapter for a source
func (r *Registry) Get(source domain.Source) (Provider, error) {
	p, ok := r.providers[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSource, source)
	}
	return p, nil
}

// All returns adapters in display order
func (r *Registry) All() []Provider {
	var providers []Provider
	for _, s := range domain.Sources() {
		if p, ok := r.providers[s]; ok {
			providers = append(providers, p)
		}
	}
	return providers
}
