// Package plugins wires the adapter of every supported legacy plugin.
package plugins

import (
	"github.com/feral-file/ff-affiliate-migrator/internal/adapter"
	"github.com/feral-file/ff-affiliate-migrator/internal/source"
	"github.com/feral-file/ff-affiliate-migrator/internal/source/affiliatemanager"
	"github.com/feral-file/ff-affiliate-migrator/internal/source/affiliatewp"
	"github.com/feral-file/ff-affiliate-migrator/internal/source/solidaffiliate"
)

// NewRegistry returns a registry holding every adapter over the WordPress install
func NewRegistry(wp *source.WordPress, clock adapter.Clock) *source.Registry {
	return source.NewRegistry(
		affiliatewp.New(wp, clock),
		solidaffiliate.New(wp, clock),
		affiliatemanager.New(wp, clock),
	)
}
