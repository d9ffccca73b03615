package dto

import (
	"fmt"

	apierrors "github.com/feral-file/ff-affiliate-migrator/internal/api/shared/errors"
	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
)

// StartMigrationRequest represents the request body for starting a migration
type StartMigrationRequest struct {
	Migrator       string `json:"migrator"`
	ResetMigration bool   `json:"reset_migration"`
}

// Validate validates the request body and returns the requested source
func (r *StartMigrationRequest) Validate() (domain.Source, error) {
	if r.Migrator == "" {
		return "", apierrors.NewValidationError("migrator is required")
	}
	return ParseMigrator(r.Migrator)
}

// ParseMigrator parses a migrator identifier from a request
func ParseMigrator(value string) (domain.Source, error) {
	if value == "" {
		return "", apierrors.NewValidationError("migrator is required")
	}
	src, err := domain.ParseSource(value)
	if err != nil {
		return "", apierrors.NewValidationError(fmt.Sprintf("invalid migrator: %s", value))
	}
	return src, nil
}
