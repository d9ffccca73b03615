package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
	"github.com/feral-file/ff-affiliate-migrator/internal/store/schema"
)

// statusKey returns the key_value_store key of a source's progress document
func statusKey(source domain.Source) string {
	return source.OptionPrefix() + domain.STATUS_KEY_SUFFIX
}

// GetMigrationStatus retrieves the progress document for a source.
// A missing document yields an empty status positioned at the first stage.
func (s *sqlStore) GetMigrationStatus(ctx context.Context, source domain.Source) (*domain.MigrationStatus, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where(&schema.KeyValueStore{Key: statusKey(source)}).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewMigrationStatus(), nil
		}
		return nil, fmt.Errorf("failed to get migration status: %w", err)
	}

	var status domain.MigrationStatus
	if err := json.Unmarshal([]byte(kv.Value), &status); err != nil {
		return nil, fmt.Errorf("failed to parse migration status: %w", err)
	}

	return &status, nil
}

// UpdateMigrationStatus persists the progress document for a source as a single
// read-modify-write. With merge the given fields overlay the stored document,
// otherwise the stored document is replaced.
func (s *sqlStore) UpdateMigrationStatus(ctx context.Context, source domain.Source, status *domain.MigrationStatus, merge bool) (*domain.MigrationStatus, error) {
	if status == nil {
		status = domain.NewMigrationStatus()
	}

	var saved *domain.MigrationStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next := status.Clone()
		if merge {
			current, err := (&sqlStore{db: tx}).GetMigrationStatus(ctx, source)
			if err != nil {
				return err
			}
			current.Merge(status)
			next = current
		}
		if next.CurrentStage == "" {
			next.CurrentStage = domain.StageAffiliateGroups
		}

		value, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode migration status: %w", err)
		}

		kv := schema.KeyValueStore{
			Key:   statusKey(source),
			Value: string(value),
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&kv).Error
		if err != nil {
			return fmt.Errorf("failed to save migration status: %w", err)
		}

		saved = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}
