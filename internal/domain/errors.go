package domain

import "errors"

var (
	// ErrUnknownSource is returned when a migrator identifier is not supported
	ErrUnknownSource = errors.New("unknown migration source")

	// ErrUnknownStage is returned when the persisted stage is not part of the stage sequence.
	// It signals corrupted state and is never retried automatically.
	ErrUnknownStage = errors.New("unknown migration stage, please restart the migration")

	// ErrSourceUnavailable is returned when the legacy plugin is not installed or active
	ErrSourceUnavailable = errors.New("migration source is not available")

	// ErrMigrationRunning is returned when a batch is already being processed for the source
	ErrMigrationRunning = errors.New("migration is already running for this source")

	// ErrBatchFailed is returned when a batch could not be written to the target tables
	ErrBatchFailed = errors.New("migration batch failed")
)
