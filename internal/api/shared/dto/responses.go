package dto

import (
	"encoding/json"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
)

// MigrationSummary describes one detected legacy plugin
type MigrationSummary struct {
	Migrator     domain.Source      `json:"migrator"`
	Name         string             `json:"name"`
	Counts       domain.StageCounts `json:"counts"`
	CurrentStage domain.Stage       `json:"current_stage"`
}

// AvailableMigrationsResponse lists the plugins that can be migrated
type AvailableMigrationsResponse struct {
	Migrations []MigrationSummary `json:"migrations"`
}

// MigrationStatisticsResponse compares source rows with migrated rows
type MigrationStatisticsResponse struct {
	Migrator       domain.Source            `json:"migrator"`
	Name           string                   `json:"name"`
	SourceCounts   domain.StageCounts       `json:"source_counts"`
	MigratedCounts domain.StageCounts       `json:"migrated_counts"`
	Status         *MigrationStatusResponse `json:"status"`
}

// MigrationStatusResponse is the progress document returned to pollers.
// It serializes flat: {"migrator": ..., "current_stage": ..., "migrated_<stage>_count": n, "completed": ...}
type MigrationStatusResponse struct {
	Migrator domain.Source
	Status   *domain.MigrationStatus
	// Error is the failure of the last batch, empty when it succeeded
	Error string
}

// NewMigrationStatusResponse builds the status response of a source
func NewMigrationStatusResponse(src domain.Source, status *domain.MigrationStatus) *MigrationStatusResponse {
	if status == nil {
		status = domain.NewMigrationStatus()
	}
	return &MigrationStatusResponse{Migrator: src, Status: status, Error: status.LastError}
}

// MarshalJSON writes the status document with the response fields merged in
func (r MigrationStatusResponse) MarshalJSON() ([]byte, error) {
	status := r.Status
	if status == nil {
		status = domain.NewMigrationStatus()
	}

	raw, err := json.Marshal(status)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	doc["migrator"] = r.Migrator
	doc["completed"] = status.Completed()
	if r.Error != "" {
		doc["error"] = r.Error
	}

	return json.Marshal(doc)
}
