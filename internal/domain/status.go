package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MigrationStatus is the resumable progress document kept per migration source.
// It serializes to a flat JSON object of the form
// {"current_stage": "...", "migrated_<stage>_count": n, ...}.
type MigrationStatus struct {
	CurrentStage  Stage
	Counts        map[Stage]int
	RecountCursor int64
	LinkPass      LinkPass
	LinkCursor    int64
	LinkCursorAt  *time.Time
	RunID         string
	LastError     string
	StartedAt     *time.Time
	UpdatedAt     *time.Time
	CompletedAt   *time.Time
}

// NewMigrationStatus returns an empty status positioned at the first stage
func NewMigrationStatus() *MigrationStatus {
	s := &MigrationStatus{CurrentStage: StageAffiliateGroups}
	s.normalize()
	return s
}

// normalize gives every working stage a cursor, the shape the stored document always has
func (s *MigrationStatus) normalize() {
	if s.Counts == nil {
		s.Counts = make(map[Stage]int, len(stageSequence))
	}
	for _, stage := range stageSequence {
		if _, ok := s.Counts[stage]; !ok {
			s.Counts[stage] = 0
		}
	}
}

// Cursor returns the number of source rows already processed for a stage
func (s *MigrationStatus) Cursor(stage Stage) int {
	if s.Counts == nil {
		return 0
	}
	return s.Counts[stage]
}

// SetCursor stores the processed row count for a stage
func (s *MigrationStatus) SetCursor(stage Stage, n int) {
	s.normalize()
	s.Counts[stage] = n
}

// Linked reports whether the linker finished for this run
func (s *MigrationStatus) Linked() bool {
	return s.LinkPass == LinkPassDone
}

// Completed reports whether the migration reached the terminal stage
func (s *MigrationStatus) Completed() bool {
	return s.CurrentStage == StageCompleted
}

// Clone returns a deep copy of the status
func (s *MigrationStatus) Clone() *MigrationStatus {
	c := *s
	c.Counts = make(map[Stage]int, len(s.Counts))
	for k, v := range s.Counts {
		c.Counts[k] = v
	}
	c.normalize()
	return &c
}

// Merge overlays patch onto s. Cursors present in the patch always win,
// scalar fields only when they are set.
func (s *MigrationStatus) Merge(patch *MigrationStatus) {
	if patch == nil {
		return
	}
	if patch.CurrentStage != "" {
		s.CurrentStage = patch.CurrentStage
	}
	for stage, n := range patch.Counts {
		s.SetCursor(stage, n)
	}
	if patch.RecountCursor != 0 {
		s.RecountCursor = patch.RecountCursor
	}
	if patch.LinkPass != "" {
		s.LinkPass = patch.LinkPass
	}
	if patch.LinkCursor != 0 {
		s.LinkCursor = patch.LinkCursor
	}
	if patch.LinkCursorAt != nil {
		s.LinkCursorAt = patch.LinkCursorAt
	}
	if patch.RunID != "" {
		s.RunID = patch.RunID
	}
	if patch.LastError != "" {
		s.LastError = patch.LastError
	}
	if patch.StartedAt != nil {
		s.StartedAt = patch.StartedAt
	}
	if patch.UpdatedAt != nil {
		s.UpdatedAt = patch.UpdatedAt
	}
	if patch.CompletedAt != nil {
		s.CompletedAt = patch.CompletedAt
	}
}

// MarshalJSON writes the flat status document
func (s MigrationStatus) MarshalJSON() ([]byte, error) {
	doc := map[string]any{
		"current_stage":  s.CurrentStage,
		"recount_cursor": s.RecountCursor,
	}
	for _, stage := range stageSequence {
		doc[stage.CursorKey()] = s.Cursor(stage)
	}
	if s.LinkPass != "" {
		doc["link_pass"] = s.LinkPass
		doc["link_cursor"] = s.LinkCursor
	}
	if s.LinkCursorAt != nil {
		doc["link_cursor_at"] = s.LinkCursorAt
	}
	if s.RunID != "" {
		doc["run_id"] = s.RunID
	}
	if s.LastError != "" {
		doc["last_error"] = s.LastError
	}
	if s.StartedAt != nil {
		doc["started_at"] = s.StartedAt
	}
	if s.UpdatedAt != nil {
		doc["updated_at"] = s.UpdatedAt
	}
	if s.CompletedAt != nil {
		doc["completed_at"] = s.CompletedAt
	}
	return json.Marshal(doc)
}

// UnmarshalJSON reads the flat status document. An empty document yields a
// status positioned at the first stage.
func (s *MigrationStatus) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode migration status: %w", err)
	}

	*s = *NewMigrationStatus()

	for key, raw := range doc {
		var err error
		switch {
		case key == "current_stage":
			var stage string
			err = json.Unmarshal(raw, &stage)
			if stage != "" {
				s.CurrentStage = Stage(stage)
			}
		case key == "recount_cursor":
			err = json.Unmarshal(raw, &s.RecountCursor)
		case key == "link_pass":
			err = json.Unmarshal(raw, &s.LinkPass)
		case key == "link_cursor":
			err = json.Unmarshal(raw, &s.LinkCursor)
		case key == "link_cursor_at":
			err = json.Unmarshal(raw, &s.LinkCursorAt)
		case key == "run_id":
			err = json.Unmarshal(raw, &s.RunID)
		case key == "last_error":
			err = json.Unmarshal(raw, &s.LastError)
		case key == "started_at":
			err = json.Unmarshal(raw, &s.StartedAt)
		case key == "updated_at":
			err = json.Unmarshal(raw, &s.UpdatedAt)
		case key == "completed_at":
			err = json.Unmarshal(raw, &s.CompletedAt)
		case strings.HasPrefix(key, "migrated_") && strings.HasSuffix(key, "_count"):
			var n int
			err = json.Unmarshal(raw, &n)
			stage := Stage(strings.TrimSuffix(strings.TrimPrefix(key, "migrated_"), "_count"))
			s.SetCursor(stage, n)
		}
		if err != nil {
			return fmt.Errorf("failed to decode migration status field %s: %w", key, err)
		}
	}

	return nil
}
