package models

import "time"

// Segment is one uploaded audio chunk belonging to a session. Rows are
// append-only until cleanup: once the merged recording exists both the
// object and the row are deleted.
type Segment struct {
	ID              string   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID       string   `gorm:"column:session_id;type:uuid;index:idx_segments_session" json:"session_id"`
	StoragePath     string   `gorm:"column:storage_path;type:varchar(500)" json:"storage_path"`
	SegmentIndex    int      `gorm:"column:segment_index" json:"segment_index"`
	DurationSeconds *float64 `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Segment) TableName() string { return "segments" }
