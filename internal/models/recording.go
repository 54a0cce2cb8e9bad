package models

import "time"

// Recording statuses. This core only ever writes pending; the downstream
// transcription/analysis pipeline advances the rest.
const (
	RecordingStatusPending    = "pending"
	RecordingStatusProcessing = "processing"
	RecordingStatusCompleted  = "completed"
	RecordingStatusFailed     = "failed"
)

// Recording is the merged artifact produced from a session's segments,
// exactly one per successfully merged session.
type Recording struct {
	ID              string  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID          string  `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	DeviceID        string  `gorm:"column:device_id;type:text" json:"device_id"`
	SessionID       string  `gorm:"column:session_id;type:uuid;index" json:"session_id"`
	StoragePath     string  `gorm:"column:storage_path;type:varchar(500)" json:"storage_path"`
	DurationSeconds float64 `gorm:"column:duration_seconds" json:"duration_seconds"`
	Status          string  `gorm:"column:status;type:text" json:"status"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (Recording) TableName() string { return "recordings" }
