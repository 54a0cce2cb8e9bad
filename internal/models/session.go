package models

import (
	"time"
)

// Session status values. Transitions are monotonic:
// active -> awaiting_finalization -> merged. A session with zero segments
// is deleted instead of reaching merged.
const (
	SessionStatusActive   = "active"
	SessionStatusAwaiting = "awaiting_finalization"
	SessionStatusMerged   = "merged"
)

// Seal reasons recorded when a session leaves the active state.
const (
	SealReasonWindowExpired = "window_expired"
	SealReasonOrphan        = "orphan_no_segments"
	SealReasonUserStop      = "user_stop"
)

type MonitoringSession struct {
	ID       string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID   string `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	DeviceID string `gorm:"column:device_id;type:text" json:"device_id"`
	Origin   string `gorm:"column:origin;type:text" json:"origin"` // app|panic_button|schedule

	Status string `gorm:"column:status;type:text;index" json:"status"`

	CreatedAt     time.Time  `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	WindowStartAt time.Time  `gorm:"column:window_start_at;type:timestamptz" json:"window_start_at"`
	WindowEndAt   *time.Time `gorm:"column:window_end_at;type:timestamptz" json:"window_end_at,omitempty"` // nil: open-ended, closed by explicit stop
	ClosedAt      *time.Time `gorm:"column:closed_at;type:timestamptz" json:"closed_at,omitempty"`
	FinalizedAt   *time.Time `gorm:"column:finalized_at;type:timestamptz" json:"finalized_at,omitempty"`
	ClaimedAt     *time.Time `gorm:"column:claimed_at;type:timestamptz" json:"-"`

	SealedReason         string  `gorm:"column:sealed_reason;type:text" json:"sealed_reason,omitempty"`
	TotalSegments        int     `gorm:"column:total_segments" json:"total_segments"`
	TotalDurationSeconds float64 `gorm:"column:total_duration_seconds" json:"total_duration_seconds"`
	FinalRecordingID     *string `gorm:"column:final_recording_id;type:uuid" json:"final_recording_id,omitempty"`
}

func (MonitoringSession) TableName() string { return "monitoring_sessions" }
