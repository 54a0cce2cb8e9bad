package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit action types. The taxonomy is closed: the operator-facing audit
// views filter on these exact strings.
const (
	AuditSessionStarted       = "session_started"
	AuditSessionStopRequested = "session_stop_requested"
	AuditSessionSealed        = "session_sealed"
	AuditSessionDiscarded     = "session_discarded_short"
	AuditSessionConcatenated  = "session_concatenated"
	AuditSegmentsCleanupDone  = "segments_cleanup_done"
	AuditConcatenationError   = "session_concatenation_error"
	AuditMaintenanceError     = "session_maintenance_error"
)

// AuditEvent is append-only: never mutated, never deleted.
type AuditEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	ActionType string             `bson:"action_type" json:"action_type"`
	Success    bool               `bson:"success" json:"success"`
	Details    map[string]any     `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
