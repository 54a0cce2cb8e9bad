package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/sentinela-app/sentinela/internal/models"
	"github.com/sentinela-app/sentinela/internal/utils"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.MonitoringSession) error
	GetByID(ctx context.Context, id string) (*models.MonitoringSession, error)

	FindOrphans(ctx context.Context, createdBefore time.Time) ([]models.MonitoringSession, error)
	FindWindowExpired(ctx context.Context, now time.Time) ([]models.MonitoringSession, error)
	FindFinalizable(ctx context.Context, sealedBefore time.Time) ([]models.MonitoringSession, error)

	Seal(ctx context.Context, id, reason string, at time.Time) error
	Claim(ctx context.Context, id string, now time.Time, staleAfter time.Duration) (bool, error)
	ReleaseClaim(ctx context.Context, id string) error
	CompleteMerge(ctx context.Context, id, recordingID string, segmentCount int, totalDuration float64, at time.Time) error
	Discard(ctx context.Context, id string) error

	ListSegmentsOrdered(ctx context.Context, sessionID string) ([]models.Segment, error)
	DeleteSegment(ctx context.Context, segmentID string) error
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.MonitoringSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*models.MonitoringSession, error) {
	var s models.MonitoringSession
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *sessionRepo) FindOrphans(ctx context.Context, createdBefore time.Time) ([]models.MonitoringSession, error) {
	var rows []models.MonitoringSession
	err := r.db.WithContext(ctx).
		Where("status = ?", models.SessionStatusActive).
		Where("created_at < ?", createdBefore).
		Where("NOT EXISTS (SELECT 1 FROM segments WHERE segments.session_id = monitoring_sessions.id)").
		Find(&rows).Error
	return rows, err
}

func (r *sessionRepo) FindWindowExpired(ctx context.Context, now time.Time) ([]models.MonitoringSession, error) {
	var rows []models.MonitoringSession
	err := r.db.WithContext(ctx).
		Where("status = ?", models.SessionStatusActive).
		Where("window_end_at IS NOT NULL AND window_end_at < ?", now).
		Find(&rows).Error
	return rows, err
}

func (r *sessionRepo) FindFinalizable(ctx context.Context, sealedBefore time.Time) ([]models.MonitoringSession, error) {
	var rows []models.MonitoringSession
	err := r.db.WithContext(ctx).
		Where("status = ?", models.SessionStatusAwaiting).
		Where("COALESCE(closed_at, finalized_at) < ?", sealedBefore).
		Find(&rows).Error
	return rows, err
}

// Seal is conditional on the session still being active, so a session never
// moves backward and two sweeps cannot both seal it.
func (r *sessionRepo) Seal(ctx context.Context, id, reason string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.MonitoringSession{}).
		Where("id = ? AND status = ?", id, models.SessionStatusActive).
		Updates(map[string]any{
			"status":        models.SessionStatusAwaiting,
			"closed_at":     at.UTC(),
			"sealed_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// Claim wins a finalization attempt for one worker: a conditional update
// that only succeeds while the session awaits finalization and any earlier
// claim has gone stale. Overlapping sweeps race on this row and exactly one
// of them proceeds.
func (r *sessionRepo) Claim(ctx context.Context, id string, now time.Time, staleAfter time.Duration) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.MonitoringSession{}).
		Where("id = ? AND status = ? AND (claimed_at IS NULL OR claimed_at < ?)",
			id, models.SessionStatusAwaiting, now.Add(-staleAfter)).
		Update("claimed_at", now.UTC())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleaseClaim frees a session for the next sweep after a retryable
// failure. Without it a failed finalization would sit locked until the
// stale-claim timeout.
func (r *sessionRepo) ReleaseClaim(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.MonitoringSession{}).
		Where("id = ? AND status = ?", id, models.SessionStatusAwaiting).
		Update("claimed_at", nil).Error
}

func (r *sessionRepo) CompleteMerge(ctx context.Context, id, recordingID string, segmentCount int, totalDuration float64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.MonitoringSession{}).
		Where("id = ? AND status = ?", id, models.SessionStatusAwaiting).
		Updates(map[string]any{
			"status":                 models.SessionStatusMerged,
			"finalized_at":           at.UTC(),
			"final_recording_id":     recordingID,
			"total_segments":         segmentCount,
			"total_duration_seconds": totalDuration,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

// Discard deletes a session outright. Guarded so a session that has grown a
// segment since it was selected is left alone.
func (r *sessionRepo) Discard(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("NOT EXISTS (SELECT 1 FROM segments WHERE segments.session_id = monitoring_sessions.id)").
		Delete(&models.MonitoringSession{}).Error
}

func (r *sessionRepo) ListSegmentsOrdered(ctx context.Context, sessionID string) ([]models.Segment, error) {
	var rows []models.Segment
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("segment_index ASC").
		Find(&rows).Error
	return rows, err
}

func (r *sessionRepo) DeleteSegment(ctx context.Context, segmentID string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", segmentID).
		Delete(&models.Segment{}).Error
}
