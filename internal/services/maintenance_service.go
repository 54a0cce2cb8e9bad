package services

import (
	"context"
	"errors"
	"time"

	"github.com/sentinela-app/sentinela/internal/models"
	pgrepo "github.com/sentinela-app/sentinela/internal/repositories/postgres"
	"github.com/sentinela-app/sentinela/internal/utils"
	"github.com/sirupsen/logrus"
)

// Sweep result actions, surfaced in the maintenance endpoint response.
const (
	ActionOrphanExpired  = "orphan_expired"
	ActionExpired        = "expired"
	ActionDiscardedEmpty = "discarded_empty"
	ActionConcatenated   = "concatenated"
	ActionDownloadError  = "download_error"
	ActionUploadError    = "upload_error"
	ActionVerifyError    = "verify_error"
	ActionInsertError    = "insert_error"
	ActionError          = "error"
)

type SweepResult struct {
	Action          string  `json:"action"`
	SessionID       string  `json:"session_id"`
	RecordingID     string  `json:"recording_id,omitempty"`
	Segments        int     `json:"segments,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Error           string  `json:"error,omitempty"`
}

const (
	defaultOrphanGrace = 10 * time.Minute
	defaultTolerance   = 30 * time.Second
	defaultClaimStale  = 5 * time.Minute
)

// MaintenanceService is the lifecycle sweeper: one Sweep call seals orphaned
// and window-expired sessions, then finalizes every session whose tolerance
// window has elapsed. Sessions are processed independently; one failure
// never aborts the rest of the sweep.
type MaintenanceService interface {
	Sweep(ctx context.Context) []SweepResult
}

type MaintenanceConfig struct {
	OrphanGrace time.Duration // active, zero segments, older than this: seal
	Tolerance   time.Duration // wait after sealing before finalizing, absorbs in-flight segments
	ClaimStale  time.Duration // a finalization claim older than this can be stolen
	Now         func() time.Time
}

type maintenanceService struct {
	sessions pgrepo.SessionRepository
	merge    MergeService
	device   DeviceStatusStore
	audit    AuditService
	log      *logrus.Logger

	orphanGrace time.Duration
	tolerance   time.Duration
	claimStale  time.Duration
	now         func() time.Time
}

func NewMaintenanceService(
	sessions pgrepo.SessionRepository,
	merge MergeService,
	device DeviceStatusStore,
	audit AuditService,
	log *logrus.Logger,
	cfg MaintenanceConfig,
) MaintenanceService {
	if log == nil {
		log = logrus.New()
	}
	if cfg.OrphanGrace <= 0 {
		cfg.OrphanGrace = defaultOrphanGrace
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = defaultTolerance
	}
	if cfg.ClaimStale <= 0 {
		cfg.ClaimStale = defaultClaimStale
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &maintenanceService{
		sessions:    sessions,
		merge:       merge,
		device:      device,
		audit:       audit,
		log:         log,
		orphanGrace: cfg.OrphanGrace,
		tolerance:   cfg.Tolerance,
		claimStale:  cfg.ClaimStale,
		now:         cfg.Now,
	}
}

func (s *maintenanceService) Sweep(ctx context.Context) []SweepResult {
	now := s.now().UTC()
	results := make([]SweepResult, 0)

	orphans, err := s.sessions.FindOrphans(ctx, now.Add(-s.orphanGrace))
	if err != nil {
		s.log.WithError(err).Error("failed to query orphan sessions")
	}
	for i := range orphans {
		if res, ok := s.sealOne(ctx, &orphans[i], models.SealReasonOrphan, ActionOrphanExpired); ok {
			results = append(results, res)
		}
	}

	expired, err := s.sessions.FindWindowExpired(ctx, now)
	if err != nil {
		s.log.WithError(err).Error("failed to query window-expired sessions")
	}
	for i := range expired {
		if res, ok := s.sealOne(ctx, &expired[i], models.SealReasonWindowExpired, ActionExpired); ok {
			results = append(results, res)
		}
	}

	finalizable, err := s.sessions.FindFinalizable(ctx, now.Add(-s.tolerance))
	if err != nil {
		s.log.WithError(err).Error("failed to query finalizable sessions")
	}
	for i := range finalizable {
		if res, ok := s.finalizeOne(ctx, &finalizable[i]); ok {
			results = append(results, res)
		}
	}

	return results
}

func (s *maintenanceService) sealOne(ctx context.Context, sess *models.MonitoringSession, reason, action string) (SweepResult, bool) {
	err := s.sessions.Seal(ctx, sess.ID, reason, s.now().UTC())
	if errors.Is(err, utils.ErrNotFound) {
		// Already left active, nothing to report.
		return SweepResult{}, false
	}
	if err != nil {
		s.log.WithError(err).WithField("session_id", sess.ID).Error("seal failed")
		s.audit.Record(ctx, sess.UserID, models.AuditMaintenanceError, false, map[string]any{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
		return SweepResult{Action: ActionError, SessionID: sess.ID, Error: err.Error()}, true
	}

	s.audit.Record(ctx, sess.UserID, models.AuditSessionSealed, true, map[string]any{
		"session_id": sess.ID,
		"reason":     reason,
	})

	if err := s.device.ResetFlags(ctx, sess.UserID); err != nil {
		s.log.WithError(err).WithField("user_id", sess.UserID).Warn("device status reset failed")
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"reason":     reason,
	}).Info("session sealed")

	return SweepResult{Action: action, SessionID: sess.ID}, true
}

func (s *maintenanceService) finalizeOne(ctx context.Context, sess *models.MonitoringSession) (SweepResult, bool) {
	claimed, err := s.sessions.Claim(ctx, sess.ID, s.now().UTC(), s.claimStale)
	if err != nil {
		s.log.WithError(err).WithField("session_id", sess.ID).Error("claim failed")
		s.audit.Record(ctx, sess.UserID, models.AuditMaintenanceError, false, map[string]any{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
		return SweepResult{Action: ActionError, SessionID: sess.ID, Error: err.Error()}, true
	}
	if !claimed {
		// Another sweep owns this session right now.
		return SweepResult{}, false
	}

	res := s.merge.Finalize(ctx, sess)

	switch res.Action {
	case ActionConcatenated, ActionDiscardedEmpty:
	default:
		// Retryable outcome: free the session for the next sweep instead
		// of letting the claim sit until it goes stale.
		if err := s.sessions.ReleaseClaim(ctx, sess.ID); err != nil {
			s.log.WithError(err).WithField("session_id", sess.ID).Warn("claim release failed")
		}
	}

	return res, true
}
