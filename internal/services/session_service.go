package services

import (
	"context"
	"errors"
	"time"

	"github.com/sentinela-app/sentinela/internal/models"
	pgrepo "github.com/sentinela-app/sentinela/internal/repositories/postgres"
	"github.com/sentinela-app/sentinela/internal/utils"

	"github.com/google/uuid"
)

// SessionService is the device-facing side of the lifecycle: opening a
// monitoring window and signalling an explicit stop. Everything after the
// seal belongs to the maintenance sweep.
type SessionService interface {
	Start(ctx context.Context, userID, deviceID, origin string, durationMinutes int) (*models.MonitoringSession, error)
	Get(ctx context.Context, sessionID string) (*models.MonitoringSession, error)
	RequestStop(ctx context.Context, sessionID string) (*models.MonitoringSession, error)
}

type sessionService struct {
	sessions pgrepo.SessionRepository
	device   DeviceStatusStore
	audit    AuditService
}

func NewSessionService(sessions pgrepo.SessionRepository, device DeviceStatusStore, audit AuditService) SessionService {
	return &sessionService{sessions: sessions, device: device, audit: audit}
}

func (s *sessionService) Start(ctx context.Context, userID, deviceID, origin string, durationMinutes int) (*models.MonitoringSession, error) {
	const op = "SessionService.Start"

	if userID == "" || deviceID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and device_id are required", nil)
	}
	if origin == "" {
		origin = "app"
	}

	now := time.Now().UTC()
	sess := &models.MonitoringSession{
		ID:            uuid.NewString(),
		UserID:        userID,
		DeviceID:      deviceID,
		Origin:        origin,
		Status:        models.SessionStatusActive,
		CreatedAt:     now,
		WindowStartAt: now,
	}
	if durationMinutes > 0 {
		end := now.Add(time.Duration(durationMinutes) * time.Minute)
		sess.WindowEndAt = &end
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create monitoring session", err)
	}

	// The flag is advisory; the session row is the source of truth.
	_ = s.device.MarkMonitoring(ctx, userID)

	s.audit.Record(ctx, userID, models.AuditSessionStarted, true, map[string]any{
		"session_id": sess.ID,
		"origin":     origin,
	})
	return sess, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.MonitoringSession, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	out, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

// RequestStop seals an active session with reason user_stop. The recording
// itself appears later, once the sweep's tolerance window has passed.
func (s *sessionService) RequestStop(ctx context.Context, sessionID string) (*models.MonitoringSession, error) {
	const op = "SessionService.RequestStop"

	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionStatusActive {
		return nil, utils.E(utils.CodeConflict, op, "session is not active", nil)
	}

	now := time.Now().UTC()
	if err := s.sessions.Seal(ctx, sess.ID, models.SealReasonUserStop, now); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeConflict, op, "session is not active", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to seal session", err)
	}

	_ = s.device.ResetFlags(ctx, sess.UserID)

	s.audit.Record(ctx, sess.UserID, models.AuditSessionStopRequested, true, map[string]any{
		"session_id": sess.ID,
	})

	sess.Status = models.SessionStatusAwaiting
	sess.ClosedAt = &now
	sess.SealedReason = models.SealReasonUserStop
	return sess, nil
}
