package services

import (
	"context"
	"time"

	"github.com/sentinela-app/sentinela/internal/models"
	mongorepo "github.com/sentinela-app/sentinela/internal/repositories/mongo"
	"github.com/sirupsen/logrus"
)

// AuditService appends one immutable event per state transition or failure.
// Writes are best-effort: an audit failure is logged and swallowed, never
// surfaced to the caller, so the primary operation cannot be blocked by the
// trail.
type AuditService interface {
	Record(ctx context.Context, userID, actionType string, success bool, details map[string]any)
}

type auditService struct {
	events mongorepo.AuditRepository
	log    *logrus.Logger
}

func NewAuditService(events mongorepo.AuditRepository, log *logrus.Logger) AuditService {
	if log == nil {
		log = logrus.New()
	}
	return &auditService{events: events, log: log}
}

func (s *auditService) Record(ctx context.Context, userID, actionType string, success bool, details map[string]any) {
	ev := &models.AuditEvent{
		UserID:     userID,
		ActionType: actionType,
		Success:    success,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.events.Insert(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":     userID,
			"action_type": actionType,
		}).Warn("audit write failed")
	}
}
