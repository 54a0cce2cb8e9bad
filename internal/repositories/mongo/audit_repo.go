package mongo

import (
	"context"
	"time"

	"github.com/sentinela-app/sentinela/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuditRepository interface {
	Insert(ctx context.Context, ev *models.AuditEvent) error
}

type auditRepo struct {
	col *mongo.Collection
}

func NewAuditRepo(db *mongo.Database) AuditRepository {
	return &auditRepo{col: db.Collection("audit_events")}
}

// Insert only. Audit events are never updated or removed; the collection has
// no delete path in any service.
func (r *auditRepo) Insert(ctx context.Context, ev *models.AuditEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, ev)
	return err
}
