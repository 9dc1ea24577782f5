package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/event-rsvp/internal/audit"
	"github.com/robertarktes/event-rsvp/internal/domain"
	"github.com/robertarktes/event-rsvp/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID           `bson:"_id"`
	Action    string              `bson:"action"`
	SessionID string              `bson:"session_id"`
	EventID   string              `bson:"event_id"`
	Succeeded bool                `bson:"succeeded"`
	Record    *domain.EventRecord `bson:"record,omitempty"`
	Error     string              `bson:"error,omitempty"`
	Timestamp time.Time           `bson:"timestamp"`
}

func toAuditLog(o audit.Outcome) AuditLog {
	return AuditLog{
		ID:        o.ID,
		Action:    o.EventType(),
		SessionID: o.SessionID,
		EventID:   o.EventID,
		Succeeded: o.Succeeded(),
		Record:    o.Record,
		Error:     o.Error,
		Timestamp: o.At,
	}
}

func (a *AuditLogger) Record(ctx context.Context, o audit.Outcome) error {
	_, err := a.coll.InsertOne(ctx, toAuditLog(o))
	if err != nil {
		a.logger.WithError(err).Error("failed to insert audit log")
		return err
	}
	return nil
}
