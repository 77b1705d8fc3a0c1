// Package auditlog serves read-only views over the audit trail: an event's
// catalog history for its organizer, and a user's own sign-in history.
package auditlog

import (
	"context"

	"github.com/dalemusser/eventkey/internal/app/store/audit"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AuditReader queries stored audit events.
type AuditReader interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	Count(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

// EventLookup loads the event whose trail is requested.
type EventLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
}

// UserNames resolves actor ids for display.
type UserNames interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
}

// LoginHistory lists a user's recent sign-ins.
type LoginHistory interface {
	Recent(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.LoginRecord, error)
}

type Handler struct {
	Audit  AuditReader
	Events EventLookup
	Users  UserNames
	Logins LoginHistory
	Log    *zap.Logger
}

// NewHandler constructs an audit log feature handler.
func NewHandler(store AuditReader, events EventLookup, users UserNames, logins LoginHistory, logger *zap.Logger) *Handler {
	return &Handler{
		Audit:  store,
		Events: events,
		Users:  users,
		Logins: logins,
		Log:    logger,
	}
}
