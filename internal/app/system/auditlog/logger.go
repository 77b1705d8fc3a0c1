// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/eventkey/internal/app/store/audit"
	loginstore "github.com/dalemusser/eventkey/internal/app/store/logins"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category.
const (
	ToAll = "all" // MongoDB + zap
	ToDB  = "db"  // MongoDB only
	ToLog = "log" // zap only
	Off   = "off"
)

// Config holds audit logging configuration per category.
// Values: "all", "db", "log", "off". Empty means "all".
type Config struct {
	Auth    string
	Catalog string
	Roles   string
}

// Sink stores audit events. *audit.Store satisfies it.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger writes audit events to MongoDB and structured logs.
// A nil *Logger is valid and discards everything.
type Logger struct {
	store  Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store Sink, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) destination(category string) string {
	var d string
	switch category {
	case audit.CategoryAuth:
		d = l.config.Auth
	case audit.CategoryCatalog:
		d = l.config.Catalog
	case audit.CategoryRoles:
		d = l.config.Roles
	}
	if d == "" {
		return ToAll
	}
	return d
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.TargetEventID != nil {
		fields = append(fields, zap.String("event_id", event.TargetEventID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event according to the category's destination.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	dest := l.destination(event.Category)
	if dest == Off {
		return
	}
	if dest == ToAll || dest == ToLog {
		l.logToZap(event)
	}
	if (dest == ToAll || dest == ToDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func fromRequest(r *http.Request, e audit.Event) audit.Event {
	if r != nil {
		e.IP = loginstore.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

func oid(hex string) *primitive.ObjectID {
	if id, err := primitive.ObjectIDFromHex(hex); err == nil {
		return &id
	}
	return nil
}

// --- Authentication Events ---

// LoginSuccess logs a completed identity-provider login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, provider string, created bool) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
		Details: map[string]string{
			"provider":    provider,
			"provisioned": strconv.FormatBool(created),
		},
	}))
}

// LoginFailed logs a callback that did not produce a session.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, reason string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		FailureReason: reason,
	}))
}

// Logout logs a user logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    oid(userID),
		Success:   true,
	}))
}

// --- Catalog Events ---

// EventCreated logs a new catalog entry.
func (l *Logger) EventCreated(ctx context.Context, r *http.Request, actorID string, eventID primitive.ObjectID, title string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryCatalog,
		EventType:     audit.EventEventCreated,
		ActorID:       oid(actorID),
		TargetEventID: &eventID,
		Success:       true,
		Details:       map[string]string{"title": title},
	}))
}

// EventUpdated logs an owner's edit.
func (l *Logger) EventUpdated(ctx context.Context, r *http.Request, actorID string, eventID primitive.ObjectID, title string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryCatalog,
		EventType:     audit.EventEventUpdated,
		ActorID:       oid(actorID),
		TargetEventID: &eventID,
		Success:       true,
		Details:       map[string]string{"title": title},
	}))
}

// EditDenied logs an attempt to change someone else's event.
func (l *Logger) EditDenied(ctx context.Context, r *http.Request, actorID string, eventID primitive.ObjectID) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryCatalog,
		EventType:     audit.EventEditDenied,
		ActorID:       oid(actorID),
		TargetEventID: &eventID,
		FailureReason: "not the owner",
	}))
}

// --- Role Events ---

// RoleGranted logs a role grant from configuration, at startup or on
// first login.
func (l *Logger) RoleGranted(ctx context.Context, email, role string, matched int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryRoles,
		EventType: audit.EventRoleGranted,
		Success:   true,
		Details: map[string]string{
			"email":   email,
			"role":    role,
			"matched": strconv.FormatInt(matched, 10),
			"source":  "config",
		},
	})
}
