package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/eventkey/internal/app/system/qrcode"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	u := models.User{
		ID:         primitive.NewObjectID(),
		ExternalID: "sub|" + primitive.NewObjectID().Hex(),
		Email:      email,
		Name:       name,
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateEvent inserts an event owned by organizerID at date.
func (f *Fixtures) CreateEvent(ctx context.Context, title, organizerID string, date time.Time) models.Event {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	e := models.Event{
		ID:          primitive.NewObjectID(),
		Title:       title,
		TitleCI:     text.Fold(title),
		Description: "Test event",
		Location:    "Main Hall",
		Date:        date.UTC().Truncate(time.Millisecond),
		OrganizerID: organizerID,
		CreatedAt:   now,
	}
	if _, err := f.db.Collection("events").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test event: %v", err)
	}
	return e
}

// CreateTicket inserts an unchecked ticket for (userID, eventID) with a real code.
func (f *Fixtures) CreateTicket(ctx context.Context, userID, eventID primitive.ObjectID) models.Ticket {
	f.t.Helper()

	code, err := qrcode.Encode(eventID.Hex(), userID.Hex())
	if err != nil {
		f.t.Fatalf("failed to encode ticket code: %v", err)
	}
	tk := models.Ticket{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		EventID:   eventID,
		QRCode:    code,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := f.db.Collection("tickets").InsertOne(ctx, tk); err != nil {
		f.t.Fatalf("failed to create test ticket: %v", err)
	}
	return tk
}
