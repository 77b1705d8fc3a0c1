package events_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/eventkey/internal/app/features/events"
	"github.com/dalemusser/eventkey/internal/app/store/audit"
	eventstore "github.com/dalemusser/eventkey/internal/app/store/events"
	ticketstore "github.com/dalemusser/eventkey/internal/app/store/tickets"
	userstore "github.com/dalemusser/eventkey/internal/app/store/users"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/dalemusser/eventkey/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu  sync.Mutex
	ids []primitive.ObjectID
}

func (n *recordingNotifier) EventChanged(_ context.Context, id primitive.ObjectID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}

type env struct {
	h        *events.Handler
	fx       *testutil.Fixtures
	audit    *testutil.AuditSink
	notified *recordingNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	al, sink := testutil.NewAuditLogger()
	n := &recordingNotifier{}
	h := events.NewHandler(eventstore.New(db), ticketstore.New(db), userstore.New(db), al, n, zap.NewNop())
	return &env{h: h, fx: testutil.NewFixtures(t, db), audit: sink, notified: n}
}

func TestServeCreate(t *testing.T) {
	e := newEnv(t)
	org := testutil.OrganizerUser()

	body := map[string]any{
		"title":       "<b>Launch</b> Party",
		"description": "Bring friends",
		"location":    "Hall A",
		"date":        "2026-11-01T18:00:00Z",
	}
	rec := testutil.NewRecorder()
	e.h.ServeCreate(rec, testutil.NewAuthenticatedRequest("POST", "/events", body, org))
	rec.AssertStatus(t, http.StatusCreated)

	var ev models.Event
	rec.DecodeJSON(t, &ev)
	if ev.Title != "Launch Party" {
		t.Errorf("title = %q, want markup stripped", ev.Title)
	}
	if ev.OrganizerID != org.ID {
		t.Errorf("organizer = %q, want %q", ev.OrganizerID, org.ID)
	}
	if types := e.audit.Types(); len(types) != 1 || types[0] != audit.EventEventCreated {
		t.Errorf("audit = %v", types)
	}
}

func TestServeCreate_BadInput(t *testing.T) {
	e := newEnv(t)
	org := testutil.OrganizerUser()

	tests := []struct {
		name string
		body any
		want string
	}{
		{"no title", map[string]any{"date": "2026-11-01T18:00:00Z"}, "title is required"},
		{"no date", map[string]any{"title": "x"}, "date is required"},
		{"unknown field", map[string]any{"title": "x", "colour": "red"}, "invalid JSON body"},
		{"garbage", "{", "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.ServeCreate(rec, testutil.NewAuthenticatedRequest("POST", "/events", tt.body, org))
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, tt.want)
		})
	}
}

func TestServeList_Pages(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e.fx.CreateEvent(ctx, "Event", "org", base.Add(time.Duration(i)*time.Hour))
	}

	var seen int
	after := ""
	for pages := 0; pages < 10; pages++ {
		rec := testutil.NewRecorder()
		e.h.ServeList(rec, testutil.NewJSONRequest("GET", "/events?limit=2&after="+url.QueryEscape(after), nil))
		rec.AssertStatus(t, http.StatusOK)

		var page eventstore.Page
		rec.DecodeJSON(t, &page)
		seen += len(page.Events)
		if page.Next == "" {
			break
		}
		after = page.Next
	}
	if seen != 5 {
		t.Errorf("walked %d events, want 5", seen)
	}
}

func TestServeList_Empty(t *testing.T) {
	e := newEnv(t)
	rec := testutil.NewRecorder()
	e.h.ServeList(rec, testutil.NewJSONRequest("GET", "/events", nil))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"events":[]`)
}

func TestServeGet(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	ev := e.fx.CreateEvent(ctx, "Concert", "org", time.Now().Add(24*time.Hour))

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"found", ev.ID.Hex(), http.StatusOK},
		{"missing", primitive.NewObjectID().Hex(), http.StatusNotFound},
		{"malformed", "nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithChiURLParam(testutil.NewJSONRequest("GET", "/events/"+tt.id, nil), "id", tt.id)
			rec := testutil.NewRecorder()
			e.h.ServeGet(rec, req)
			rec.AssertStatus(t, tt.status)
		})
	}
}

func TestServeUpdate(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := testutil.OrganizerUser()
	other := testutil.OrganizerUser()
	ev := e.fx.CreateEvent(ctx, "Old", owner.ExternalID, time.Now().Add(24*time.Hour))
	body := map[string]any{"title": "New", "date": "2026-12-01T10:00:00Z"}

	put := func(user testutil.TestUser, id string) *testutil.ResponseRecorder {
		req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("PUT", "/events/"+id, body, user), "id", id)
		rec := testutil.NewRecorder()
		e.h.ServeUpdate(rec, req)
		return rec
	}

	rec := put(other, ev.ID.Hex())
	rec.AssertStatus(t, http.StatusForbidden)

	rec = put(owner, primitive.NewObjectID().Hex())
	rec.AssertStatus(t, http.StatusNotFound)

	// Owned through the external identity id.
	rec = put(owner, ev.ID.Hex())
	rec.AssertStatus(t, http.StatusOK)
	var got models.Event
	rec.DecodeJSON(t, &got)
	if got.Title != "New" || got.UpdatedAt == nil {
		t.Errorf("updated event = %+v", got)
	}

	types := e.audit.Types()
	if len(types) != 2 || types[0] != audit.EventEditDenied || types[1] != audit.EventEventUpdated {
		t.Errorf("audit = %v", types)
	}
	if len(e.notified.ids) != 1 || e.notified.ids[0] != ev.ID {
		t.Errorf("notified = %v", e.notified.ids)
	}
}

func TestServeAttendees(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ownerModel := e.fx.CreateUser(ctx, "Owner", "owner@test.com", models.RoleOrganizer)
	owner := testutil.FromModel(ownerModel)
	ev := e.fx.CreateEvent(ctx, "Gala", owner.ID, time.Now().Add(24*time.Hour))

	alice := e.fx.CreateUser(ctx, "Alice", "alice@test.com", models.RoleAttendee)
	bob := e.fx.CreateUser(ctx, "Bob", "bob@test.com", models.RoleAttendee)
	e.fx.CreateTicket(ctx, alice.ID, ev.ID)
	bt := e.fx.CreateTicket(ctx, bob.ID, ev.ID)
	if _, _, err := ticketstore.New(e.fx.DB()).MarkCheckedIn(ctx, bt.ID, time.Now()); err != nil {
		t.Fatal(err)
	}

	get := func(user testutil.TestUser) *testutil.ResponseRecorder {
		id := ev.ID.Hex()
		req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("GET", "/events/"+id+"/attendees", nil, user), "id", id)
		rec := testutil.NewRecorder()
		e.h.ServeAttendees(rec, req)
		return rec
	}

	get(testutil.OrganizerUser()).AssertStatus(t, http.StatusForbidden)

	rec := get(owner)
	rec.AssertStatus(t, http.StatusOK)
	var resp struct {
		Stats struct {
			Total     int `json:"total"`
			CheckedIn int `json:"checkedIn"`
		} `json:"stats"`
		Percent   int `json:"checkedInPercent"`
		Attendees []struct {
			Name      string `json:"name"`
			CheckedIn bool   `json:"checkedIn"`
		} `json:"attendees"`
	}
	rec.DecodeJSON(t, &resp)
	if resp.Stats.Total != 2 || resp.Stats.CheckedIn != 1 || resp.Percent != 50 {
		t.Errorf("stats = %+v percent %d", resp.Stats, resp.Percent)
	}
	names := map[string]bool{}
	for _, a := range resp.Attendees {
		names[a.Name] = a.CheckedIn
	}
	if len(names) != 2 || names["Alice"] || !names["Bob"] {
		t.Errorf("attendees = %+v", resp.Attendees)
	}
}
