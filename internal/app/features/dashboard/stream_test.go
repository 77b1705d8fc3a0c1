package dashboard_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/eventkey/internal/app/features/dashboard"
	"github.com/dalemusser/eventkey/internal/app/system/metrics"
	"github.com/dalemusser/eventkey/internal/app/system/notify"
	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/dalemusser/eventkey/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// memCatalog serves events and stats from memory.
type memCatalog struct {
	mu     sync.Mutex
	events map[primitive.ObjectID]models.Event
	stats  map[primitive.ObjectID]ticketing.Stats
}

func (m *memCatalog) add(ev models.Event, s ticketing.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
	m.stats[ev.ID] = s
}

func (m *memCatalog) GetByID(_ context.Context, id primitive.ObjectID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &ev, nil
}

func (m *memCatalog) GetByIDs(context.Context, []primitive.ObjectID) (map[primitive.ObjectID]models.Event, error) {
	return nil, nil
}

func (m *memCatalog) ListByOrganizer(_ context.Context, ids ...string) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, ev := range m.events {
		if ev.OwnedBy(ids...) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memCatalog) ListUpcoming(context.Context, time.Time, []primitive.ObjectID, int) ([]models.Event, error) {
	return nil, nil
}

func (m *memCatalog) ListByUser(context.Context, primitive.ObjectID) ([]models.Ticket, error) {
	return nil, nil
}

func (m *memCatalog) StatsByEvent(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]ticketing.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[primitive.ObjectID]ticketing.Stats{}
	for _, id := range ids {
		out[id] = m.stats[id]
	}
	return out, nil
}

// sseReader reads "event: stats" payloads, skipping comments.
type sseReader struct {
	sc *bufio.Scanner
}

func (s *sseReader) expectComment(t *testing.T, want string) {
	t.Helper()
	if !s.sc.Scan() || s.sc.Text() != ": "+want {
		t.Fatalf("expected %q comment, got %q", want, s.sc.Text())
	}
	s.sc.Scan() // blank line
}

func (s *sseReader) next(t *testing.T) dashboard.StatsMessage {
	t.Helper()
	var event string
	for s.sc.Scan() {
		line := s.sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if event != "stats" {
				t.Fatalf("unexpected event %q", event)
			}
			var msg dashboard.StatsMessage
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
				t.Fatal(err)
			}
			return msg
		}
	}
	t.Fatalf("stream ended: %v", s.sc.Err())
	return dashboard.StatsMessage{}
}

func TestServeOrganizerStream(t *testing.T) {
	org := testutil.OrganizerUser()
	cat := &memCatalog{events: map[primitive.ObjectID]models.Event{}, stats: map[primitive.ObjectID]ticketing.Stats{}}
	mine := models.Event{ID: primitive.NewObjectID(), OrganizerID: org.ExternalID}
	theirs := models.Event{ID: primitive.NewObjectID(), OrganizerID: "someone"}
	cat.add(mine, ticketing.Stats{Total: 4, CheckedIn: 1})
	cat.add(theirs, ticketing.Stats{Total: 9})

	hub := notify.NewHub()
	m := metrics.New()
	h := dashboard.NewHandler(cat, cat, nil, hub, m, zap.NewNop())
	h.Heartbeat = time.Hour

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeOrganizerStream(w, testutil.WithUser(r, org))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	sse := &sseReader{sc: bufio.NewScanner(resp.Body)}
	sse.expectComment(t, "connected")
	if got := promtest.ToFloat64(m.DashboardStream); got != 1 {
		t.Errorf("open streams = %v, want 1", got)
	}

	// Another organizer's change is filtered out; ours comes through.
	hub.EventChanged(ctx, theirs.ID)
	hub.EventChanged(ctx, mine.ID)
	msg := sse.next(t)
	if msg.EventID != mine.ID || msg.Stats.Total != 4 || msg.Percent != 25 {
		t.Errorf("first message = %+v", msg)
	}

	// An event created after the stream opened is picked up on first sight.
	later := models.Event{ID: primitive.NewObjectID(), OrganizerID: org.ID}
	cat.add(later, ticketing.Stats{Total: 1, CheckedIn: 1})
	hub.EventChanged(ctx, primitive.NewObjectID()) // unknown event
	hub.EventChanged(ctx, later.ID)
	msg = sse.next(t)
	if msg.EventID != later.ID || msg.Percent != 100 {
		t.Errorf("second message = %+v", msg)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for promtest.ToFloat64(m.DashboardStream) != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := promtest.ToFloat64(m.DashboardStream); got != 0 {
		t.Errorf("open streams after close = %v, want 0", got)
	}
}
