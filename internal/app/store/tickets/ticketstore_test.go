package ticketstore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	eventstore "github.com/dalemusser/eventkey/internal/app/store/events"
	ticketstore "github.com/dalemusser/eventkey/internal/app/store/tickets"
	userstore "github.com/dalemusser/eventkey/internal/app/store/users"
	"github.com/dalemusser/eventkey/internal/app/system/indexes"
	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/dalemusser/eventkey/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*ticketstore.Store, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return ticketstore.New(db), testutil.NewFixtures(t, db), db
}

func TestStore_Insert_DuplicatePair(t *testing.T) {
	store, _, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user, event := primitive.NewObjectID(), primitive.NewObjectID()
	first := models.Ticket{UserID: user, EventID: event, QRCode: "EVENTKEY-e-u-1", CreatedAt: time.Now().UTC()}
	if _, err := store.Insert(ctx, first); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	second := models.Ticket{UserID: user, EventID: event, QRCode: "EVENTKEY-e-u-2", CreatedAt: time.Now().UTC()}
	if _, err := store.Insert(ctx, second); !errors.Is(err, ticketing.ErrDuplicateTicket) {
		t.Errorf("expected ErrDuplicateTicket, got %v", err)
	}
}

func TestStore_MarkCheckedIn_Once(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tk := fixtures.CreateTicket(ctx, primitive.NewObjectID(), primitive.NewObjectID())
	at := time.Now().UTC().Truncate(time.Millisecond)

	got, applied, err := store.MarkCheckedIn(ctx, tk.ID, at)
	if err != nil {
		t.Fatalf("MarkCheckedIn failed: %v", err)
	}
	if !applied || !got.CheckedIn || got.CheckedInAt == nil || !got.CheckedInAt.Equal(at) {
		t.Fatalf("first check-in: applied=%v ticket=%+v", applied, got)
	}

	again, applied, err := store.MarkCheckedIn(ctx, tk.ID, at.Add(time.Minute))
	if err != nil {
		t.Fatalf("second MarkCheckedIn failed: %v", err)
	}
	if applied {
		t.Error("second check-in must not apply")
	}
	if !again.CheckedInAt.Equal(at) {
		t.Errorf("checked_in_at moved to %v", again.CheckedInAt)
	}

	if _, _, err := store.MarkCheckedIn(ctx, primitive.NewObjectID(), at); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("missing ticket: expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_Lookups(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := primitive.NewObjectID()
	e1, e2 := primitive.NewObjectID(), primitive.NewObjectID()
	t1 := fixtures.CreateTicket(ctx, user, e1)
	fixtures.CreateTicket(ctx, user, e2)
	fixtures.CreateTicket(ctx, primitive.NewObjectID(), e1)

	byCode, err := store.FindByQRCode(ctx, t1.QRCode)
	if err != nil || byCode.ID != t1.ID {
		t.Errorf("FindByQRCode = %v, %v", byCode, err)
	}
	if _, err := store.FindByQRCode(ctx, t1.QRCode+"x"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("near-miss code should not match, got %v", err)
	}

	mine, err := store.ListByUser(ctx, user)
	if err != nil || len(mine) != 2 {
		t.Errorf("ListByUser = %d, %v", len(mine), err)
	}
	attendees, err := store.ListByEvent(ctx, e1)
	if err != nil || len(attendees) != 2 {
		t.Errorf("ListByEvent = %d, %v", len(attendees), err)
	}
}

func TestStore_StatsByEvent(t *testing.T) {
	store, fixtures, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	busy, quiet := primitive.NewObjectID(), primitive.NewObjectID()
	for i := 0; i < 3; i++ {
		tk := fixtures.CreateTicket(ctx, primitive.NewObjectID(), busy)
		if i == 0 {
			if _, _, err := store.MarkCheckedIn(ctx, tk.ID, time.Now().UTC()); err != nil {
				t.Fatalf("MarkCheckedIn failed: %v", err)
			}
		}
	}

	stats, err := store.StatsByEvent(ctx, []primitive.ObjectID{busy, quiet})
	if err != nil {
		t.Fatalf("StatsByEvent failed: %v", err)
	}
	if got := stats[busy]; got.Total != 3 || got.CheckedIn != 1 {
		t.Errorf("busy stats = %+v", got)
	}
	if got, ok := stats[quiet]; !ok || got.Total != 0 {
		t.Errorf("quiet stats = %+v (present=%v)", got, ok)
	}
}

// The protocol against the real ledger: concurrent scans of one code admit
// exactly one holder, concurrent registrations create exactly one ticket.
func TestProtocol_AgainstMongo(t *testing.T) {
	store, fixtures, db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	holder := fixtures.CreateUser(ctx, "Holder", "holder@example.com", models.RoleAttendee)
	event := fixtures.CreateEvent(ctx, "Gala", "org", time.Now().Add(24*time.Hour))
	svc := ticketing.New(store, eventstore.New(db), userstore.New(db), zap.NewNop())

	const n = 6
	var wg sync.WaitGroup
	issued := make([]ticketing.Issued, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			issued[i], errs[i] = svc.IssueTicket(ctx, holder.ID, event.ID)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("IssueTicket %d failed: %v", i, errs[i])
		}
		if issued[i].Ticket.ID != issued[0].Ticket.ID {
			t.Errorf("IssueTicket %d returned a different ticket", i)
		}
		if issued[i].Created {
			created++
		}
	}
	if created != 1 {
		t.Errorf("created=%d, want exactly 1", created)
	}

	code := issued[0].Ticket.QRCode
	results := make([]ticketing.Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.ValidateAndCheckIn(ctx, code)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, r := range results {
		switch {
		case r.Valid:
			admitted++
			if r.User == nil || r.User.ID != holder.ID {
				t.Errorf("admitted result missing holder: %+v", r.User)
			}
		case r.Message != ticketing.MsgAlreadyUsed:
			t.Errorf("unexpected rejection %q", r.Message)
		}
	}
	if admitted != 1 {
		t.Errorf("admitted=%d, want exactly 1", admitted)
	}
}
