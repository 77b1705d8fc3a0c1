package ticketing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// memLedger is an in-memory Ledger with the same uniqueness and conditional
// write guarantees as the Mongo store.
type memLedger struct {
	mu      sync.Mutex
	tickets map[primitive.ObjectID]models.Ticket

	// gate, when set, is called between the "not found" lookup and the insert
	// so tests can force interleavings.
	gate func()
	// scanGate, when set, is called with the ticket FindByQRCode read,
	// before it is returned.
	scanGate func(models.Ticket)
	failAll  error
}

func newMemLedger() *memLedger {
	return &memLedger{tickets: make(map[primitive.ObjectID]models.Ticket)}
}

func (l *memLedger) FindByUserEvent(ctx context.Context, userID, eventID primitive.ObjectID) (*models.Ticket, error) {
	if l.failAll != nil {
		return nil, l.failAll
	}
	l.mu.Lock()
	for _, t := range l.tickets {
		if t.UserID == userID && t.EventID == eventID {
			l.mu.Unlock()
			return &t, nil
		}
	}
	l.mu.Unlock()
	if l.gate != nil {
		l.gate()
	}
	return nil, mongo.ErrNoDocuments
}

func (l *memLedger) Insert(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	if l.failAll != nil {
		return models.Ticket{}, l.failAll
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ex := range l.tickets {
		if (ex.UserID == t.UserID && ex.EventID == t.EventID) || ex.QRCode == t.QRCode {
			return models.Ticket{}, ErrDuplicateTicket
		}
	}
	t.ID = primitive.NewObjectID()
	l.tickets[t.ID] = t
	return t, nil
}

func (l *memLedger) FindByQRCode(ctx context.Context, code string) (*models.Ticket, error) {
	if l.failAll != nil {
		return nil, l.failAll
	}
	l.mu.Lock()
	var found *models.Ticket
	for _, t := range l.tickets {
		if t.QRCode == code {
			t := t
			found = &t
			break
		}
	}
	l.mu.Unlock()
	if found == nil {
		return nil, mongo.ErrNoDocuments
	}
	if l.scanGate != nil {
		l.scanGate(*found)
	}
	return found, nil
}

func (l *memLedger) MarkCheckedIn(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Ticket, bool, error) {
	if l.failAll != nil {
		return nil, false, l.failAll
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tickets[id]
	if !ok {
		return nil, false, mongo.ErrNoDocuments
	}
	if t.CheckedIn {
		return &t, false, nil
	}
	t.CheckedIn = true
	t.CheckedInAt = &at
	l.tickets[id] = t
	return &t, true, nil
}

func (l *memLedger) count(userID, eventID primitive.ObjectID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.tickets {
		if t.UserID == userID && t.EventID == eventID {
			n++
		}
	}
	return n
}

func (l *memLedger) get(id primitive.ObjectID) models.Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tickets[id]
}

type memCatalog struct {
	events map[primitive.ObjectID]models.Event
	err    error
}

func (c *memCatalog) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	if c.err != nil {
		return nil, c.err
	}
	ev, ok := c.events[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &ev, nil
}

type memDirectory struct {
	users map[primitive.ObjectID]models.User
}

func (d *memDirectory) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &u, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	created  int
	existing int
	outcomes map[Outcome]int
}

func (r *countingRecorder) TicketIssued(created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if created {
		r.created++
	} else {
		r.existing++
	}
}

func (r *countingRecorder) CheckIn(outcome Outcome, took time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[Outcome]int)
	}
	r.outcomes[outcome]++
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []primitive.ObjectID
}

func (n *recordingNotifier) EventChanged(ctx context.Context, eventID primitive.ObjectID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventID)
}

var errStoreDown = errors.New("store unavailable")
