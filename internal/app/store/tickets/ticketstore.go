// internal/app/store/tickets/ticketstore.go
package ticketstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"github.com/dalemusser/eventkey/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the Mongo ticket ledger. It satisfies ticketing.Ledger.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tickets")}
}

var _ ticketing.Ledger = (*Store)(nil)

// FindByUserEvent returns mongo.ErrNoDocuments when the user holds no ticket
// for the event.
func (s *Store) FindByUserEvent(ctx context.Context, userID, eventID primitive.ObjectID) (*models.Ticket, error) {
	return s.findOne(ctx, bson.M{"user_id": userID, "event_id": eventID})
}

// FindByQRCode matches the code exactly.
func (s *Store) FindByQRCode(ctx context.Context, code string) (*models.Ticket, error) {
	return s.findOne(ctx, bson.M{"qr_code": code})
}

// GetByID loads a ticket by id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// Insert assigns an id when missing. A collision on either unique index
// (user_id+event_id or qr_code) is reported as ticketing.ErrDuplicateTicket.
func (s *Store) Insert(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Ticket{}, fmt.Errorf("%w: %v", ticketing.ErrDuplicateTicket, err)
		}
		return models.Ticket{}, err
	}
	return t, nil
}

// MarkCheckedIn flips checked_in with a single conditional write. Only one
// caller can match {checked_in:false}; everyone else gets applied=false and
// the ticket as it now stands.
func (s *Store) MarkCheckedIn(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Ticket, bool, error) {
	var t models.Ticket
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "checked_in": false},
		bson.M{"$set": bson.M{"checked_in": true, "checked_in_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if err == nil {
		return &t, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return cur, false, nil
}

// ListByEvent returns the event's tickets in issue order.
func (s *Store) ListByEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.Ticket, error) {
	return s.find(ctx, bson.M{"event_id": eventID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
}

// ListByUser returns the user's tickets, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Ticket, error) {
	return s.find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
}

// StatsByEvent counts tickets and check-ins per event with one aggregation.
// Events without tickets are present with zero stats.
func (s *Store) StatsByEvent(ctx context.Context, eventIDs []primitive.ObjectID) (map[primitive.ObjectID]ticketing.Stats, error) {
	out := make(map[primitive.ObjectID]ticketing.Stats, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	for _, id := range eventIDs {
		out[id] = ticketing.Stats{}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"event_id": bson.M{"$in": eventIDs}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$event_id",
			"total": bson.M{"$sum": 1},
			"checked_in": bson.M{"$sum": bson.M{
				"$cond": bson.A{"$checked_in", 1, 0},
			}},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		EventID   primitive.ObjectID `bson:"_id"`
		Total     int                `bson:"total"`
		CheckedIn int                `bson:"checked_in"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.EventID] = ticketing.Stats{Total: r.Total, CheckedIn: r.CheckedIn}
	}
	return out, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Ticket, error) {
	var t models.Ticket
	if err := s.c.FindOne(ctx, filter).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Ticket, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	rows := []models.Ticket{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
