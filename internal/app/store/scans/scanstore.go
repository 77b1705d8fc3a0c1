// internal/app/store/scans/scanstore.go
package scanstore

import (
	"context"
	"time"

	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HistorySize is how many recent scans the scanner dashboard shows.
const HistorySize = 10

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("scans")}
}

// Record stores the outcome of one validation by scannerID.
func (s *Store) Record(ctx context.Context, scannerID primitive.ObjectID, res ticketing.Result) (models.ScanRecord, error) {
	rec := models.ScanRecord{
		ID:        primitive.NewObjectID(),
		ScannerID: scannerID,
		Valid:     res.Valid,
		Message:   res.Message,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if res.Ticket != nil {
		id := res.Ticket.ID
		rec.TicketID = &id
	}
	if res.Event != nil {
		id := res.Event.ID
		rec.EventID = &id
		rec.EventTitle = res.Event.Title
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return models.ScanRecord{}, err
	}
	return rec, nil
}

// Recent returns the scanner's latest records, newest first.
func (s *Store) Recent(ctx context.Context, scannerID primitive.ObjectID, limit int) ([]models.ScanRecord, error) {
	if limit < 1 {
		limit = HistorySize
	}
	cur, err := s.c.Find(ctx, bson.M{"scanner_id": scannerID}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	rows := []models.ScanRecord{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
