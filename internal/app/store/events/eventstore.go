// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/eventkey/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eventkey/internal/app/system/paging"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrDateRequired  = errors.New("date is required")
	ErrNoOrganizer   = errors.New("organizer is required")
	// ErrForbidden is returned by Update when the event exists but none of
	// the caller's ids own it.
	ErrForbidden = errors.New("event belongs to another organizer")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

// Input holds the organizer-editable fields of an event.
type Input struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
}

func (in Input) clean() (Input, error) {
	in.Title = htmlsanitize.PlainText(in.Title)
	in.Location = htmlsanitize.PlainText(in.Location)
	in.Description = htmlsanitize.Sanitize(in.Description)
	if in.Title == "" {
		return in, ErrTitleRequired
	}
	if in.Date.IsZero() {
		return in, ErrDateRequired
	}
	in.Date = in.Date.UTC().Truncate(time.Millisecond)
	return in, nil
}

// Create stores a new event owned by organizerID.
func (s *Store) Create(ctx context.Context, organizerID string, in Input) (models.Event, error) {
	if strings.TrimSpace(organizerID) == "" {
		return models.Event{}, ErrNoOrganizer
	}
	in, err := in.clean()
	if err != nil {
		return models.Event{}, err
	}
	e := models.Event{
		ID:          primitive.NewObjectID(),
		Title:       in.Title,
		TitleCI:     text.Fold(in.Title),
		Description: in.Description,
		Location:    in.Location,
		Date:        in.Date,
		OrganizerID: organizerID,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// GetByID returns mongo.ErrNoDocuments when the event does not exist.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByIDs loads several events at once, keyed by id.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Event, error) {
	out := make(map[primitive.ObjectID]models.Event, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []models.Event
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, e := range rows {
		out[e.ID] = e
	}
	return out, nil
}

// Update replaces the editable fields of an event owned by one of ownerIDs
// and returns the stored result. It returns mongo.ErrNoDocuments when the
// event does not exist and ErrForbidden when someone else owns it.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in Input, ownerIDs ...string) (models.Event, error) {
	in, err := in.clean()
	if err != nil {
		return models.Event{}, err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	filter := bson.M{"_id": id, "organizer_id": bson.M{"$in": nonEmpty(ownerIDs)}}
	update := bson.M{"$set": bson.M{
		"title":       in.Title,
		"title_ci":    text.Fold(in.Title),
		"description": in.Description,
		"location":    in.Location,
		"date":        in.Date,
		"updated_at":  now,
	}}

	var e models.Event
	err = s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return models.Event{}, gerr
		}
		return models.Event{}, ErrForbidden
	}
	if err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// Page is one keyset page of the catalog.
type Page struct {
	Events []models.Event `json:"events"`
	Next   string         `json:"next,omitempty"`
}

// ListPage returns events in (date, _id) order starting after the cursor.
// An empty or undecodable cursor starts from the beginning.
func (s *Store) ListPage(ctx context.Context, after string, limit int) (Page, error) {
	if limit < 1 {
		limit = paging.PageSize
	}
	filter := bson.M{}
	if c, ok := paging.DecodeDate(after); ok {
		filter = c.After("date")
	}
	rows, err := s.find(ctx, filter, paging.FindAscending("date", limit))
	if err != nil {
		return Page{}, err
	}
	rows, more := paging.Trim(rows, limit)
	p := Page{Events: rows}
	if more {
		last := rows[len(rows)-1]
		p.Next = paging.EncodeDate(last.Date, last.ID)
	}
	return p, nil
}

// ListByOrganizer returns every event owned by any of ids, by date.
func (s *Store) ListByOrganizer(ctx context.Context, ids ...string) ([]models.Event, error) {
	ids = nonEmpty(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"organizer_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}))
}

// ListUpcoming returns up to limit events dated at or after from, skipping
// the excluded ids.
func (s *Store) ListUpcoming(ctx context.Context, from time.Time, exclude []primitive.ObjectID, limit int) ([]models.Event, error) {
	filter := bson.M{"date": bson.M{"$gte": from.UTC()}}
	if len(exclude) > 0 {
		filter["_id"] = bson.M{"$nin": exclude}
	}
	return s.find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Event, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	rows := []models.Event{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func nonEmpty(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
