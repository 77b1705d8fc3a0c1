package userstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	errBadRole      = errors.New(`role must be "attendee"|"organizer"|"scanner"`)
	errNoExternalID = errors.New("external identity id is required")
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads users keyed by id. Missing ids are absent from the map.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, cur.Err()
}

// GetByExternalID looks up a user by identity-provider subject.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"external_id": externalID}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Identity is what the identity provider tells us about a subject.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
}

// Provision returns the user for the identity, creating it with defaultRole
// on first login. The upsert keys on external_id (unique index), so two
// concurrent first logins create one record. created reports whether this
// call inserted it.
//
// Existing records are returned untouched: email, name and role are fixed
// after creation.
func (s *Store) Provision(ctx context.Context, id Identity, defaultRole string) (u models.User, created bool, err error) {
	if strings.TrimSpace(id.ExternalID) == "" {
		return models.User{}, false, errNoExternalID
	}
	if !models.IsValidRole(defaultRole) {
		return models.User{}, false, errBadRole
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	newID := primitive.NewObjectID()
	update := bson.M{"$setOnInsert": bson.M{
		"_id":         newID,
		"external_id": id.ExternalID,
		"email":       strings.ToLower(strings.TrimSpace(id.Email)),
		"name":        strings.TrimSpace(id.Name),
		"role":        defaultRole,
		"created_at":  now,
		"updated_at":  now,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	err = s.c.FindOneAndUpdate(ctx, bson.M{"external_id": id.ExternalID}, update, opts).Decode(&u)
	if err != nil && isDupKey(err) {
		// Lost an upsert race on the unique index; the winner's record exists now.
		err = s.c.FindOne(ctx, bson.M{"external_id": id.ExternalID}).Decode(&u)
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("provision user: %w", err)
	}
	return u, u.ID == newID, nil
}

// SetRole changes a user's role. Returns mongo.ErrNoDocuments when no user
// has the id.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"role":       role,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetRoleByEmail changes the role of every user with the email and returns
// how many records now hold the role.
func (s *Store) SetRoleByEmail(ctx context.Context, email, role string) (int64, error) {
	if !models.IsValidRole(role) {
		return 0, errBadRole
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"email": strings.ToLower(strings.TrimSpace(email))},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}
