// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.

The unique indexes on tickets are load bearing: issuance relies on
uniq_tickets_user_event to reject a second ticket for the same pair.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := []struct {
		name   string
		ensure func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"events", ensureEvents},
		{"tickets", ensureTickets},
		{"scans", ensureScans},
		{"login_records", ensureLoginRecords},
		{"oauth_states", ensureOAuthStates},
		{"audit_events", ensureAuditEvents},
	}

	var problems []string
	for _, s := range sets {
		if err := s.ensure(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(p *bool) bool { return p != nil && *p }

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

// listBySig returns the collection's indexes keyed by key signature.
func listBySig(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// describeCreateErr turns a create failure into a readable problem line,
// pointing at duplicate data when a unique index cannot be built.
func describeCreateErr(coll *mongo.Collection, name, sig string, unique bool, err error) string {
	if unique && wafflemongo.IsDup(err) {
		fields := strings.ReplaceAll(sig, ":1", "")
		return fmt.Sprintf("%s(%s): cannot create unique index, duplicates present on (%s)", coll.Name(), name, fields)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var name string
		var wantUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			wantUnique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		unique := boolVal(wantUnique)
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique))

		ex, found := listBySig(ctx, coll)[sig]
		if !found {
			_, err := coll.Indexes().CreateOne(ctx, m)
			if isOptionsConflictErr(err) {
				// Raced with another creator or an equivalent index appeared; retry the reconcile path.
				ex, found = listBySig(ctx, coll)[sig]
				err = nil
				if !found {
					err = fmt.Errorf("index options conflict")
				}
			}
			if err != nil {
				log.Warn("index ensure failed", zap.Duration("took", time.Since(start)), zap.Error(err))
				errs = append(errs, describeCreateErr(coll, name, sig, unique, err))
				continue
			}
			if !found {
				log.Info("index ensured", zap.Duration("took", time.Since(start)))
				continue
			}
		}

		if boolVal(ex.Unique) == unique && (name == "" || ex.Name == name) {
			log.Debug("reusing existing index", zap.String("existing", ex.Name))
			continue
		}

		// Options or name differ (e.g. upgrading to unique). Drop & recreate.
		if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
			log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
			continue
		}
		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			log.Warn("recreate index failed", zap.Error(err))
			errs = append(errs, describeCreateErr(coll, name, sig, unique, err))
			continue
		}
		log.Info("index dropped and recreated",
			zap.String("previous", ex.Name),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		// One record per identity-provider subject; provisioning upserts on it.
		{
			Keys:    bson.D{{Key: "external_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_external_id"),
		},
		// Role grants by email at startup.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_users_email"),
		},
	})
}

func ensureEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("events"), []mongo.IndexModel{
		// Catalog listing by date with a stable tiebreak (keyset paging).
		{
			Keys:    bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_events_date__id"),
		},
		// Organizer dashboards.
		{
			Keys:    bson.D{{Key: "organizer_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("idx_events_organizer_date"),
		},
	})
}

func ensureTickets(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("tickets"), []mongo.IndexModel{
		// At most one ticket per (user, event).
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_tickets_user_event"),
		},
		// Scan lookups by exact code.
		{
			Keys:    bson.D{{Key: "qr_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_tickets_qr_code"),
		},
		// Attendee lists and per-event stats.
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_tickets_event_created"),
		},
	})
}

func ensureScans(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("scans"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "scanner_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_scans_scanner_created"),
		},
	})
}

func ensureLoginRecords(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("login_records"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_logins_user_created"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_logins_created"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("oauth_states"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauth_state"),
		},
		// TTL: Mongo removes states once expires_at passes.
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_ttl"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_timestamp"),
		},
	})
}
