// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows in a paged list.
const PageSize = 25

// MaxPageSize caps the ?limit= a caller may ask for.
const MaxPageSize = 100

// ParseLimit reads ?limit=, falling back to PageSize for missing or bad
// values and clamping to MaxPageSize.
func ParseLimit(r *http.Request) int {
	n, err := strconv.Atoi(query.Get(r, "limit"))
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Trim cuts a slice fetched with limit+1 rows back to limit and reports
// whether another page exists.
func Trim[T any](rows []T, limit int) ([]T, bool) {
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}

// DateCursor is a keyset position in a (date, _id) ordered list.
type DateCursor struct {
	Date time.Time
	ID   primitive.ObjectID
}

// EncodeDate builds an opaque cursor for the row at (date, id).
func EncodeDate(date time.Time, id primitive.ObjectID) string {
	return wafflemongo.EncodeCursor(date.UTC().Format(time.RFC3339Nano), id)
}

// DecodeDate parses a cursor produced by EncodeDate.
func DecodeDate(s string) (DateCursor, bool) {
	if s == "" {
		return DateCursor{}, false
	}
	c, ok := wafflemongo.DecodeCursor(s)
	if !ok {
		return DateCursor{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, c.CI)
	if err != nil {
		return DateCursor{}, false
	}
	return DateCursor{Date: t, ID: c.ID}, true
}

// After returns the filter clause selecting rows strictly after the cursor
// in ascending (field, _id) order.
func (c DateCursor) After(field string) bson.M {
	return bson.M{"$or": []bson.M{
		{field: bson.M{"$gt": c.Date}},
		{field: c.Date, "_id": bson.M{"$gt": c.ID}},
	}}
}

// FindAscending sorts by (field, _id) ascending and fetches limit+1 rows
// so Trim can detect a next page.
func FindAscending(field string, limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: field, Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit + 1))
}
