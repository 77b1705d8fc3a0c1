package eventstore

import (
	"context"
	"time"

	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CacheObserver is told about cache hits and misses.
type CacheObserver interface {
	CacheLookup(hit bool)
}

// Cached fronts GetByID with a per-instance LRU. Scanning at a door looks
// up the same handful of events thousands of times; a short TTL bounds how
// stale an edit made on another instance can appear.
type Cached struct {
	*Store
	lru *expirable.LRU[primitive.ObjectID, models.Event]
	obs CacheObserver
}

// NewCached wraps s with a cache of size entries living ttl each.
func NewCached(s *Store, size int, ttl time.Duration, obs CacheObserver) *Cached {
	if size < 1 {
		size = 256
	}
	return &Cached{
		Store: s,
		lru:   expirable.NewLRU[primitive.ObjectID, models.Event](size, nil, ttl),
		obs:   obs,
	}
}

// GetByID serves from the cache, loading and remembering on a miss.
// Misses on absent events are not cached.
func (c *Cached) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	if e, ok := c.lru.Get(id); ok {
		c.observe(true)
		return &e, nil
	}
	c.observe(false)
	e, err := c.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.lru.Add(id, *e)
	return e, nil
}

// Update writes through and refreshes the cached copy.
func (c *Cached) Update(ctx context.Context, id primitive.ObjectID, in Input, ownerIDs ...string) (models.Event, error) {
	e, err := c.Store.Update(ctx, id, in, ownerIDs...)
	if err != nil {
		c.lru.Remove(id)
		return e, err
	}
	c.lru.Add(id, e)
	return e, nil
}

// Invalidate drops id from the cache.
func (c *Cached) Invalidate(id primitive.ObjectID) { c.lru.Remove(id) }

// Len reports the number of cached events.
func (c *Cached) Len() int { return c.lru.Len() }

func (c *Cached) observe(hit bool) {
	if c.obs != nil {
		c.obs.CacheLookup(hit)
	}
}
