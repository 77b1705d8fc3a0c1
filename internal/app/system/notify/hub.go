// Package notify fans out "event attendance changed" signals to organizer
// dashboard streams. Hub delivers within one process; Redis carries the
// signal between instances and feeds each instance's Hub.
package notify

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// subscriberBuffer bounds how far a slow stream may lag before signals to it
// are dropped. A dropped signal only delays a dashboard refresh.
const subscriberBuffer = 16

// Hub is an in-process publish/subscribe point. It satisfies
// ticketing.Notifier.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan primitive.ObjectID]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan primitive.ObjectID]struct{})}
}

// Subscribe returns a channel receiving every changed event id until ctx is
// done, at which point the channel is closed.
func (h *Hub) Subscribe(ctx context.Context) <-chan primitive.ObjectID {
	ch := make(chan primitive.ObjectID, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

// EventChanged delivers id to every subscriber without blocking.
func (h *Hub) EventChanged(_ context.Context, id primitive.ObjectID) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- id:
		default:
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
