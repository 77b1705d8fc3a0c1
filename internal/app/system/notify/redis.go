package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Channel is the Redis pub/sub channel carrying changed event ids.
const Channel = "eventkey:event-changed"

// Redis publishes changes to every instance. It satisfies
// ticketing.Notifier; Relay delivers received changes to a local Hub.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedis connects to url and verifies the connection.
func NewRedis(ctx context.Context, url string, logger *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{client: client, log: logger}, nil
}

// EventChanged publishes id. Failures are logged; the change itself is
// already durable in MongoDB and the dashboard catches up on its next load.
func (r *Redis) EventChanged(ctx context.Context, id primitive.ObjectID) {
	if err := r.client.Publish(ctx, Channel, id.Hex()).Err(); err != nil {
		r.log.Warn("publish event change failed",
			zap.String("event_id", id.Hex()),
			zap.Error(err))
	}
}

// Relay forwards published changes into hub until ctx is done.
// The subscription is established before Relay returns.
func (r *Redis) Relay(ctx context.Context, hub *Hub) error {
	sub := r.client.Subscribe(ctx, Channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}

	go func() {
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				id, err := primitive.ObjectIDFromHex(m.Payload)
				if err != nil {
					r.log.Warn("ignoring malformed event change", zap.String("payload", m.Payload))
					continue
				}
				hub.EventChanged(ctx, id)
			}
		}
	}()
	return nil
}

// Ping checks connectivity for the health endpoint.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
