package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/eventkey/internal/app/features/health"
	"github.com/dalemusser/eventkey/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type fakeRedis struct{ err error }

func (f fakeRedis) Ping(context.Context) error { return f.err }

func serve(t *testing.T, h *health.Handler) (int, map[string]string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/health", nil))
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, body
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	code, body := serve(t, health.NewHandler(db.Client(), nil, zap.NewNop()))

	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if body["status"] != "ok" || body["database"] != "connected" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["redis"]; ok {
		t.Error("redis should be omitted when not configured")
	}
}

func TestServe_RedisDown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	code, body := serve(t, health.NewHandler(db.Client(), fakeRedis{err: errors.New("down")}, zap.NewNop()))

	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if body["status"] != "degraded" || body["redis"] != "disconnected" {
		t.Errorf("body = %v", body)
	}
}

func TestServe_DatabaseDisconnected(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Nothing listens on port 1; connect is lazy and every ping fails fast.
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(200*time.Millisecond))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(context.Background())

	code, body := serve(t, health.NewHandler(client, nil, zap.NewNop()))
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if body["database"] != "disconnected" || body["status"] != "error" {
		t.Errorf("body = %v", body)
	}
}
