package loginstore_test

import (
	"net/http/httptest"
	"testing"

	loginstore "github.com/dalemusser/eventkey/internal/app/store/logins"
	"github.com/dalemusser/eventkey/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateFromAndRecent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loginstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	r := httptest.NewRequest("GET", "/auth/callback", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if err := store.CreateFrom(ctx, r, userID, "oidc", true); err != nil {
		t.Fatalf("CreateFrom failed: %v", err)
	}
	if err := store.CreateFrom(ctx, r, userID, "oidc", false); err != nil {
		t.Fatalf("CreateFrom failed: %v", err)
	}

	recent, err := store.Recent(ctx, userID, 5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records, want 2", len(recent))
	}
	if recent[0].IP != "203.0.113.9" || recent[0].Provider != "oidc" {
		t.Errorf("unexpected record %+v", recent[0])
	}
	if recent[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "9.9.9.9:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 4.3.2.1 "}, "9.9.9.9:1", "4.3.2.1"},
		{"remote addr", nil, "9.9.9.9:1234", "9.9.9.9"},
		{"remote addr without port", nil, "9.9.9.9", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := loginstore.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
