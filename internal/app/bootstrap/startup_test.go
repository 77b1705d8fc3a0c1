package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/eventkey/internal/app/store/audit"
	userstore "github.com/dalemusser/eventkey/internal/app/store/users"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/dalemusser/eventkey/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:    "mongodb://localhost:27017",
		DefaultRole: models.RoleAttendee,
		SessionKey:  "dev-only-change-me-please-0123456789ABCDEF",
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a@x.org, ,b@x.org,")
	want := []string{"a@x.org", "b@x.org"}
	if !slices.Equal(got, want) {
		t.Errorf("splitList = %v, want %v", got, want)
	}
	if got := splitList(""); len(got) != 0 {
		t.Errorf("splitList(\"\") = %v, want empty", got)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*AppConfig) {}},
		{
			name:    "bad mongo uri",
			mutate:  func(c *AppConfig) { c.MongoURI = "postgres://nope" },
			wantErr: "MongoDB URI",
		},
		{
			name:    "bad redis scheme",
			mutate:  func(c *AppConfig) { c.RedisURL = "http://localhost:6379" },
			wantErr: "redis_url",
		},
		{
			name:   "redis url accepted",
			mutate: func(c *AppConfig) { c.RedisURL = "redis://localhost:6379/0" },
		},
		{
			name:    "unknown default role",
			mutate:  func(c *AppConfig) { c.DefaultRole = "admin" },
			wantErr: "default_role",
		},
		{
			name: "partial oidc",
			mutate: func(c *AppConfig) {
				c.OIDCClientID = "client"
				c.OIDCAuthURL = "https://idp/auth"
			},
			wantErr: "oidc_token_url, oidc_userinfo_url, oidc_redirect_url",
		},
		{
			name: "complete oidc",
			mutate: func(c *AppConfig) {
				c.OIDCClientID = "client"
				c.OIDCAuthURL = "https://idp/auth"
				c.OIDCTokenURL = "https://idp/token"
				c.OIDCUserInfoURL = "https://idp/userinfo"
				c.OIDCRedirectURL = "https://app/auth/callback"
			},
		},
		{
			name:    "dev session key in prod",
			env:     "prod",
			mutate:  func(*AppConfig) {},
			wantErr: "session_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestGrantRoles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	org := fx.CreateUser(ctx, "Olive Organizer", "olive@example.org", models.RoleAttendee)
	scan := fx.CreateUser(ctx, "Sam Scanner", "sam@example.org", models.RoleAttendee)

	cfg := validConfig()
	cfg.OrganizerEmails = []string{"Olive@Example.org"}
	cfg.ScannerEmails = []string{"sam@example.org", "nobody@example.org"}

	svc := &Services{}
	buildServices(svc, cfg, DBDeps{EventKeyMongoDatabase: db}, testLogger())
	auditLog, sink := testutil.NewAuditLogger()
	svc.Audit = auditLog

	if err := grantRoles(ctx, svc, cfg, testLogger()); err != nil {
		t.Fatalf("grantRoles: %v", err)
	}

	users := userstore.New(db)
	if u, err := users.GetByID(ctx, org.ID); err != nil || u.Role != models.RoleOrganizer {
		t.Errorf("organizer role = %v (err %v), want %q", u, err, models.RoleOrganizer)
	}
	if u, err := users.GetByID(ctx, scan.ID); err != nil || u.Role != models.RoleScanner {
		t.Errorf("scanner role = %v (err %v), want %q", u, err, models.RoleScanner)
	}

	events := sink.Events()
	if len(events) != 3 {
		t.Fatalf("audit events = %d, want 3", len(events))
	}
	for _, e := range events {
		if e.EventType != audit.EventRoleGranted {
			t.Errorf("audit type = %q, want %q", e.EventType, audit.EventRoleGranted)
		}
		if e.Details["email"] == "nobody@example.org" && e.Details["matched"] != "0" {
			t.Errorf("pending grant matched = %q, want 0", e.Details["matched"])
		}
	}
}

func TestStartupAndShutdown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := validConfig()
	cfg.StateCleanupInterval = time.Hour
	deps := DBDeps{EventKeyMongoDatabase: db, App: &Services{}}

	if err := EnsureSchema(ctx, nil, cfg, deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := Startup(ctx, nil, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if deps.App.Ticketing == nil || deps.App.Ticketing.Notify == nil {
		t.Fatal("ticketing service not wired with a notifier")
	}
	if deps.App.Notifier != deps.App.Hub {
		t.Error("without redis the hub should be the notifier")
	}
	if deps.App.cleanup == nil {
		t.Error("state cleanup worker not started")
	}

	// The shared test client is disconnected by SetupTestDB's cleanup.
	if err := Shutdown(ctx, nil, cfg, DBDeps{App: deps.App}, testLogger()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := validConfig()
	cfg.SessionName = "eventkey-test"
	cfg.SessionMaxAge = time.Hour
	deps := DBDeps{
		EventKeyMongoClient:   db.Client(),
		EventKeyMongoDatabase: db,
		App:                   &Services{},
	}
	buildServices(deps.App, cfg, deps, testLogger())

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/health", http.StatusOK, `"database":"connected"`},
		{"/metrics", http.StatusOK, "eventkey_"},
		{"/me", http.StatusOK, `"isAuthenticated":false`},
		{"/events", http.StatusOK, `"events"`},
		{"/tickets/mine", http.StatusUnauthorized, "error"},
		{"/dashboard/scanner", http.StatusUnauthorized, "error"},
		{"/auth/login", http.StatusServiceUnavailable, "error"},
		{"/audit/logins", http.StatusUnauthorized, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Accept", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestBuildHandler_AuthRateLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := validConfig()
	cfg.SessionMaxAge = time.Hour
	cfg.RateLimitAuth = 1
	deps := DBDeps{
		EventKeyMongoClient:   db.Client(),
		EventKeyMongoDatabase: db,
		App:                   &Services{},
	}
	buildServices(deps.App, cfg, deps, testLogger())
	defer deps.App.AuthLimit.Stop()

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	statuses := make([]int, 2)
	for i := range statuses {
		req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
		req.RemoteAddr = "198.51.100.4:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses[i] = rec.Code
	}
	if statuses[0] != http.StatusServiceUnavailable || statuses[1] != http.StatusTooManyRequests {
		t.Errorf("statuses = %v, want [503 429]", statuses)
	}
}

func TestRoleGrants(t *testing.T) {
	cfg := AppConfig{
		OrganizerEmails: []string{" Olive@Example.org ", "both@example.org"},
		ScannerEmails:   []string{"sam@example.org", "both@example.org", ""},
	}
	got := roleGrants(cfg)
	want := map[string]string{
		"olive@example.org": models.RoleOrganizer,
		"both@example.org":  models.RoleOrganizer,
		"sam@example.org":   models.RoleScanner,
	}
	if len(got) != len(want) {
		t.Fatalf("roleGrants = %v, want %v", got, want)
	}
	for email, role := range want {
		if got[email] != role {
			t.Errorf("roleGrants[%q] = %q, want %q", email, got[email], role)
		}
	}
}
