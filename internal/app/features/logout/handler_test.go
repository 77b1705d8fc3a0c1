package logout_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/eventkey/internal/app/features/logout"
	"github.com/dalemusser/eventkey/internal/app/store/audit"
	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"github.com/dalemusser/eventkey/internal/testutil"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) (*logout.Handler, *testutil.AuditSink) {
	t.Helper()
	mgr, err := auth.NewSessionManager(strings.Repeat("k", 32), "eventkey-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	al, sink := testutil.NewAuditLogger()
	return logout.NewHandler(mgr, al, zap.NewNop()), sink
}

func expiredCookie(t *testing.T, rec *testutil.ResponseRecorder) {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "eventkey-session" {
			if c.MaxAge >= 0 {
				t.Errorf("cookie MaxAge = %d, want negative", c.MaxAge)
			}
			return
		}
	}
	t.Error("no session cookie written")
}

func TestServeLogout_API(t *testing.T) {
	h, sink := newHandler(t)
	rec := testutil.NewRecorder()
	h.ServeLogout(rec, testutil.NewAuthenticatedRequest("GET", "/logout", nil, testutil.AttendeeUser()))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"signedOut":true`)
	expiredCookie(t, rec)

	types := sink.Types()
	if len(types) != 1 || types[0] != audit.EventLogout {
		t.Errorf("audit events = %v", types)
	}
}

func TestServeLogout_BrowserRedirects(t *testing.T) {
	h, _ := newHandler(t)
	req := testutil.NewJSONRequest("GET", "/logout", nil)
	req.Header.Set("Accept", "text/html")
	rec := testutil.NewRecorder()
	h.ServeLogout(rec, req)

	rec.AssertStatus(t, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q", loc)
	}
}

func TestServeLogout_AnonymousNotAudited(t *testing.T) {
	h, sink := newHandler(t)
	rec := testutil.NewRecorder()
	h.ServeLogout(rec, testutil.NewJSONRequest("GET", "/logout", nil))

	rec.AssertStatus(t, http.StatusOK)
	if n := len(sink.Types()); n != 0 {
		t.Errorf("audit events = %d, want 0", n)
	}
}
