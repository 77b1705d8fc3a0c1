package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID         string
	ExternalID string
	Name       string
	Email      string
	Role       string
}

func newTestUser(name, email, role string) TestUser {
	return TestUser{
		ID:         primitive.NewObjectID().Hex(),
		ExternalID: "sub|" + primitive.NewObjectID().Hex(),
		Name:       name,
		Email:      email,
		Role:       role,
	}
}

// AttendeeUser returns a TestUser with attendee role.
func AttendeeUser() TestUser {
	return newTestUser("Test Attendee", "attendee@test.com", models.RoleAttendee)
}

// OrganizerUser returns a TestUser with organizer role.
func OrganizerUser() TestUser {
	return newTestUser("Test Organizer", "organizer@test.com", models.RoleOrganizer)
}

// ScannerUser returns a TestUser with scanner role.
func ScannerUser() TestUser {
	return newTestUser("Test Scanner", "scanner@test.com", models.RoleScanner)
}

// FromModel builds a TestUser for a stored user.
func FromModel(u models.User) TestUser {
	return TestUser{ID: u.ID.Hex(), ExternalID: u.ExternalID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:         user.ID,
		ExternalID: user.ExternalID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
	})
}

// NewJSONRequest creates a request whose body is body marshaled as JSON.
func NewJSONRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates a JSON request with a user in context.
func NewAuthenticatedRequest(method, target string, body any, user TestUser) *http.Request {
	return WithUser(NewJSONRequest(method, target, body), user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, strings.TrimSpace(r.Body.String()))
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// DecodeJSON unmarshals the response body into v.
func (r *ResponseRecorder) DecodeJSON(t interface {
	Fatalf(string, ...any)
}, v any) {
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", r.Body.String(), err)
	}
}
