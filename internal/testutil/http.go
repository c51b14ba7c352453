package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/foodjournal/internal/app/session"
	"github.com/dalemusser/foodjournal/internal/app/system/authz"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"github.com/google/uuid"
)

// TestUser represents a signed-in caller for handler tests.
type TestUser struct {
	UID     string
	Name    string
	Email   string
	GroupID string
	Role    models.Role
	Token   string
	Stale   bool
}

// Unassigned returns a TestUser with no group.
func Unassigned(name string) TestUser {
	return TestUser{
		UID:   uuid.NewString(),
		Name:  name,
		Email: strings.ToLower(name) + "@test.com",
		Role:  models.RoleMember,
	}
}

// GroupAdmin returns a TestUser who administers groupID.
func GroupAdmin(name, groupID string) TestUser {
	u := Unassigned(name)
	u.GroupID = groupID
	u.Role = models.RoleAdmin
	return u
}

// GroupMember returns a TestUser who is a plain member of groupID.
func GroupMember(name, groupID string) TestUser {
	u := Unassigned(name)
	u.GroupID = groupID
	return u
}

// Profile converts the user to the profile the session would have loaded.
func (u TestUser) Profile() models.Profile {
	p := models.Profile{
		UID:         u.UID,
		Email:       u.Email,
		DisplayName: u.Name,
		Role:        u.Role,
	}
	if u.GroupID != "" {
		gid := u.GroupID
		p.GroupID = &gid
	}
	if u.Token != "" {
		tok := u.Token
		p.NotificationToken = &tok
	}
	return p
}

// Snapshot returns an Authenticated snapshot for the user.
func (u TestUser) Snapshot() session.Snapshot {
	p := u.Profile()
	return session.Snapshot{
		State:      session.Authenticated,
		Identity:   &session.Identity{UID: u.UID, Email: u.Email},
		Profile:    &p,
		GroupStale: u.Stale,
	}
}

// WithUser adds an Authenticated session snapshot to the request context.
// This bypasses the session middleware.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return authz.WithSnapshot(r, user.Snapshot())
}

// WithState adds a snapshot in an arbitrary state with no profile.
func WithState(r *http.Request, state session.State) *http.Request {
	return authz.WithSnapshot(r, session.Snapshot{State: state})
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request whose body is v encoded as JSON.
func NewJSONRequest(method, target string, v any) *http.Request {
	var buf bytes.Buffer
	if v != nil {
		_ = json.NewEncoder(&buf).Encode(v)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	return WithUser(httptest.NewRequest(method, target, nil), user)
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
		t.Errorf("status code: got %d, want %d (body: %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q: %s", expected, r.Body.String())
	}
}

// DecodeJSON decodes the response body into v.
func (r *ResponseRecorder) DecodeJSON(t interface{ Fatalf(string, ...any) }, v any) {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, r.Body.String())
	}
}
