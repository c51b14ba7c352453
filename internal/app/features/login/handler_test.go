package login_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/foodjournal/internal/app/accounts"
	"github.com/dalemusser/foodjournal/internal/app/features/login"
	"github.com/dalemusser/foodjournal/internal/app/session"
	"github.com/dalemusser/foodjournal/internal/app/store/audit"
	"github.com/dalemusser/foodjournal/internal/app/store/memstore"
	"github.com/dalemusser/foodjournal/internal/app/system/auditlog"
	"github.com/dalemusser/foodjournal/internal/app/system/auth"
	"github.com/dalemusser/foodjournal/internal/app/system/authutil"
	"github.com/dalemusser/foodjournal/internal/app/system/ratelimit"
	"github.com/dalemusser/foodjournal/internal/testutil"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	authutil.BcryptCost = 4
	os.Exit(m.Run())
}

type env struct {
	mem     *memstore.Store
	handler *login.Handler
	router  http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mem := memstore.New()
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	sm.UseStores(mem.Profiles(), mem.Groups())

	now := time.Now()
	limiter := ratelimit.NewLoginLimiterWith(
		ratelimit.NewWithClock(100, time.Minute, func() time.Time { return now }),
		ratelimit.NewWithClock(3, time.Minute, func() time.Time { return now }),
	)
	t.Cleanup(limiter.Stop)

	acct := accounts.New(mem.Credentials(), mem.Profiles(), zap.NewNop())
	al := auditlog.New(mem.Audit(), zap.NewNop(), auditlog.Config{Auth: "db", Admin: "db"})
	h := login.NewHandler(acct, sm, limiter, mem.Logins(), al, zap.NewNop())
	return &env{mem: mem, handler: h, router: login.Routes(h)}
}

func (e *env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) signup(t *testing.T, email, pw, name string) *testutil.ResponseRecorder {
	t.Helper()
	return e.do(testutil.NewJSONRequest("POST", "/signup", map[string]string{
		"email": email, "password": pw, "display_name": name,
	}))
}

func (e *env) auditTypes(t *testing.T) []string {
	t.Helper()
	events, err := e.mem.Audit().Query(t.Context(), audit.QueryFilter{})
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	var types []string
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	return types
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestSignup_CreatesUnassignedProfile(t *testing.T) {
	e := newEnv(t)

	rec := e.signup(t, "Ann@Example.com", "secret1", "Ann")
	rec.AssertStatus(t, http.StatusCreated)

	var snap struct {
		State   string `json:"state"`
		IsAdmin bool   `json:"is_admin"`
		Profile *struct {
			UID         string  `json:"uid"`
			DisplayName string  `json:"display_name"`
			GroupID     *string `json:"group_id"`
		} `json:"profile"`
	}
	body := rec.Body.String()
	rec.DecodeJSON(t, &snap)
	if snap.State != session.Authenticated.String() {
		t.Fatalf("state = %q, want authenticated (body %s)", snap.State, body)
	}
	if snap.Profile == nil || snap.Profile.DisplayName != "Ann" || snap.Profile.GroupID != nil {
		t.Errorf("unexpected profile: %s", body)
	}
	if snap.IsAdmin {
		t.Error("fresh profile should not be an admin")
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie")
	}

	types := e.auditTypes(t)
	if !contains(types, audit.EventSignup) || !contains(types, audit.EventProfileCreated) {
		t.Errorf("audit types = %v", types)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "ann@example.com", "secret1", "Ann").AssertStatus(t, http.StatusCreated)

	rec := e.signup(t, "ann@example.com", "secret2", "Other Ann")
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "EmailTaken")
}

func TestSignup_Validation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name   string
		email  string
		pw     string
		dname  string
		status int
	}{
		{"bad email", "not-an-email", "secret1", "Ann", http.StatusBadRequest},
		{"missing name", "ann@example.com", "secret1", "", http.StatusBadRequest},
		{"short password", "ann@example.com", "abc", "Ann", http.StatusUnprocessableEntity},
		{"markup-only name", "ann@example.com", "secret1", "<b></b>", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.signup(t, tt.email, tt.pw, tt.dname).AssertStatus(t, tt.status)
		})
	}
}

func TestSignup_ProfileWriteFails(t *testing.T) {
	e := newEnv(t)
	e.mem.FailNext(memstore.PointPutProfile, errBoom)

	rec := e.signup(t, "ann@example.com", "secret1", "Ann")
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, session.AuthenticatedNoProfile.String())

	if contains(e.auditTypes(t), audit.EventProfileCreated) {
		t.Error("profile_created should not be logged when the write failed")
	}
}

func TestLogin_Success(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "ann@example.com", "secret1", "Ann")

	req := testutil.NewJSONRequest("POST", "/login", map[string]string{"email": "ann@example.com", "password": "secret1"})
	req.RemoteAddr = "10.0.0.1:1234"
	rec := e.do(req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, session.Authenticated.String())

	var uid string
	for id := range e.mem.Snapshot().Profiles {
		uid = id
	}
	logins, err := e.mem.Logins().ListByUser(t.Context(), uid, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	// Signup and login both record a sign-in.
	if len(logins) != 2 {
		t.Errorf("expected 2 login records, got %d", len(logins))
	}
	if !contains(e.auditTypes(t), audit.EventLoginSuccess) {
		t.Error("expected login_success audit event")
	}
}

func TestLogin_FailuresLookTheSame(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "ann@example.com", "secret1", "Ann")

	unknown := e.do(testutil.NewJSONRequest("POST", "/login", map[string]string{"email": "bob@example.com", "password": "secret1"}))
	wrong := e.do(testutil.NewJSONRequest("POST", "/login", map[string]string{"email": "ann@example.com", "password": "nope123"}))

	unknown.AssertStatus(t, http.StatusUnauthorized)
	wrong.AssertStatus(t, http.StatusUnauthorized)
	if unknown.Body.String() != wrong.Body.String() {
		t.Errorf("responses differ:\n%s\n%s", unknown.Body.String(), wrong.Body.String())
	}

	types := e.auditTypes(t)
	if !contains(types, audit.EventLoginFailedUserNotFound) || !contains(types, audit.EventLoginFailedWrongPassword) {
		t.Errorf("audit types = %v", types)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "ann@example.com", "secret1", "Ann")

	var last *testutil.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = e.do(testutil.NewJSONRequest("POST", "/login", map[string]string{"email": "ann@example.com", "password": "wrong12"}))
	}
	last.AssertStatus(t, http.StatusTooManyRequests)

	// Even the right password is refused until the window passes.
	rec := e.do(testutil.NewJSONRequest("POST", "/login", map[string]string{"email": "ann@example.com", "password": "secret1"}))
	rec.AssertStatus(t, http.StatusTooManyRequests)

	if !contains(e.auditTypes(t), audit.EventLoginFailedRateLimit) {
		t.Error("expected login_failed_rate_limit audit event")
	}
}

func TestLogin_MalformedBody(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest("POST", "/login", nil)
	e.do(req).AssertStatus(t, http.StatusBadRequest)
}

var errBoom = errTest("boom")

type errTest string

func (e errTest) Error() string { return string(e) }
