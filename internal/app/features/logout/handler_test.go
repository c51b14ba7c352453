package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/foodjournal/internal/app/features/logout"
	"github.com/dalemusser/foodjournal/internal/app/session"
	"github.com/dalemusser/foodjournal/internal/app/store/audit"
	"github.com/dalemusser/foodjournal/internal/app/store/memstore"
	"github.com/dalemusser/foodjournal/internal/app/system/auditlog"
	"github.com/dalemusser/foodjournal/internal/app/system/auth"
	"github.com/dalemusser/foodjournal/internal/testutil"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*memstore.Store, *auth.SessionManager, http.Handler) {
	t.Helper()
	mem := memstore.New()
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	sm.UseStores(mem.Profiles(), mem.Groups())
	al := auditlog.New(mem.Audit(), zap.NewNop(), auditlog.Config{Auth: "db", Admin: "db"})
	h := logout.NewHandler(sm, al, zap.NewNop())
	return mem, sm, sm.LoadSession(logout.Routes(h, sm))
}

func TestLogout_ClearsSession(t *testing.T) {
	mem, sm, router := setup(t)
	user := testutil.Unassigned("Ann")
	testutil.NewFixtures(t, mem).CreateProfile(user)

	login := httptest.NewRecorder()
	if err := sm.SignIn(login, httptest.NewRequest("POST", "/auth/login", nil), session.Identity{UID: user.UID, Email: user.Email}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	req := httptest.NewRequest("POST", "/", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"state":"unauthenticated"`)

	var expired bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Error("expected the session cookie to be expired")
	}

	events, _ := mem.Audit().Query(t.Context(), audit.QueryFilter{EventType: audit.EventLogout})
	if len(events) != 1 || events[0].UserID != user.UID {
		t.Errorf("expected one logout audit event for %s, got %+v", user.UID, events)
	}
}

func TestLogout_WithoutSession(t *testing.T) {
	_, _, router := setup(t)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
