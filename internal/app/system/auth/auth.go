// Package auth keeps the signed identity in a cookie session and turns it
// into a session.Snapshot for every request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	"github.com/dalemusser/foodjournal/internal/app/session"
	"github.com/dalemusser/foodjournal/internal/app/system/authz"
	"github.com/dalemusser/foodjournal/internal/app/system/timeouts"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	DefaultSessionName = "foodjournal-session"

	uidKey      = "uid"
	emailKey    = "email"
	signedInKey = "signed_in_at"
)

// SessionManager owns the cookie store and resolves identities through a
// per-request session.Gate.
type SessionManager struct {
	store    *sessions.CookieStore
	name     string
	profiles session.ProfileFetcher
	groups   session.GroupFetcher
	log      *zap.Logger
}

// NewSessionManager builds the cookie store. In production (secure=true)
// cookies are Secure with SameSite=None; over plain http on localhost use
// secure=false so browsers accept them.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessionKey == "" {
		return nil, errors.New("session key is empty; provide 32+ random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}
	store.MaxAge(store.Options.MaxAge)

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// UseStores sets where identities are resolved. Until it is called every
// request resolves to Unauthenticated.
func (sm *SessionManager) UseStores(profiles session.ProfileFetcher, groups session.GroupFetcher) {
	sm.profiles = profiles
	sm.groups = groups
}

// getSession returns the cookie session. A cookie that no longer decodes
// (rotated key, tampering) yields a fresh session rather than an error.
func (sm *SessionManager) getSession(r *http.Request) *sessions.Session {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			sm.log.Warn("session cookie invalid, using fresh session", zap.Error(err))
		} else {
			sm.log.Error("session store error, using fresh session", zap.Error(err))
		}
	}
	return sess
}

// Identity returns the signed identity carried by r, or nil.
func (sm *SessionManager) Identity(r *http.Request) *session.Identity {
	sess := sm.getSession(r)
	uid, _ := sess.Values[uidKey].(string)
	if uid == "" {
		return nil
	}
	email, _ := sess.Values[emailKey].(string)
	return &session.Identity{UID: uid, Email: email}
}

// SignIn writes id into the cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, id session.Identity) error {
	sess := sm.getSession(r)
	sess.Values[uidKey] = id.UID
	sess.Values[emailKey] = id.Email
	sess.Values[signedInKey] = time.Now().UTC().Unix()
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SignOut expires the cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess := sm.getSession(r)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Resolve runs the gate for id (nil means signed out) and returns the
// resulting snapshot. A profile fetch that fails is retried once before
// the request settles on Resolving.
func (sm *SessionManager) Resolve(ctx context.Context, id *session.Identity) session.Snapshot {
	gate := session.NewGate(sm.profiles, sm.groups, sm.log)
	if id != nil && sm.profiles == nil {
		id = nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	snap := gate.OnStateChange(ctx, id)
	if snap.State == session.Resolving {
		snap = gate.Refresh(ctx)
	}
	return snap
}

// LoadSession resolves the cookie identity and stores the snapshot in the
// request context for authz, gates, and handlers.
func (sm *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := sm.Resolve(r.Context(), sm.Identity(r))
		next.ServeHTTP(w, authz.WithSnapshot(r, snap))
	})
}

// RequireAuthenticated lets through only Authenticated requests. Every
// other state gets a 401 with no protected content.
func (sm *SessionManager) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := authz.Snapshot(r)
		if snap.State != session.Authenticated {
			uierrors.RenderUnauthorized(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn lets through any request carrying an identity, including
// AuthenticatedNoProfile, so the profile setup route stays reachable.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authz.Snapshot(r).Identity == nil {
			uierrors.RenderUnauthorized(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
