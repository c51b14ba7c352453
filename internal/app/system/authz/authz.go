// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"net/http"

	"github.com/dalemusser/foodjournal/internal/app/session"
)

type ctxKey struct{}

// WithSnapshot returns a copy of r carrying snap.
func WithSnapshot(r *http.Request, snap session.Snapshot) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, snap))
}

// Snapshot returns the request's session snapshot. Requests that never
// passed through the session middleware are Unauthenticated.
func Snapshot(r *http.Request) session.Snapshot {
	if snap, ok := r.Context().Value(ctxKey{}).(session.Snapshot); ok {
		return snap
	}
	return session.Snapshot{State: session.Unauthenticated}
}

// UserCtx returns the caller's uid, display name, admin flag, and whether
// the request is in the Authenticated state. Anything else fails closed.
func UserCtx(r *http.Request) (uid, name string, isAdmin, ok bool) {
	snap := Snapshot(r)
	if snap.State != session.Authenticated || snap.Profile == nil {
		return "", "", false, false
	}
	return snap.Profile.UID, snap.Profile.DisplayName, snap.IsAdmin(), true
}

// IsAdmin reports the derived admin flag. It is necessary but not
// sufficient for group actions; see grouppolicy.
func IsAdmin(r *http.Request) bool {
	_, _, admin, ok := UserCtx(r)
	return ok && admin
}

// UserGroupID returns the caller's group id, or "" when unassigned.
func UserGroupID(r *http.Request) string {
	return Snapshot(r).GroupID()
}
