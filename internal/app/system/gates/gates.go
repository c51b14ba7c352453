// Package gates provides authorization checks for HTTP handlers.
// Each gate writes a JSON error and returns OK=false when the check
// fails, so handlers can return immediately.
//
// Route-level middleware (auth.RequireAuthenticated) handles the common
// case; gates cover handlers that need more, such as a live group or
// admin rights over a specific group (via grouppolicy).
package gates

import (
	"net/http"

	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	"github.com/dalemusser/foodjournal/internal/app/policy/grouppolicy"
	"github.com/dalemusser/foodjournal/internal/app/session"
	"github.com/dalemusser/foodjournal/internal/app/system/authz"
	"github.com/dalemusser/foodjournal/internal/domain/models"
)

// Result contains the result of a gate check.
type Result struct {
	Snapshot session.Snapshot
	Profile  models.Profile
	GroupID  string
	OK       bool
}

// RequireAuth ensures the session is Authenticated. Every other state,
// including AuthenticatedNoProfile, gets a 401 and no content.
func RequireAuth(w http.ResponseWriter, r *http.Request) Result {
	snap := authz.Snapshot(r)
	if snap.State != session.Authenticated || snap.Profile == nil {
		uierrors.RenderUnauthorized(w, unauthorizedMessage(snap))
		return Result{OK: false}
	}
	return Result{Snapshot: snap, Profile: *snap.Profile, GroupID: snap.GroupID(), OK: true}
}

// RequireGroup ensures the caller is Authenticated and belongs to a group
// that exists. A stale reference gets a 409 pointing at the repair path.
func RequireGroup(w http.ResponseWriter, r *http.Request) Result {
	res := RequireAuth(w, r)
	if !res.OK {
		return res
	}
	switch {
	case res.GroupID == "":
		uierrors.Render(w, http.StatusConflict, "NoGroup", "Create or join a group first.")
		return Result{OK: false}
	case res.Snapshot.GroupStale:
		uierrors.WriteJSON(w, http.StatusConflict, uierrors.Body{
			Kind:    "StaleGroup",
			Message: "Your group no longer exists. Repair your profile to continue.",
			GroupID: res.GroupID,
		})
		return Result{OK: false}
	}
	return res
}

// RequireGroupAdmin ensures the caller may administer their own group.
func RequireGroupAdmin(w http.ResponseWriter, r *http.Request) Result {
	res := RequireGroup(w, r)
	if !res.OK {
		return res
	}
	if !grouppolicy.CanAdminister(r, res.GroupID) {
		uierrors.RenderForbidden(w, "Only a group admin can do this.")
		return Result{OK: false}
	}
	return res
}

func unauthorizedMessage(snap session.Snapshot) string {
	switch snap.State {
	case session.AuthenticatedNoProfile:
		return "Your profile is missing. Set it up to continue."
	case session.Resolving:
		return "Your profile could not be loaded. Please try again."
	default:
		return ""
	}
}
