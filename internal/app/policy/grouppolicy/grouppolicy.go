// internal/app/policy/grouppolicy/grouppolicy.go
package grouppolicy

import (
	"net/http"

	"github.com/dalemusser/foodjournal/internal/app/system/authz"
)

// CanAdminister reports whether the request user may run admin actions
// against groupID. The admin role alone is not enough: it only has meaning
// inside the profile's own group, and a stale group grants nothing.
func CanAdminister(r *http.Request, groupID string) bool {
	return authz.Snapshot(r).CanAdminister(groupID)
}

// CanViewGroup reports whether the request user belongs to groupID.
func CanViewGroup(r *http.Request, groupID string) bool {
	snap := authz.Snapshot(r)
	return snap.HasGroup() && snap.GroupID() == groupID
}
