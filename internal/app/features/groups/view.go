// internal/app/features/groups/view.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	"github.com/dalemusser/foodjournal/internal/app/membership"
	"github.com/dalemusser/foodjournal/internal/app/policy/grouppolicy"
	"github.com/dalemusser/foodjournal/internal/app/system/gates"
	"github.com/dalemusser/foodjournal/internal/app/system/timeouts"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"go.uber.org/zap"
)

// adminResponse is the admin screen. Exactly one of the shapes applies:
// no group (create one), stale group (repair), or the live view.
type adminResponse struct {
	HasGroup   bool             `json:"has_group"`
	Stale      bool             `json:"stale"`
	GroupID    string           `json:"group_id,omitempty"`
	Group      *models.Group    `json:"group,omitempty"`
	Members    []models.Profile `json:"members,omitempty"`
	Unassigned []models.Profile `json:"unassigned,omitempty"`
}

// ServeAdmin handles GET /admin.
func (h *Handler) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireAuth(w, r)
	if !res.OK {
		return
	}
	switch {
	case res.GroupID == "":
		uierrors.WriteJSON(w, http.StatusOK, adminResponse{})
		return
	case res.Snapshot.GroupStale:
		uierrors.WriteJSON(w, http.StatusOK, adminResponse{HasGroup: true, Stale: true, GroupID: res.GroupID})
		return
	case !grouppolicy.CanAdminister(r, res.GroupID):
		uierrors.RenderForbidden(w, "Only a group admin can manage members.")
		return
	}
	h.writeView(w, r, res.GroupID, http.StatusOK)
}

// writeView re-reads the group and both lists so the response reflects
// committed state.
func (h *Handler) writeView(w http.ResponseWriter, r *http.Request, groupID string, status int) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	v, err := membership.LoadAdminView(ctx, h.Groups, h.Queries, groupID)
	if err != nil {
		if membership.KindOf(err) == membership.KindGroupNotFound {
			uierrors.WriteJSON(w, http.StatusOK, adminResponse{HasGroup: true, Stale: true, GroupID: groupID})
			return
		}
		h.Log.Warn("load admin view failed", zap.String("group_id", groupID), zap.Error(err))
		uierrors.RenderMembership(w, err)
		return
	}
	if v.Members == nil {
		v.Members = []models.Profile{}
	}
	if v.Unassigned == nil {
		v.Unassigned = []models.Profile{}
	}
	uierrors.WriteJSON(w, status, adminResponse{
		HasGroup:   true,
		GroupID:    groupID,
		Group:      &v.Group,
		Members:    v.Members,
		Unassigned: v.Unassigned,
	})
}
