// internal/app/features/groups/manage.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	"github.com/dalemusser/foodjournal/internal/app/membership"
	"github.com/dalemusser/foodjournal/internal/app/store/audit"
	"github.com/dalemusser/foodjournal/internal/app/system/formutil"
	"github.com/dalemusser/foodjournal/internal/app/system/gates"
	"github.com/dalemusser/foodjournal/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

type createGroupInput struct {
	Name string `json:"name" validate:"required,max=80" label:"Group name"`
}

type addMemberInput struct {
	UID string `json:"uid" validate:"required" label:"User"`
}

// HandleCreateGroup handles POST /admin/group. The caller becomes the
// sole admin and member of the new group.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireAuth(w, r)
	if !res.OK {
		return
	}
	var in createGroupInput
	if msg, ok := formutil.Decode(r, &in); !ok {
		uierrors.RenderBadRequest(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	uid := res.Profile.UID
	g, err := h.Membership.CreateGroup(ctx, uid, in.Name)
	if err != nil {
		h.AuditLog.MembershipChangeFailed(ctx, r, audit.EventGroupCreated, uid, uid, res.GroupID, string(membership.KindOf(err)))
		uierrors.RenderMembership(w, err)
		return
	}
	h.AuditLog.GroupCreated(ctx, r, uid, g.ID, g.Name)
	h.writeView(w, r, g.ID, http.StatusCreated)
}

// HandleAddMember handles POST /admin/members.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireGroup(w, r)
	if !res.OK {
		return
	}
	var in addMemberInput
	if msg, ok := formutil.Decode(r, &in); !ok {
		uierrors.RenderBadRequest(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor := res.Profile.UID
	if err := h.Membership.AddMember(ctx, actor, res.GroupID, in.UID); err != nil {
		h.AuditLog.MembershipChangeFailed(ctx, r, audit.EventMemberAddedToGroup, actor, in.UID, res.GroupID, string(membership.KindOf(err)))
		uierrors.RenderMembership(w, err)
		return
	}
	h.AuditLog.MemberAddedToGroup(ctx, r, actor, in.UID, res.GroupID)
	h.writeView(w, r, res.GroupID, http.StatusOK)
}

// HandleRemoveMember handles DELETE /admin/members/{uid}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireGroup(w, r)
	if !res.OK {
		return
	}
	target := chi.URLParam(r, "uid")
	if target == "" {
		uierrors.RenderBadRequest(w, "User is required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor := res.Profile.UID
	wasAdmin, err := h.Membership.RemoveMember(ctx, actor, res.GroupID, target)
	if err != nil {
		h.AuditLog.MembershipChangeFailed(ctx, r, audit.EventMemberRemovedFromGroup, actor, target, res.GroupID, string(membership.KindOf(err)))
		uierrors.RenderMembership(w, err)
		return
	}
	h.AuditLog.MemberRemovedFromGroup(ctx, r, actor, target, res.GroupID, wasAdmin)
	h.writeView(w, r, res.GroupID, http.StatusOK)
}

// HandleRepair handles POST /admin/repair: it clears the caller's
// reference to a group that no longer exists.
func (h *Handler) HandleRepair(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireAuth(w, r)
	if !res.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	uid := res.Profile.UID
	stale, err := h.Membership.RepairStaleGroup(ctx, uid)
	if err != nil {
		uierrors.RenderMembership(w, err)
		return
	}
	if stale != "" {
		h.AuditLog.StaleGroupRepaired(ctx, r, uid, stale)
	}
	uierrors.WriteJSON(w, http.StatusOK, h.SessionMgr.Resolve(r.Context(), res.Snapshot.Identity))
}
