// internal/app/features/journal/reminders.go
package journal

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	"github.com/dalemusser/foodjournal/internal/app/system/authz"
	"github.com/dalemusser/foodjournal/internal/app/system/formutil"
	"github.com/dalemusser/foodjournal/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type reminderInput struct {
	TargetUID string `json:"target_uid" validate:"required" label:"Recipient"`
}

// HandleReminder handles POST /journal/reminders.
func (h *Handler) HandleReminder(w http.ResponseWriter, r *http.Request) {
	var in reminderInput
	if msg, ok := formutil.Decode(r, &in); !ok {
		uierrors.RenderBadRequest(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	snap := authz.Snapshot(r)
	d, err := h.Journal.SendReminder(ctx, snap, in.TargetUID)
	if err != nil {
		if snap.Profile != nil {
			h.AuditLog.ReminderSent(ctx, r, snap.Profile.UID, in.TargetUID, snap.GroupID(), false)
		}
		h.renderError(w, snap, err)
		return
	}
	if d.LogErr != nil {
		h.Log.Warn("reminder sent but not recorded", zap.String("target", d.UID), zap.Error(d.LogErr))
	}
	h.AuditLog.ReminderSent(ctx, r, snap.Profile.UID, d.UID, snap.GroupID(), true)
	uierrors.WriteJSON(w, http.StatusOK, d)
}

// HandleGroupReminder handles POST /journal/reminders/group. Partial
// failure is reported in the body, not the status.
func (h *Handler) HandleGroupReminder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Fanout())
	defer cancel()

	snap := authz.Snapshot(r)
	out, err := h.Journal.RemindGroup(ctx, snap)
	if err != nil {
		h.renderError(w, snap, err)
		return
	}

	actor, gid := snap.Profile.UID, snap.GroupID()
	for _, d := range out.Delivered {
		h.AuditLog.ReminderSent(ctx, r, actor, d.UID, gid, true)
	}
	for _, f := range out.Failed {
		h.AuditLog.ReminderSent(ctx, r, actor, f.UID, gid, false)
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}
