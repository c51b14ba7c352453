// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/foodjournal/internal/app/accounts"
	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/system/authz"
	"github.com/dalemusser/foodjournal/internal/app/system/formutil"
	"github.com/dalemusser/foodjournal/internal/app/system/timeouts"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"go.uber.org/zap"
)

const recentLoginsLimit = 20

type setupInput struct {
	DisplayName string `json:"display_name" validate:"required,max=60" label:"Display name"`
}

type updateInput struct {
	DisplayName       *string `json:"display_name"`
	NotificationToken *string `json:"notification_token"`
}

// ServeMe reports the caller's session snapshot in whatever state it is.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	uierrors.WriteJSON(w, http.StatusOK, authz.Snapshot(r))
}

// HandleSetup creates a profile for a signed-in identity that has none.
func (h *Handler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	id := authz.Snapshot(r).Identity
	if id == nil {
		uierrors.RenderUnauthorized(w, "")
		return
	}

	var in setupInput
	if msg, ok := formutil.Decode(r, &in); !ok {
		uierrors.RenderBadRequest(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, err := h.Accounts.SetupProfile(ctx, *id, in.DisplayName)
	switch {
	case err == nil:
	case errors.Is(err, accounts.ErrProfileExists):
		uierrors.Render(w, http.StatusConflict, "ProfileExists", "Your profile is already set up.")
		return
	case errors.Is(err, profilestore.ErrDisplayNameRequired):
		uierrors.Render(w, http.StatusUnprocessableEntity, "InvalidInput", "Display name is required.")
		return
	default:
		h.Log.Error("profile setup failed", zap.Error(err), zap.String("uid", id.UID))
		uierrors.RenderInternal(w)
		return
	}

	h.AuditLog.ProfileCreated(ctx, r, id.UID, true)
	uierrors.WriteJSON(w, http.StatusCreated, h.SessionMgr.Resolve(r.Context(), id))
}

// HandleUpdate changes the caller's display name or notification token.
// Group and role are never writable here.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	snap := authz.Snapshot(r)
	if snap.Profile == nil {
		uierrors.RenderUnauthorized(w, "")
		return
	}

	var in updateInput
	if msg, ok := formutil.Decode(r, &in); !ok {
		uierrors.RenderBadRequest(w, msg)
		return
	}
	if in.DisplayName == nil && in.NotificationToken == nil {
		uierrors.RenderBadRequest(w, "Nothing to update.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	uid := snap.Profile.UID
	err := h.Profiles.UpdateSelf(ctx, uid, profilestore.SelfUpdate{
		DisplayName:       in.DisplayName,
		NotificationToken: in.NotificationToken,
	})
	switch {
	case err == nil:
	case errors.Is(err, profilestore.ErrDisplayNameRequired):
		uierrors.Render(w, http.StatusUnprocessableEntity, "InvalidInput", "Display name is required.")
		return
	case errors.Is(err, profilestore.ErrNotFound):
		uierrors.RenderUnauthorized(w, "Your profile could not be found.")
		return
	default:
		h.Log.Error("profile update failed", zap.Error(err), zap.String("uid", uid))
		uierrors.RenderInternal(w)
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, h.SessionMgr.Resolve(r.Context(), snap.Identity))
}

type loginsResponse struct {
	Logins []models.LoginRecord `json:"logins"`
}

// ServeLogins lists the caller's recent sign-ins, newest first.
func (h *Handler) ServeLogins(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	recs, err := h.Logins.ListByUser(ctx, uid, recentLoginsLimit)
	if err != nil {
		h.Log.Error("list logins failed", zap.Error(err), zap.String("uid", uid))
		uierrors.RenderInternal(w)
		return
	}
	if recs == nil {
		recs = []models.LoginRecord{}
	}
	uierrors.WriteJSON(w, http.StatusOK, loginsResponse{Logins: recs})
}
