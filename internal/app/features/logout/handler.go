// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	"github.com/dalemusser/foodjournal/internal/app/system/auditlog"
	"github.com/dalemusser/foodjournal/internal/app/system/auth"
	"github.com/dalemusser/foodjournal/internal/app/system/authz"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// ServeLogout handles POST /auth/logout. It always clears the cookie and
// reports the resulting Unauthenticated snapshot.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	if id := authz.Snapshot(r).Identity; id != nil {
		h.AuditLog.Logout(r.Context(), r, id.UID)
	}
	uierrors.WriteJSON(w, http.StatusOK, h.SessionMgr.Resolve(r.Context(), nil))
}
