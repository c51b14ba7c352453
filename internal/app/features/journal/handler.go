// internal/app/features/journal/handler.go
package journal

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	journalsvc "github.com/dalemusser/foodjournal/internal/app/journal"
	"github.com/dalemusser/foodjournal/internal/app/session"
	"github.com/dalemusser/foodjournal/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler serves the group timeline and reminders.
type Handler struct {
	Journal  *journalsvc.Service
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(svc *journalsvc.Service, al *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Journal: svc, AuditLog: al, Log: logger}
}

// renderError maps journal errors to responses.
func (h *Handler) renderError(w http.ResponseWriter, snap session.Snapshot, err error) {
	var rl *journalsvc.RateLimitedError
	switch {
	case errors.Is(err, journalsvc.ErrNotSignedIn):
		uierrors.RenderUnauthorized(w, "")
	case errors.Is(err, journalsvc.ErrNoGroup):
		uierrors.Render(w, http.StatusConflict, "NoGroup", "Create or join a group first.")
	case errors.Is(err, journalsvc.ErrStaleGroup):
		uierrors.WriteJSON(w, http.StatusConflict, uierrors.Body{
			Kind:    "StaleGroup",
			Message: "Your group no longer exists. Repair your profile to continue.",
			GroupID: snap.GroupID(),
		})
	case errors.Is(err, journalsvc.ErrNotInGroup):
		uierrors.Render(w, http.StatusNotFound, "NotInGroup", "That user is not in your group.")
	case errors.Is(err, journalsvc.ErrSelfReminder):
		uierrors.Render(w, http.StatusUnprocessableEntity, "SelfReminder", "You can't send a reminder to yourself.")
	case errors.Is(err, journalsvc.ErrNoToken):
		uierrors.Render(w, http.StatusUnprocessableEntity, "NoToken", "That user has not enabled notifications.")
	case errors.Is(err, journalsvc.ErrEventType):
		uierrors.Render(w, http.StatusUnprocessableEntity, "InvalidInput", "That event type can't be logged.")
	case errors.As(err, &rl):
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		uierrors.Render(w, http.StatusTooManyRequests, "RateLimited", "Too many reminders. Try again later.")
	case errors.Is(err, journalsvc.ErrDispatchFailed):
		h.Log.Warn("reminder dispatch failed", zap.Error(err))
		uierrors.Render(w, http.StatusBadGateway, "DispatchFailed", "The notification could not be delivered.")
	default:
		h.Log.Error("journal request failed", zap.Error(err))
		uierrors.RenderInternal(w)
	}
}
