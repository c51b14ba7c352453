// internal/app/features/groups/activity.go
package groups

import (
	"context"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	"github.com/dalemusser/foodjournal/internal/app/store/audit"
	"github.com/dalemusser/foodjournal/internal/app/system/gates"
	"github.com/dalemusser/foodjournal/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

type activityResponse struct {
	Events []audit.Event `json:"events"`
}

// ServeActivity handles GET /admin/audit: the administration trail for
// the caller's group, newest first.
func (h *Handler) ServeActivity(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireGroupAdmin(w, r)
	if !res.OK {
		return
	}

	limit := int64(defaultActivityLimit)
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			uierrors.RenderBadRequest(w, "limit must be a positive number.")
			return
		}
		limit = min(n, maxActivityLimit)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	events, err := h.Audit.Query(ctx, audit.QueryFilter{
		GroupID:  res.GroupID,
		Category: audit.CategoryAdmin,
		Limit:    limit,
	})
	if err != nil {
		h.Log.Error("audit query failed", zap.String("group_id", res.GroupID), zap.Error(err))
		uierrors.RenderInternal(w)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	uierrors.WriteJSON(w, http.StatusOK, activityResponse{Events: events})
}
