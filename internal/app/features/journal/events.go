// internal/app/features/journal/events.go
package journal

import (
	"context"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	"github.com/dalemusser/foodjournal/internal/app/system/authz"
	"github.com/dalemusser/foodjournal/internal/app/system/formutil"
	"github.com/dalemusser/foodjournal/internal/app/system/timeouts"
	"github.com/dalemusser/foodjournal/internal/domain/models"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

type logEventInput struct {
	Type string `json:"type" validate:"required,oneof=FOOD_INTAKE FRIDGE_STORAGE" label:"Event type"`
}

type eventsResponse struct {
	Events []models.Event `json:"events"`
}

// ServeEvents handles GET /journal/events.
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			uierrors.RenderBadRequest(w, "limit must be a positive number.")
			return
		}
		limit = min(n, maxEventLimit)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	snap := authz.Snapshot(r)
	events, err := h.Journal.RecentEvents(ctx, snap, limit)
	if err != nil {
		h.renderError(w, snap, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	uierrors.WriteJSON(w, http.StatusOK, eventsResponse{Events: events})
}

// HandleLogEvent handles POST /journal/events.
func (h *Handler) HandleLogEvent(w http.ResponseWriter, r *http.Request) {
	var in logEventInput
	if msg, ok := formutil.Decode(r, &in); !ok {
		uierrors.RenderBadRequest(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	snap := authz.Snapshot(r)
	ev, err := h.Journal.LogEvent(ctx, snap, models.EventType(in.Type))
	if err != nil {
		h.renderError(w, snap, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, ev)
}
