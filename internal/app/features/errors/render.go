// internal/app/features/errors/render.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/foodjournal/internal/app/membership"
)

// Body is the JSON shape of every error response.
type Body struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	GroupID string `json:"group_id,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Render writes an error body.
func Render(w http.ResponseWriter, status int, kind, msg string) {
	WriteJSON(w, status, Body{Kind: kind, Message: msg})
}

// RenderUnauthorized is the response for any protected route outside the
// Authenticated state. No protected content is included.
func RenderUnauthorized(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "Please sign in to continue."
	}
	Render(w, http.StatusUnauthorized, "Unauthorized", msg)
}

// RenderForbidden reports an authenticated caller without permission.
func RenderForbidden(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "You don't have permission to do this."
	}
	Render(w, http.StatusForbidden, "Forbidden", msg)
}

// RenderBadRequest reports malformed input.
func RenderBadRequest(w http.ResponseWriter, msg string) {
	Render(w, http.StatusBadRequest, "BadRequest", msg)
}

// RenderInternal reports an unexpected failure without leaking details.
func RenderInternal(w http.ResponseWriter) {
	Render(w, http.StatusInternalServerError, "Internal", "Something went wrong. Please try again.")
}

// StatusFor maps a membership error kind to an HTTP status.
func StatusFor(kind membership.Kind) int {
	switch kind {
	case membership.KindUserNotFound, membership.KindGroupNotFound:
		return http.StatusNotFound
	case membership.KindAlreadyInGroup, membership.KindGroupExists, membership.KindNotAMember:
		return http.StatusConflict
	case membership.KindCannotRemoveSelf, membership.KindLastAdminCannotBeRemoved, membership.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case membership.KindForbidden:
		return http.StatusForbidden
	case membership.KindCommitFailed:
		return http.StatusServiceUnavailable
	case membership.KindTransactionsUnsupported:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RenderMembership writes a membership failure. Errors that are not
// *membership.Error become a 500.
func RenderMembership(w http.ResponseWriter, err error) {
	kind := membership.KindOf(err)
	if kind == "" {
		RenderInternal(w)
		return
	}
	var me *membership.Error
	body := Body{Kind: string(kind), Message: err.Error()}
	if stderrors.As(err, &me) {
		body.Message = me.Msg
		body.GroupID = me.GroupID
	}
	if kind == membership.KindCommitFailed {
		w.Header().Set("Retry-After", "1")
	}
	WriteJSON(w, StatusFor(kind), body)
}
