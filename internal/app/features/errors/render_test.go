package errors_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	"github.com/dalemusser/foodjournal/internal/app/membership"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind membership.Kind
		want int
	}{
		{membership.KindAlreadyInGroup, http.StatusConflict},
		{membership.KindNotAMember, http.StatusConflict},
		{membership.KindUserNotFound, http.StatusNotFound},
		{membership.KindGroupNotFound, http.StatusNotFound},
		{membership.KindCannotRemoveSelf, http.StatusUnprocessableEntity},
		{membership.KindLastAdminCannotBeRemoved, http.StatusUnprocessableEntity},
		{membership.KindForbidden, http.StatusForbidden},
		{membership.KindCommitFailed, http.StatusServiceUnavailable},
		{membership.KindTransactionsUnsupported, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := uierrors.StatusFor(tt.kind); got != tt.want {
				t.Errorf("StatusFor(%q) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestRenderMembership(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("wrapped: %w", &membership.Error{Kind: membership.KindAlreadyInGroup, Msg: "user b already belongs to group g2", GroupID: "g2"})

	uierrors.RenderMembership(rec, err)

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rec.Code)
	}
	var body uierrors.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Kind != "AlreadyInGroup" || body.GroupID != "g2" || body.Message != "user b already belongs to group g2" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestRenderMembership_CommitFailedSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.RenderMembership(rec, membership.ErrCommitFailed)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRenderMembership_NoTransactionsIsNotRetried(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.RenderMembership(rec, membership.ErrTransactionsUnsupported)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "" {
		t.Errorf("Retry-After = %q, want none", got)
	}
	var body uierrors.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Kind != "TransactionsUnsupported" {
		t.Errorf("kind: got %q", body.Kind)
	}
}

func TestRenderMembership_ForeignError(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.RenderMembership(rec, fmt.Errorf("disk on fire"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, "disk") {
		t.Errorf("internal detail leaked: %s", body)
	}
}

func TestRenderUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.RenderUnauthorized(rec, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}
}
