// internal/app/features/groups/handler.go
package groups

import (
	"context"

	"github.com/dalemusser/foodjournal/internal/app/membership"
	"github.com/dalemusser/foodjournal/internal/app/store/audit"
	"github.com/dalemusser/foodjournal/internal/app/system/auditlog"
	"github.com/dalemusser/foodjournal/internal/app/system/auth"
	"go.uber.org/zap"
)

// AuditReader serves the group activity trail.
type AuditReader interface {
	Query(ctx context.Context, f audit.QueryFilter) ([]audit.Event, error)
}

// Handler owns the group administration surface.
type Handler struct {
	Membership *membership.Service
	Groups     membership.GroupReader
	Queries    membership.Queries
	SessionMgr *auth.SessionManager
	Audit      AuditReader
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(svc *membership.Service, groups membership.GroupReader, q membership.Queries, sm *auth.SessionManager, trail AuditReader, al *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Membership: svc,
		Groups:     groups,
		Queries:    q,
		SessionMgr: sm,
		Audit:      trail,
		AuditLog:   al,
		Log:        logger,
	}
}
