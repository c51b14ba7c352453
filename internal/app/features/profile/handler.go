// internal/app/features/profile/handler.go
package profile

import (
	"context"

	"github.com/dalemusser/foodjournal/internal/app/accounts"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/system/auditlog"
	"github.com/dalemusser/foodjournal/internal/app/system/auth"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"go.uber.org/zap"
)

// SelfUpdater applies the caller's own profile changes.
type SelfUpdater interface {
	UpdateSelf(ctx context.Context, uid string, upd profilestore.SelfUpdate) error
}

// LoginLister reads sign-in history.
type LoginLister interface {
	ListByUser(ctx context.Context, uid string, limit int64) ([]models.LoginRecord, error)
}

// Handler owns the /me handlers.
type Handler struct {
	Accounts   *accounts.Service
	SessionMgr *auth.SessionManager
	Profiles   SelfUpdater
	Logins     LoginLister
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(acct *accounts.Service, sm *auth.SessionManager, profiles SelfUpdater, logins LoginLister, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:   acct,
		SessionMgr: sm,
		Profiles:   profiles,
		Logins:     logins,
		AuditLog:   audit,
		Log:        logger,
	}
}
