// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	"github.com/dalemusser/foodjournal/internal/app/accounts"
	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/foodjournal/internal/app/features/groups"
	healthfeature "github.com/dalemusser/foodjournal/internal/app/features/health"
	journalfeature "github.com/dalemusser/foodjournal/internal/app/features/journal"
	loginfeature "github.com/dalemusser/foodjournal/internal/app/features/login"
	logoutfeature "github.com/dalemusser/foodjournal/internal/app/features/logout"
	profilefeature "github.com/dalemusser/foodjournal/internal/app/features/profile"
	journalsvc "github.com/dalemusser/foodjournal/internal/app/journal"
	"github.com/dalemusser/foodjournal/internal/app/membership"
	"github.com/dalemusser/foodjournal/internal/app/store/queries/groupmembers"
	"github.com/dalemusser/foodjournal/internal/app/system/auditlog"
	"github.com/dalemusser/foodjournal/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Every route speaks JSON:
//
//	/health   liveness and store ping
//	/auth     signup, login, logout
//	/me       session snapshot, profile setup and updates, sign-in history
//	/admin    group creation, membership changes, repair, audit trail
//	/journal  events and reminders
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	s, err := startServices(context.Background(), appCfg, logger)
	if err != nil {
		return nil, err
	}
	be := openBackend(deps, logger)

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// The gate re-reads the profile and group on every request so membership
	// changes made by another admin show up immediately.
	sessionMgr.UseStores(be.profiles, be.groups)

	auditLogger := auditlog.New(be.audit, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	acct := accounts.New(be.credentials, be.profiles, logger)
	members := groupmembers.New(be.profiles, appCfg.MemberQueryChunk, logger)
	memberSvc := membership.New(be.profiles, be.groups, be.committer, logger)
	journal := journalsvc.New(journalsvc.Deps{
		Profiles: be.profiles,
		Groups:   be.groups,
		Members:  members,
		Events:   be.events,
		Notifier: s.notifier,
		Limiter:  s.reminders,
		Tokens:   be.profiles,
		Fanout:   appCfg.ReminderFanout,
	}, logger)

	r := chi.NewRouter()

	// Resolves the session gate for every request; handlers read the
	// snapshot through authz.
	r.Use(sessionMgr.LoadSession)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		uierrors.Render(w, http.StatusNotFound, "NotFound", "No such route.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		uierrors.Render(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "Method not allowed.")
	})

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(be.ping, be.name, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(acct, sessionMgr, s.logins, be.logins, auditLogger, logger)
	authRouter := loginfeature.Routes(loginHandler)
	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLogger, logger)
	authRouter.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))
	r.Mount("/auth", authRouter)

	// The signed-in user's own account
	profileHandler := profilefeature.NewHandler(acct, sessionMgr, be.profiles, be.logins, auditLogger, logger)
	r.Mount("/me", profilefeature.Routes(profileHandler, sessionMgr))

	// Group administration
	groupsHandler := groupsfeature.NewHandler(memberSvc, be.groups, members, sessionMgr, be.audit, auditLogger, logger)
	r.Mount("/admin", groupsfeature.Routes(groupsHandler, sessionMgr))

	// Journal
	journalHandler := journalfeature.NewHandler(journal, auditLogger, logger)
	r.Mount("/journal", journalfeature.Routes(journalHandler, sessionMgr))

	logger.Info("routes mounted", zap.String("backend", be.name))
	return r, nil
}
