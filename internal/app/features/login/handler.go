// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/foodjournal/internal/app/accounts"
	uierrors "github.com/dalemusser/foodjournal/internal/app/features/errors"
	"github.com/dalemusser/foodjournal/internal/app/session"
	credentialstore "github.com/dalemusser/foodjournal/internal/app/store/credentials"
	loginstore "github.com/dalemusser/foodjournal/internal/app/store/logins"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/system/auditlog"
	"github.com/dalemusser/foodjournal/internal/app/system/auth"
	"github.com/dalemusser/foodjournal/internal/app/system/authutil"
	"github.com/dalemusser/foodjournal/internal/app/system/formutil"
	"github.com/dalemusser/foodjournal/internal/app/system/ratelimit"
	"github.com/dalemusser/foodjournal/internal/app/system/timeouts"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"go.uber.org/zap"
)

// LoginRecorder stores sign-in history.
type LoginRecorder interface {
	Create(ctx context.Context, rec models.LoginRecord) error
}

type Handler struct {
	Accounts   *accounts.Service
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	Logins     LoginRecorder
	AuditLog   *auditlog.Logger
	Log        *zap.Logger
}

func NewHandler(acct *accounts.Service, sm *auth.SessionManager, limiter *ratelimit.LoginLimiter, logins LoginRecorder, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:   acct,
		SessionMgr: sm,
		Limiter:    limiter,
		Logins:     logins,
		AuditLog:   audit,
		Log:        logger,
	}
}

type signupInput struct {
	Email       string `json:"email" validate:"required,email" label:"Email"`
	Password    string `json:"password" validate:"required" label:"Password"`
	DisplayName string `json:"display_name" validate:"required,max=60" label:"Display name"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

// HandleSignup handles POST /auth/signup. The response is the caller's
// session snapshot; a failed profile write still signs the caller in and
// yields authenticated_no_profile.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in signupInput
	if msg, ok := formutil.Decode(r, &in); !ok {
		uierrors.RenderBadRequest(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, _, err := h.Accounts.Signup(ctx, in.Email, in.Password, in.DisplayName)
	profileOK := true
	switch {
	case err == nil:
	case errors.Is(err, accounts.ErrProfileNotCreated):
		profileOK = false
	case errors.Is(err, credentialstore.ErrEmailTaken):
		uierrors.Render(w, http.StatusConflict, "EmailTaken", "An account with this email already exists.")
		return
	case errors.Is(err, accounts.ErrInvalidEmail),
		errors.Is(err, authutil.ErrPasswordTooShort),
		errors.Is(err, authutil.ErrPasswordTooLong),
		errors.Is(err, profilestore.ErrDisplayNameRequired):
		uierrors.Render(w, http.StatusUnprocessableEntity, "InvalidInput", capitalize(err.Error()))
		return
	default:
		h.Log.Error("signup failed", zap.Error(err))
		uierrors.RenderInternal(w)
		return
	}

	h.AuditLog.Signup(ctx, r, id.UID, id.Email)
	if profileOK {
		h.AuditLog.ProfileCreated(ctx, r, id.UID, false)
	}
	h.startSession(w, r, id, http.StatusCreated)
}

// HandleLogin handles POST /auth/login. Unknown emails and wrong passwords
// get the same response.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if msg, ok := formutil.Decode(r, &in); !ok {
		uierrors.RenderBadRequest(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(loginstore.ClientIP(r), in.Email); !ok {
			h.AuditLog.LoginFailedRateLimit(ctx, r, in.Email)
			uierrors.Render(w, http.StatusTooManyRequests, "RateLimited", reason)
			return
		}
	}

	id, err := h.Accounts.Login(ctx, in.Email, in.Password)
	switch {
	case err == nil:
	case errors.Is(err, accounts.ErrUnknownEmail):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, in.Email)
		uierrors.RenderUnauthorized(w, "Invalid email or password.")
		return
	case errors.Is(err, accounts.ErrWrongPassword):
		h.AuditLog.LoginFailedWrongPassword(ctx, r, id.UID, id.Email)
		uierrors.RenderUnauthorized(w, "Invalid email or password.")
		return
	default:
		h.Log.Error("login failed", zap.Error(err))
		uierrors.RenderInternal(w)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(in.Email)
	}
	h.AuditLog.LoginSuccess(ctx, r, id.UID, id.Email)
	h.startSession(w, r, id, http.StatusOK)
}

// startSession writes the cookie, records the sign-in, and responds with
// the freshly resolved snapshot.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, id session.Identity, status int) {
	if err := h.SessionMgr.SignIn(w, r, id); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("uid", id.UID))
		uierrors.Render(w, http.StatusInternalServerError, "SessionError", "Unable to create session. Please try again.")
		return
	}

	if h.Logins != nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		if err := h.Logins.Create(ctx, loginstore.RecordFrom(r, id.UID, "password")); err != nil {
			h.Log.Warn("failed to record login", zap.Error(err), zap.String("uid", id.UID))
		}
		cancel()
	}

	snap := h.SessionMgr.Resolve(r.Context(), &id)
	uierrors.WriteJSON(w, status, snap)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b) + "."
}
