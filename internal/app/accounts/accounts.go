// Package accounts is the password sign-in provider. It owns credentials
// and the initial profile write; the session cookie is system/auth's job.
package accounts

import (
	"context"
	"errors"
	"fmt"

	credentialstore "github.com/dalemusser/foodjournal/internal/app/store/credentials"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/session"
	"github.com/dalemusser/foodjournal/internal/app/system/authutil"
	"github.com/dalemusser/foodjournal/internal/app/system/inputval"
	"github.com/dalemusser/foodjournal/internal/app/system/normalize"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUnknownEmail and ErrWrongPassword are distinct for the audit trail;
	// clients see the same message for both.
	ErrUnknownEmail  = errors.New("no account for this email")
	ErrWrongPassword = errors.New("incorrect password")
	ErrProfileExists = errors.New("profile already exists")
	ErrInvalidEmail  = errors.New("enter a valid email address")
	// ErrProfileNotCreated means the credential exists but the profile write
	// failed. The identity is valid and resolves to AuthenticatedNoProfile.
	ErrProfileNotCreated = errors.New("account created but profile could not be saved")
)

type Credentials interface {
	Create(ctx context.Context, cred models.Credential) error
	GetByEmail(ctx context.Context, email string) (models.Credential, error)
}

type Profiles interface {
	Get(ctx context.Context, uid string) (models.Profile, error)
	Put(ctx context.Context, p models.Profile) (models.Profile, error)
}

type Service struct {
	creds    Credentials
	profiles Profiles
	newUID   func() string
	log      *zap.Logger
}

func New(creds Credentials, profiles Profiles, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{creds: creds, profiles: profiles, newUID: uuid.NewString, log: logger}
}

// Signup creates a credential and a fresh unassigned profile.
//
// When the profile write fails the identity is still returned together
// with ErrProfileNotCreated so the caller can sign in and offer setup.
func (s *Service) Signup(ctx context.Context, email, password, displayName string) (session.Identity, models.Profile, error) {
	email = normalize.Email(email)
	if !inputval.IsValidEmail(email) {
		return session.Identity{}, models.Profile{}, ErrInvalidEmail
	}
	if err := authutil.ValidatePassword(password); err != nil {
		return session.Identity{}, models.Profile{}, err
	}
	name, err := profilestore.CleanDisplayName(displayName)
	if err != nil {
		return session.Identity{}, models.Profile{}, err
	}
	hash, err := authutil.HashPassword(password)
	if err != nil {
		return session.Identity{}, models.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	uid := s.newUID()
	if err := s.creds.Create(ctx, models.Credential{Email: email, UID: uid, PasswordHash: hash}); err != nil {
		return session.Identity{}, models.Profile{}, err
	}
	id := session.Identity{UID: uid, Email: email}

	p, err := s.profiles.Put(ctx, newProfile(id, name))
	if err != nil {
		s.log.Error("profile write failed after signup", zap.String("uid", uid), zap.Error(err))
		return id, models.Profile{}, fmt.Errorf("%w: %w", ErrProfileNotCreated, err)
	}
	s.log.Info("account created", zap.String("uid", uid))
	return id, p, nil
}

// Login checks a password and returns the identity it belongs to.
func (s *Service) Login(ctx context.Context, email, password string) (session.Identity, error) {
	cred, err := s.creds.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, credentialstore.ErrNotFound):
		return session.Identity{}, ErrUnknownEmail
	case err != nil:
		return session.Identity{}, err
	}
	if !authutil.CheckPassword(password, cred.PasswordHash) {
		return session.Identity{UID: cred.UID, Email: cred.Email}, ErrWrongPassword
	}
	return session.Identity{UID: cred.UID, Email: cred.Email}, nil
}

// SetupProfile recreates the profile for an identity that has none.
func (s *Service) SetupProfile(ctx context.Context, id session.Identity, displayName string) (models.Profile, error) {
	name, err := profilestore.CleanDisplayName(displayName)
	if err != nil {
		return models.Profile{}, err
	}
	_, err = s.profiles.Get(ctx, id.UID)
	switch {
	case err == nil:
		return models.Profile{}, ErrProfileExists
	case !errors.Is(err, profilestore.ErrNotFound):
		return models.Profile{}, err
	}
	p, err := s.profiles.Put(ctx, newProfile(id, name))
	if err != nil {
		return models.Profile{}, err
	}
	s.log.Info("profile recreated", zap.String("uid", id.UID))
	return p, nil
}

func newProfile(id session.Identity, name string) models.Profile {
	return models.Profile{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: name,
		GroupID:     nil,
		Role:        models.RoleMember,
	}
}
