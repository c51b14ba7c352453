package accounts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/foodjournal/internal/app/accounts"
	credentialstore "github.com/dalemusser/foodjournal/internal/app/store/credentials"
	"github.com/dalemusser/foodjournal/internal/app/store/memstore"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/session"
	"github.com/dalemusser/foodjournal/internal/app/system/authutil"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"go.uber.org/zap"
)

func init() {
	authutil.BcryptCost = 4
}

func newService() (*accounts.Service, *memstore.Store) {
	mem := memstore.New()
	return accounts.New(mem.Credentials(), mem.Profiles(), zap.NewNop()), mem
}

func TestSignup_CreatesUnassignedProfile(t *testing.T) {
	svc, mem := newService()
	ctx := context.Background()

	id, p, err := svc.Signup(ctx, " Alice@Example.com ", "secret1", "Alice")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if id.UID == "" || id.Email != "alice@example.com" {
		t.Errorf("unexpected identity: %+v", id)
	}
	if p.GroupID != nil || p.Role != models.RoleMember || p.NotificationToken != nil {
		t.Errorf("expected unassigned member profile, got %+v", p)
	}
	stored, err := mem.Profiles().Get(ctx, id.UID)
	if err != nil || stored.DisplayName != "Alice" {
		t.Errorf("profile not stored: %+v, %v", stored, err)
	}
}

func TestSignup_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	tests := []struct {
		name, email, pw, display string
		want                     error
	}{
		{"bad email", "nope", "secret1", "A", accounts.ErrInvalidEmail},
		{"short password", "a@b.co", "123", "A", authutil.ErrPasswordTooShort},
		{"blank name", "a@b.co", "secret1", "   ", profilestore.ErrDisplayNameRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Signup(ctx, tt.email, tt.pw, tt.display); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "a@b.co", "secret1", "A"); err != nil {
		t.Fatalf("first Signup failed: %v", err)
	}
	if _, _, err := svc.Signup(ctx, "A@B.CO", "secret2", "B"); !errors.Is(err, credentialstore.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignup_ProfileWriteFails(t *testing.T) {
	svc, mem := newService()
	ctx := context.Background()
	mem.FailNext(memstore.PointPutProfile, errors.New("unavailable"))

	id, _, err := svc.Signup(ctx, "a@b.co", "secret1", "A")
	if !errors.Is(err, accounts.ErrProfileNotCreated) {
		t.Fatalf("expected ErrProfileNotCreated, got %v", err)
	}
	if id.UID == "" {
		t.Fatal("identity should still be returned")
	}

	if _, err := svc.Login(ctx, "a@b.co", "secret1"); err != nil {
		t.Errorf("credential should exist: %v", err)
	}
	p, err := svc.SetupProfile(ctx, id, "Recovered")
	if err != nil {
		t.Fatalf("SetupProfile failed: %v", err)
	}
	if p.DisplayName != "Recovered" || p.GroupID != nil {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	want, _, err := svc.Signup(ctx, "a@b.co", "secret1", "A")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	got, err := svc.Login(ctx, "A@b.co", "secret1")
	if err != nil || got != want {
		t.Errorf("Login: got %+v, %v", got, err)
	}
	if _, err := svc.Login(ctx, "a@b.co", "wrong!"); !errors.Is(err, accounts.ErrWrongPassword) {
		t.Errorf("expected ErrWrongPassword, got %v", err)
	}
	if _, err := svc.Login(ctx, "x@b.co", "secret1"); !errors.Is(err, accounts.ErrUnknownEmail) {
		t.Errorf("expected ErrUnknownEmail, got %v", err)
	}
}

func TestSetupProfile_RefusesExisting(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	id, _, err := svc.Signup(ctx, "a@b.co", "secret1", "A")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	if _, err := svc.SetupProfile(ctx, id, "Again"); !errors.Is(err, accounts.ErrProfileExists) {
		t.Errorf("expected ErrProfileExists, got %v", err)
	}
	if _, err := svc.SetupProfile(ctx, session.Identity{UID: "x"}, " "); !errors.Is(err, profilestore.ErrDisplayNameRequired) {
		t.Errorf("expected ErrDisplayNameRequired, got %v", err)
	}
}
