package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/foodjournal/internal/app/store/memstore"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures seeds an in-memory store with consistent profiles and groups.
type Fixtures struct {
	mem *memstore.Store
	t   *testing.T
}

// NewFixtures creates a new Fixtures instance over mem.
func NewFixtures(t *testing.T, mem *memstore.Store) *Fixtures {
	t.Helper()
	return &Fixtures{mem: mem, t: t}
}

// Store returns the underlying store for direct access in tests.
func (f *Fixtures) Store() *memstore.Store {
	return f.mem
}

// CreateProfile stores an unassigned profile for user.
func (f *Fixtures) CreateProfile(user TestUser) models.Profile {
	f.t.Helper()
	p := user.Profile()
	p.GroupID = nil
	p.Role = models.RoleMember
	stored, err := f.mem.Profiles().Put(context.Background(), p)
	if err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return stored
}

// CreateGroup stores a group whose admin is admin and whose other members
// are members, and points each profile at it. Profiles are created if they
// do not already exist.
func (f *Fixtures) CreateGroup(id, name string, admin TestUser, members ...TestUser) models.Group {
	f.t.Helper()
	now := time.Now().UTC()
	g := models.Group{
		ID:        id,
		Name:      name,
		NameCI:    text.Fold(name),
		AdminIDs:  []string{admin.UID},
		MemberIDs: []string{admin.UID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, m := range members {
		g.MemberIDs = append(g.MemberIDs, m.UID)
	}
	f.mem.Groups().Put(g)

	f.assign(admin, id, models.RoleAdmin)
	for _, m := range members {
		f.assign(m, id, models.RoleMember)
	}
	return g
}

func (f *Fixtures) assign(user TestUser, groupID string, role models.Role) {
	f.t.Helper()
	user.GroupID = groupID
	user.Role = role
	p := user.Profile()
	if _, err := f.mem.Profiles().Put(context.Background(), p); err != nil {
		f.t.Fatalf("failed to assign test profile: %v", err)
	}
}
