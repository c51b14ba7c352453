// Package session binds an authenticated identity to its profile.
//
// A Gate moves through Unknown → Resolving → Authenticated or
// AuthenticatedNoProfile on sign-in, and to Unauthenticated on sign-out.
// Callers read an immutable Snapshot; nothing else holds auth state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	groupstore "github.com/dalemusser/foodjournal/internal/app/store/groups"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"go.uber.org/zap"
)

// State of a Gate.
type State int

const (
	Unknown State = iota
	Resolving
	Authenticated
	AuthenticatedNoProfile
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case AuthenticatedNoProfile:
		return "authenticated_no_profile"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Identity is what the auth provider hands over on sign-in.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

// Snapshot is a point-in-time view of a Gate.
type Snapshot struct {
	State    State           `json:"state"`
	Identity *Identity       `json:"identity,omitempty"`
	Profile  *models.Profile `json:"profile,omitempty"`
	// GroupStale is set when Profile.GroupID names a group that does not
	// exist. The profile needs RepairStaleGroup before group features work.
	GroupStale bool `json:"group_stale"`
	// Err holds the last profile fetch failure while State is Resolving.
	Err error `json:"-"`
}

// IsAdmin is true when the profile's role is admin. It says nothing about
// which group; see CanAdminister.
func (s Snapshot) IsAdmin() bool {
	return s.Profile != nil && s.Profile.Role == models.RoleAdmin
}

// CanAdminister reports whether the snapshot authorizes admin actions on
// groupID: admin role, scoped to the profile's own, existing group.
func (s Snapshot) CanAdminister(groupID string) bool {
	return s.State == Authenticated && s.IsAdmin() && !s.GroupStale &&
		groupID != "" && s.Profile.InGroup(groupID)
}

// GroupID returns the profile's group, or "" when unassigned or unknown.
func (s Snapshot) GroupID() string {
	if s.Profile == nil || s.Profile.GroupID == nil {
		return ""
	}
	return *s.Profile.GroupID
}

// HasGroup is true for an authenticated profile with a live group.
func (s Snapshot) HasGroup() bool {
	return s.State == Authenticated && s.GroupID() != "" && !s.GroupStale
}

// MarshalJSON adds the derived is_admin flag. Profile data is only
// included in the Authenticated state.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	out := struct {
		plain
		IsAdmin bool `json:"is_admin"`
	}{plain: plain(s), IsAdmin: s.IsAdmin()}
	if s.State != Authenticated {
		out.Profile = nil
		out.IsAdmin = false
	}
	return json.Marshal(out)
}

// ProfileFetcher loads profiles; profilestore.ErrNotFound marks absence.
type ProfileFetcher interface {
	Get(ctx context.Context, uid string) (models.Profile, error)
}

// GroupFetcher loads groups; groupstore.ErrNotFound marks absence.
type GroupFetcher interface {
	Get(ctx context.Context, id string) (models.Group, error)
}

// Gate is safe for concurrent use.
type Gate struct {
	profiles ProfileFetcher
	groups   GroupFetcher
	log      *zap.Logger

	mu   sync.Mutex
	snap Snapshot
}

func NewGate(profiles ProfileFetcher, groups GroupFetcher, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		profiles: profiles,
		groups:   groups,
		log:      logger,
		snap:     Snapshot{State: Unknown},
	}
}

// Snapshot returns the current state.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snap
}

// OnStateChange handles an auth provider event. A nil identity is a
// sign-out. A sign-in resolves the profile before returning.
func (g *Gate) OnStateChange(ctx context.Context, id *Identity) Snapshot {
	if id == nil {
		g.log.Debug("session signed out")
		return g.set(Snapshot{State: Unauthenticated})
	}

	ident := *id
	g.set(Snapshot{State: Resolving, Identity: &ident})
	return g.resolve(ctx, ident)
}

// Refresh re-reads the profile for the current identity. It is how a
// Resolving gate retries after a fetch error. It is a no-op without an
// identity.
func (g *Gate) Refresh(ctx context.Context) Snapshot {
	cur := g.Snapshot()
	if cur.Identity == nil {
		return cur
	}
	return g.resolve(ctx, *cur.Identity)
}

func (g *Gate) resolve(ctx context.Context, ident Identity) Snapshot {
	next := Snapshot{Identity: &ident}

	p, err := g.profiles.Get(ctx, ident.UID)
	switch {
	case errors.Is(err, profilestore.ErrNotFound):
		next.State = AuthenticatedNoProfile
		g.log.Warn("signed-in identity has no profile", zap.String("uid", ident.UID))
	case err != nil:
		next.State = Resolving
		next.Err = err
		g.log.Warn("profile fetch failed", zap.String("uid", ident.UID), zap.Error(err))
	default:
		next.State = Authenticated
		next.Profile = &p
		if p.GroupID != nil {
			next.GroupStale = g.groupMissing(ctx, *p.GroupID)
		}
	}

	return g.set(next)
}

// groupMissing reports only a definite not-found. Other errors leave the
// group assumed present; the next Refresh will look again.
func (g *Gate) groupMissing(ctx context.Context, groupID string) bool {
	_, err := g.groups.Get(ctx, groupID)
	switch {
	case err == nil:
		return false
	case errors.Is(err, groupstore.ErrNotFound):
		g.log.Warn("profile references a missing group", zap.String("group_id", groupID))
		return true
	default:
		g.log.Warn("group fetch failed", zap.String("group_id", groupID), zap.Error(err))
		return false
	}
}

func (g *Gate) set(snap Snapshot) Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap = snap
	return snap
}
