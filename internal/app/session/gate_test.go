package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dalemusser/foodjournal/internal/app/session"
	"github.com/dalemusser/foodjournal/internal/app/store/memstore"
	"github.com/dalemusser/foodjournal/internal/domain/models"
)

func newGate(t *testing.T) (*session.Gate, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	return session.NewGate(s.Profiles(), s.Groups(), nil), s
}

func put(t *testing.T, s *memstore.Store, p models.Profile) {
	t.Helper()
	if _, err := s.Profiles().Put(context.Background(), p); err != nil {
		t.Fatal(err)
	}
}

func TestGate_InitialState(t *testing.T) {
	g, _ := newGate(t)
	snap := g.Snapshot()
	if snap.State != session.Unknown {
		t.Errorf("initial state: got %v, want unknown", snap.State)
	}
	if snap.IsAdmin() {
		t.Error("unknown state must not be admin")
	}
}

func TestGate_SignInWithProfile(t *testing.T) {
	g, s := newGate(t)
	put(t, s, models.Profile{UID: "u1", DisplayName: "Ann"})

	snap := g.OnStateChange(context.Background(), &session.Identity{UID: "u1", Email: "a@x.io"})
	if snap.State != session.Authenticated {
		t.Fatalf("state: got %v, want authenticated", snap.State)
	}
	if snap.Profile == nil || snap.Profile.UID != "u1" {
		t.Fatalf("profile not bound: %+v", snap.Profile)
	}
	if cur := g.Snapshot(); cur.State != session.Authenticated || cur.Identity.Email != "a@x.io" {
		t.Errorf("stored snapshot: got %+v", cur)
	}
}

func TestGate_SignInWithoutProfile(t *testing.T) {
	g, _ := newGate(t)

	snap := g.OnStateChange(context.Background(), &session.Identity{UID: "ghost"})
	if snap.State != session.AuthenticatedNoProfile {
		t.Fatalf("state: got %v, want authenticated_no_profile", snap.State)
	}
	if snap.Profile != nil || snap.IsAdmin() {
		t.Error("no profile must mean no profile fields and no admin flag")
	}
	if snap.Identity == nil || snap.Identity.UID != "ghost" {
		t.Error("identity should be retained for profile setup")
	}
}

func TestGate_TransientErrorThenRefresh(t *testing.T) {
	g, s := newGate(t)
	put(t, s, models.Profile{UID: "u1", DisplayName: "Ann"})
	boom := errors.New("timeout")
	s.FailNext(memstore.PointGetProfile, boom)

	snap := g.OnStateChange(context.Background(), &session.Identity{UID: "u1"})
	if snap.State != session.Resolving || !errors.Is(snap.Err, boom) {
		t.Fatalf("expected resolving with error, got %v / %v", snap.State, snap.Err)
	}

	snap = g.Refresh(context.Background())
	if snap.State != session.Authenticated || snap.Err != nil {
		t.Fatalf("after refresh: got %v / %v", snap.State, snap.Err)
	}
}

func TestGate_SignOut(t *testing.T) {
	g, s := newGate(t)
	put(t, s, models.Profile{UID: "u1", DisplayName: "Ann", Role: models.RoleAdmin})

	g.OnStateChange(context.Background(), &session.Identity{UID: "u1"})
	snap := g.OnStateChange(context.Background(), nil)
	if snap.State != session.Unauthenticated {
		t.Fatalf("state: got %v, want unauthenticated", snap.State)
	}
	if snap.Profile != nil || snap.IsAdmin() {
		t.Error("signed-out snapshot must carry no profile")
	}
	if got := g.Refresh(context.Background()); got.State != session.Unauthenticated {
		t.Errorf("refresh without identity changed state to %v", got.State)
	}
}

func TestGate_StaleGroup(t *testing.T) {
	g, s := newGate(t)
	gid := "gone"
	put(t, s, models.Profile{UID: "u1", DisplayName: "Ann", GroupID: &gid, Role: models.RoleAdmin})

	snap := g.OnStateChange(context.Background(), &session.Identity{UID: "u1"})
	if snap.State != session.Authenticated {
		t.Fatalf("state: got %v", snap.State)
	}
	if !snap.GroupStale {
		t.Error("expected GroupStale for a missing group")
	}
	if snap.HasGroup() || snap.CanAdminister(gid) {
		t.Error("a stale group must not authorize group features")
	}
}

func TestGate_GroupFetchErrorIsNotStale(t *testing.T) {
	g, s := newGate(t)
	gid := "g1"
	s.Groups().Put(models.Group{ID: gid, Name: "G", AdminIDs: []string{"u1"}, MemberIDs: []string{"u1"}})
	put(t, s, models.Profile{UID: "u1", DisplayName: "Ann", GroupID: &gid, Role: models.RoleAdmin})
	s.FailNext(memstore.PointGetGroup, errors.New("timeout"))

	snap := g.OnStateChange(context.Background(), &session.Identity{UID: "u1"})
	if snap.GroupStale {
		t.Error("a transient group error must not mark the group stale")
	}
}

func TestSnapshot_CanAdminister(t *testing.T) {
	g1, g2 := "g1", "g2"
	admin := &models.Profile{UID: "u1", GroupID: &g1, Role: models.RoleAdmin}
	member := &models.Profile{UID: "u2", GroupID: &g1, Role: models.RoleMember}

	tests := []struct {
		name  string
		snap  session.Snapshot
		group string
		want  bool
	}{
		{"admin of own group", session.Snapshot{State: session.Authenticated, Profile: admin}, g1, true},
		{"admin of other group", session.Snapshot{State: session.Authenticated, Profile: admin}, g2, false},
		{"member", session.Snapshot{State: session.Authenticated, Profile: member}, g1, false},
		{"stale", session.Snapshot{State: session.Authenticated, Profile: admin, GroupStale: true}, g1, false},
		{"not authenticated", session.Snapshot{State: session.Resolving, Profile: admin}, g1, false},
		{"empty group id", session.Snapshot{State: session.Authenticated, Profile: admin}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.CanAdminister(tt.group); got != tt.want {
				t.Errorf("CanAdminister(%q) = %v, want %v", tt.group, got, tt.want)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	for state, want := range map[session.State]string{
		session.Unknown:                "unknown",
		session.Resolving:              "resolving",
		session.Authenticated:          "authenticated",
		session.AuthenticatedNoProfile: "authenticated_no_profile",
		session.Unauthenticated:        "unauthenticated",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

func TestSnapshot_MarshalJSON(t *testing.T) {
	gid := "g1"
	p := &models.Profile{UID: "u1", DisplayName: "Alice", GroupID: &gid, Role: models.RoleAdmin}

	b, err := json.Marshal(session.Snapshot{State: session.Authenticated, Identity: &session.Identity{UID: "u1"}, Profile: p})
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got["state"] != "authenticated" || got["is_admin"] != true || got["profile"] == nil {
		t.Errorf("unexpected JSON: %s", b)
	}

	// a profile left over from a previous state must not leak
	b, _ = json.Marshal(session.Snapshot{State: session.Resolving, Profile: p})
	got = nil
	_ = json.Unmarshal(b, &got)
	if _, ok := got["profile"]; ok || got["is_admin"] != false {
		t.Errorf("profile leaked outside Authenticated: %s", b)
	}
}
