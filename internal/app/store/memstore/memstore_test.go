package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/foodjournal/internal/app/store/batch"
	groupstore "github.com/dalemusser/foodjournal/internal/app/store/groups"
	"github.com/dalemusser/foodjournal/internal/app/store/memstore"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/domain/models"
)

func seed(t *testing.T, s *memstore.Store, uids ...string) {
	t.Helper()
	for _, uid := range uids {
		if _, err := s.Profiles().Put(context.Background(), models.Profile{UID: uid, DisplayName: uid}); err != nil {
			t.Fatalf("Put(%s): %v", uid, err)
		}
	}
}

func TestCommit_FailedOpLeavesNoTrace(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	seed(t, s, "u1")

	gid := "g1"
	b := batch.New().Add(
		batch.CreateGroup{Group: models.Group{ID: gid, Name: "G", AdminIDs: []string{"u1"}, MemberIDs: []string{"u1"}}},
		batch.PatchMembership{UID: "u1", GroupID: &gid, Role: models.RoleAdmin, Guard: batch.Unassigned()},
		batch.PatchMembership{UID: "ghost", GroupID: &gid, Role: models.RoleMember, Guard: batch.Unassigned()},
	)
	if err := s.Commit(ctx, b); !errors.Is(err, batch.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if s.Groups().Count() != 0 {
		t.Error("group was created by a failed batch")
	}
	p, _ := s.Profiles().Get(ctx, "u1")
	if p.GroupID != nil || p.Role != models.RoleMember {
		t.Errorf("profile changed by a failed batch: %+v", p)
	}
}

func TestCommit_InjectedFailure(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	seed(t, s, "u1")
	boom := errors.New("boom")
	s.FailNext(memstore.PointCommit, boom)

	gid := "g1"
	b := batch.New().Add(batch.PatchMembership{UID: "u1", GroupID: &gid, Role: models.RoleMember})
	if err := s.Commit(ctx, b); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if err := s.Commit(ctx, b); err != nil {
		t.Fatalf("second commit should succeed, got %v", err)
	}
	if s.Calls(memstore.PointCommit) != 2 {
		t.Errorf("Calls: got %d, want 2", s.Calls(memstore.PointCommit))
	}
}

func TestCommit_GroupGuards(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	s.Groups().Put(models.Group{ID: "g1", Name: "G", AdminIDs: []string{"a"}, MemberIDs: []string{"a", "b"}})

	removeAdmin := batch.New().Add(batch.UpdateGroupSets{
		GroupID:       "g1",
		RemoveMembers: []string{"a"},
		RemoveAdmins:  []string{"a"},
		Guard:         &batch.GroupGuard{RequireMember: "a", KeepAdminBesides: "a"},
	})
	if err := s.Commit(ctx, removeAdmin); !errors.Is(err, batch.ErrConflict) {
		t.Fatalf("expected ErrConflict removing last admin, got %v", err)
	}

	add := batch.New().Add(batch.UpdateGroupSets{GroupID: "g1", AddMembers: []string{"b", "c"}, AddAdmins: []string{"b"}})
	if err := s.Commit(ctx, add); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	g, _ := s.Groups().Get(ctx, "g1")
	if len(g.MemberIDs) != 3 || len(g.AdminIDs) != 2 {
		t.Errorf("unexpected sets: members=%v admins=%v", g.MemberIDs, g.AdminIDs)
	}

	if err := s.Commit(ctx, removeAdmin); err != nil {
		t.Fatalf("remove with second admin failed: %v", err)
	}
	g, _ = s.Groups().Get(ctx, "g1")
	if g.HasMember("a") || g.HasAdmin("a") {
		t.Errorf("a still present: %+v", g)
	}
}

func TestCommit_DuplicateGroup(t *testing.T) {
	s := memstore.New()
	s.Groups().Put(models.Group{ID: "g1", Name: "G"})
	err := s.Commit(context.Background(), batch.New().Add(batch.CreateGroup{Group: models.Group{ID: "g1", Name: "G"}}))
	if !errors.Is(err, groupstore.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestProfiles_ReturnsCopies(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	gid := "g1"
	if _, err := s.Profiles().Put(ctx, models.Profile{UID: "u1", DisplayName: "Ann", GroupID: &gid}); err != nil {
		t.Fatal(err)
	}

	p, _ := s.Profiles().Get(ctx, "u1")
	*p.GroupID = "mutated"

	again, _ := s.Profiles().Get(ctx, "u1")
	if *again.GroupID != "g1" {
		t.Errorf("stored profile was mutated through a returned copy: %s", *again.GroupID)
	}
}

func TestProfiles_ListByUIDs(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	seed(t, s, "u1", "u2")

	got, err := s.Profiles().ListByUIDs(ctx, []string{"u1", "u2", "u3"})
	if err != nil || len(got) != 2 {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err := s.Profiles().ListByUIDs(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if s.Calls(memstore.PointListByUIDs) != 1 {
		t.Errorf("empty input should not count as a query, got %d", s.Calls(memstore.PointListByUIDs))
	}

	tooMany := make([]string, profilestore.MaxInQuery+1)
	if _, err := s.Profiles().ListByUIDs(ctx, tooMany); !errors.Is(err, profilestore.ErrTooManyIDs) {
		t.Errorf("expected ErrTooManyIDs, got %v", err)
	}
}

func TestProfiles_UpdateSelf(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	seed(t, s, "u1")

	tok := "tok"
	name := "  New   Name "
	if err := s.Profiles().UpdateSelf(ctx, "u1", profilestore.SelfUpdate{DisplayName: &name, NotificationToken: &tok}); err != nil {
		t.Fatal(err)
	}
	p, _ := s.Profiles().Get(ctx, "u1")
	if p.DisplayName != "New Name" || !p.HasToken() {
		t.Errorf("unexpected profile %+v", p)
	}
	if err := s.Profiles().UpdateSelf(ctx, "nobody", profilestore.SelfUpdate{}); !errors.Is(err, profilestore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
