package committer_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/foodjournal/internal/app/store/batch"
	"github.com/dalemusser/foodjournal/internal/app/store/committer"
	groupstore "github.com/dalemusser/foodjournal/internal/app/store/groups"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/system/txn"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"github.com/dalemusser/foodjournal/internal/testutil"
)

func TestMongo_Commit_AllOrNothing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	profiles := profilestore.New(db)
	groups := groupstore.New(db)
	c := committer.NewMongo(db, nil)

	if _, err := profiles.Put(ctx, models.Profile{UID: "u1", DisplayName: "Ann"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	g, _ := groupstore.Prepare(models.Group{Name: "Fridge", AdminIDs: []string{"u1"}, MemberIDs: []string{"u1"}}, time.Now())
	gid := g.ID

	// Second op targets a profile that does not exist, so the guard misses.
	b := batch.New().Add(
		batch.CreateGroup{Group: g},
		batch.PatchMembership{UID: "ghost", GroupID: &gid, Role: models.RoleAdmin, Guard: batch.Unassigned()},
	)
	err := c.Commit(ctx, b)
	if errors.Is(err, txn.ErrUnsupported) {
		t.Skip("MongoDB deployment does not support transactions")
	}
	if !errors.Is(err, batch.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := groups.Get(ctx, gid); !errors.Is(err, groupstore.ErrNotFound) {
		t.Errorf("group should not exist after failed batch, got %v", err)
	}

	b = batch.New().Add(
		batch.CreateGroup{Group: g},
		batch.PatchMembership{UID: "u1", GroupID: &gid, Role: models.RoleAdmin, Guard: batch.Unassigned()},
	)
	if err := c.Commit(ctx, b); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	p, _ := profiles.Get(ctx, "u1")
	if !p.InGroup(gid) || p.Role != models.RoleAdmin {
		t.Errorf("unexpected profile after commit: %+v", p)
	}
}

func TestMongo_Commit_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := committer.NewMongo(db, nil).Commit(ctx, batch.New()); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}
