package membership

import (
	"context"

	"github.com/dalemusser/foodjournal/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// Queries is what the admin view needs from the query service.
type Queries interface {
	UnassignedUsers(ctx context.Context) ([]models.Profile, error)
	MembersOf(ctx context.Context, g models.Group) ([]models.Profile, error)
}

// AdminView is the state an admin screen renders: the group, its member
// profiles, and the users that could be added.
type AdminView struct {
	Group      models.Group     `json:"group"`
	Members    []models.Profile `json:"members"`
	Unassigned []models.Profile `json:"unassigned"`
}

// LoadAdminView re-reads the group and both lists. Callers use it after
// every membership operation so the view reflects committed state.
func LoadAdminView(ctx context.Context, groups GroupReader, q Queries, groupID string) (AdminView, error) {
	g, err := loadGroup(ctx, groups, groupID)
	if err != nil {
		return AdminView{}, err
	}

	v := AdminView{Group: g}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		members, err := q.MembersOf(ctx, g)
		v.Members = members
		return err
	})
	eg.Go(func() error {
		unassigned, err := q.UnassignedUsers(ctx)
		v.Unassigned = unassigned
		return err
	})
	if err := eg.Wait(); err != nil {
		return AdminView{}, fail(ErrCommitFailed, groupID, err)
	}
	return v, nil
}
