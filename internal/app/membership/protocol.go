// Package membership keeps profile group assignments and group member and
// admin sets consistent. Every mutation is one atomic batch built after
// reading current state; guards on the batch restate the preconditions so
// a concurrent change between the read and the commit turns into
// CommitFailed instead of a partial or duplicated write.
package membership

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/foodjournal/internal/app/store/batch"
	groupstore "github.com/dalemusser/foodjournal/internal/app/store/groups"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/system/txn"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"go.uber.org/zap"
)

// ProfileReader loads a profile by uid, returning profilestore.ErrNotFound
// when absent.
type ProfileReader interface {
	Get(ctx context.Context, uid string) (models.Profile, error)
}

// GroupReader loads a group by id, returning groupstore.ErrNotFound when
// absent.
type GroupReader interface {
	Get(ctx context.Context, id string) (models.Group, error)
}

// Service runs the membership operations.
type Service struct {
	profiles ProfileReader
	groups   GroupReader
	commit   batch.Committer
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for new groups.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how new group ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func New(profiles ProfileReader, groups GroupReader, committer batch.Committer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		profiles: profiles,
		groups:   groups,
		commit:   committer,
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    groupstore.NewID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateGroup makes creatorUID the sole admin and member of a new group.
func (s *Service) CreateGroup(ctx context.Context, creatorUID, name string) (models.Group, error) {
	creator, err := s.loadProfile(ctx, creatorUID)
	if err != nil {
		return models.Group{}, err
	}
	if creator.GroupID != nil {
		return models.Group{}, failf(ErrAlreadyInGroup, *creator.GroupID,
			"user %s already belongs to group %s", creatorUID, *creator.GroupID)
	}

	g, err := groupstore.Prepare(models.Group{
		ID:        s.newID(),
		Name:      name,
		AdminIDs:  []string{creatorUID},
		MemberIDs: []string{creatorUID},
	}, s.now())
	if err != nil {
		return models.Group{}, fail(ErrInvalidInput, "", err)
	}

	b := batch.New().Add(
		batch.CreateGroup{Group: g},
		batch.PatchMembership{UID: creatorUID, GroupID: &g.ID, Role: models.RoleAdmin, Guard: batch.Unassigned()},
	)
	if err := s.commitBatch(ctx, "create_group", g.ID, b); err != nil {
		return models.Group{}, err
	}

	s.log.Info("group created",
		zap.String("group_id", g.ID),
		zap.String("creator", creatorUID),
	)
	return g, nil
}

// AddMember assigns an unassigned user to groupID as a plain member.
func (s *Service) AddMember(ctx context.Context, actorUID, groupID, targetUID string) error {
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	// Target lookups reveal other groups, so only admins get that far.
	if !g.HasAdmin(actorUID) {
		return failf(ErrForbidden, "", "user %s is not an admin of group %s", actorUID, groupID)
	}
	target, err := s.loadProfile(ctx, targetUID)
	if err != nil {
		return err
	}
	if target.GroupID != nil {
		return failf(ErrAlreadyInGroup, *target.GroupID,
			"user %s already belongs to group %s", targetUID, *target.GroupID)
	}

	b := batch.New().Add(
		batch.PatchMembership{UID: targetUID, GroupID: &groupID, Role: models.RoleMember, Guard: batch.Unassigned()},
		batch.UpdateGroupSets{GroupID: groupID, AddMembers: []string{targetUID}},
	)
	if err := s.commitBatch(ctx, "add_member", groupID, b); err != nil {
		return err
	}

	s.log.Info("member added",
		zap.String("group_id", groupID),
		zap.String("actor", actorUID),
		zap.String("target", targetUID),
	)
	return nil
}

// RemoveMember unassigns targetUID from groupID and resets their role to
// member. It reports whether the target was an admin.
func (s *Service) RemoveMember(ctx context.Context, actorUID, groupID, targetUID string) (wasAdmin bool, err error) {
	g, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return false, err
	}
	if !g.HasMember(targetUID) {
		return false, failf(ErrNotAMember, groupID, "user %s is not a member of group %s", targetUID, groupID)
	}
	if targetUID == actorUID {
		return false, fail(ErrCannotRemoveSelf, groupID, nil)
	}
	wasAdmin = g.HasAdmin(targetUID)
	if wasAdmin && len(g.AdminIDs) == 1 {
		return false, failf(ErrLastAdminCannotBeRemoved, groupID,
			"user %s is the only admin of group %s", targetUID, groupID)
	}
	if !g.HasAdmin(actorUID) {
		return false, failf(ErrForbidden, "", "user %s is not an admin of group %s", actorUID, groupID)
	}

	guard := &batch.GroupGuard{RequireMember: targetUID}
	if wasAdmin {
		guard.KeepAdminBesides = targetUID
	}
	b := batch.New().Add(
		batch.PatchMembership{UID: targetUID, GroupID: nil, Role: models.RoleMember, Guard: batch.InGroup(groupID)},
		batch.UpdateGroupSets{
			GroupID:       groupID,
			RemoveMembers: []string{targetUID},
			RemoveAdmins:  []string{targetUID},
			Guard:         guard,
		},
	)
	if err := s.commitBatch(ctx, "remove_member", groupID, b); err != nil {
		return false, err
	}

	s.log.Info("member removed",
		zap.String("group_id", groupID),
		zap.String("actor", actorUID),
		zap.String("target", targetUID),
		zap.Bool("was_admin", wasAdmin),
	)
	return wasAdmin, nil
}

// RepairStaleGroup clears a profile's group_id when it points at a group
// that no longer exists. It returns the stale id that was cleared, or ""
// when the profile had no group.
func (s *Service) RepairStaleGroup(ctx context.Context, uid string) (string, error) {
	p, err := s.loadProfile(ctx, uid)
	if err != nil {
		return "", err
	}
	if p.GroupID == nil {
		return "", nil
	}
	stale := *p.GroupID

	_, err = s.groups.Get(ctx, stale)
	switch {
	case err == nil:
		return "", failf(ErrGroupExists, stale, "group %s exists; nothing to repair", stale)
	case !errors.Is(err, groupstore.ErrNotFound):
		return "", fail(ErrCommitFailed, stale, err)
	}

	b := batch.New().Add(
		batch.PatchMembership{UID: uid, GroupID: nil, Role: models.RoleMember, Guard: batch.InGroup(stale)},
	)
	if err := s.commitBatch(ctx, "repair_stale_group", stale, b); err != nil {
		return "", err
	}

	s.log.Warn("cleared stale group reference",
		zap.String("uid", uid),
		zap.String("group_id", stale),
	)
	return stale, nil
}

func (s *Service) loadProfile(ctx context.Context, uid string) (models.Profile, error) {
	p, err := s.profiles.Get(ctx, uid)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, profilestore.ErrNotFound):
		return models.Profile{}, failf(ErrUserNotFound, "", "no profile for user %s", uid)
	default:
		return models.Profile{}, fail(ErrCommitFailed, "", err)
	}
}

func (s *Service) loadGroup(ctx context.Context, id string) (models.Group, error) {
	return loadGroup(ctx, s.groups, id)
}

func loadGroup(ctx context.Context, groups GroupReader, id string) (models.Group, error) {
	g, err := groups.Get(ctx, id)
	switch {
	case err == nil:
		return g, nil
	case errors.Is(err, groupstore.ErrNotFound):
		return models.Group{}, failf(ErrGroupNotFound, id, "group %s does not exist", id)
	default:
		return models.Group{}, fail(ErrCommitFailed, id, err)
	}
}

func (s *Service) commitBatch(ctx context.Context, op, groupID string, b *batch.Batch) error {
	err := s.commit.Commit(ctx, b)
	if errors.Is(err, txn.ErrUnsupported) {
		s.log.Error("membership batch needs transactions; is MongoDB a replica set?",
			zap.String("op", op),
			zap.String("group_id", groupID),
			zap.Error(err),
		)
		return fail(ErrTransactionsUnsupported, groupID, err)
	}
	if err != nil {
		s.log.Warn("membership batch rejected",
			zap.String("op", op),
			zap.String("group_id", groupID),
			zap.Bool("conflict", errors.Is(err, batch.ErrConflict)),
			zap.Error(err),
		)
		return fail(ErrCommitFailed, groupID, err)
	}
	return nil
}
