// Package batch describes an all-or-nothing set of writes across the
// profiles and groups collections. A Batch is built by the membership
// protocol and handed to a Committer, which applies every op or none.
//
// Ops may carry guards. A guard restates a precondition that was checked
// before the batch was built; if it no longer holds at commit time the
// committer rejects the whole batch with ErrConflict. This is what makes
// two concurrent AddMember calls for the same user resolve to one winner.
package batch

import (
	"context"
	"errors"

	"github.com/dalemusser/foodjournal/internal/domain/models"
)

// ErrConflict is returned by a Committer when a guard did not match the
// stored document. No op in the batch was applied.
var ErrConflict = errors.New("batch: document changed since it was read")

// Committer applies a Batch atomically.
type Committer interface {
	Commit(ctx context.Context, b *Batch) error
}

// Op is one write in a batch. The set of ops is closed.
type Op interface {
	isOp()
}

// CreateGroup inserts a new group document. It fails if the id exists.
type CreateGroup struct {
	Group models.Group
}

// PatchMembership sets a profile's group_id and role together.
//
// A nil GroupID clears the assignment. When Guard is set, the patch only
// applies if the stored group_id currently equals Guard.GroupID.
type PatchMembership struct {
	UID     string
	GroupID *string
	Role    models.Role
	Guard   *ProfileGuard
}

// ProfileGuard pins the group_id a profile must still have at commit time.
// A nil GroupID means "must still be unassigned".
type ProfileGuard struct {
	GroupID *string
}

// UpdateGroupSets adds and removes ids from member_ids and admin_ids using
// the store's native set operators.
type UpdateGroupSets struct {
	GroupID       string
	AddMembers    []string
	RemoveMembers []string
	AddAdmins     []string
	RemoveAdmins  []string
	Guard         *GroupGuard
}

// GroupGuard restates membership preconditions at commit time.
type GroupGuard struct {
	// RequireMember must still be listed in member_ids.
	RequireMember string
	// KeepAdminBesides requires at least one admin other than this id.
	KeepAdminBesides string
}

func (CreateGroup) isOp()     {}
func (PatchMembership) isOp() {}
func (UpdateGroupSets) isOp() {}

// Batch is an ordered list of ops.
type Batch struct {
	ops []Op
}

// New returns an empty batch.
func New() *Batch {
	return &Batch{}
}

// Add appends ops and returns the batch for chaining.
func (b *Batch) Add(ops ...Op) *Batch {
	b.ops = append(b.ops, ops...)
	return b
}

// Ops returns the ops in insertion order.
func (b *Batch) Ops() []Op {
	return b.ops
}

// Len returns the number of ops.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Unassigned is a guard helper for "profile must have no group".
func Unassigned() *ProfileGuard {
	return &ProfileGuard{}
}

// InGroup is a guard helper for "profile must still reference groupID".
func InGroup(groupID string) *ProfileGuard {
	return &ProfileGuard{GroupID: &groupID}
}
