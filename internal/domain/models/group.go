// internal/domain/models/group.go
package models

import (
	"slices"
	"time"
)

// Group is a tenant: it scopes a shared event timeline and a membership list.
//
// NOTE:
//   - AdminIDs is never empty while the group exists and is always a
//     subset of MemberIDs.
//   - Both sets are only mutated through $addToSet / $pull updates.
type Group struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	NameCI    string    `bson:"name_ci" json:"-"`
	AdminIDs  []string  `bson:"admin_ids" json:"admin_ids"`
	MemberIDs []string  `bson:"member_ids" json:"member_ids"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (g Group) HasMember(uid string) bool { return slices.Contains(g.MemberIDs, uid) }

func (g Group) HasAdmin(uid string) bool { return slices.Contains(g.AdminIDs, uid) }
