// internal/domain/models/profile.go
package models

import "time"

// Role is scoped to the group referenced by Profile.GroupID.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Profile is the durable record for one authenticated identity.
//
// NOTE:
//   - GroupID is stored as an explicit null (no omitempty) so that the
//     "unassigned users" query can match on group_id == null.
//   - Role and GroupID are only written by the membership protocol.
type Profile struct {
	UID               string    `bson:"_id" json:"uid"`
	Email             string    `bson:"email" json:"email"`
	DisplayName       string    `bson:"display_name" json:"display_name"`
	DisplayNameCI     string    `bson:"display_name_ci" json:"-"`
	GroupID           *string   `bson:"group_id" json:"group_id"`
	Role              Role      `bson:"role" json:"role"`
	NotificationToken *string   `bson:"notification_token" json:"-"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

// InGroup reports whether the profile is assigned to groupID.
func (p Profile) InGroup(groupID string) bool {
	return p.GroupID != nil && *p.GroupID == groupID
}

// HasToken reports whether the profile has a device registration token.
func (p Profile) HasToken() bool {
	return p.NotificationToken != nil && *p.NotificationToken != ""
}
