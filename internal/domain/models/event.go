// internal/domain/models/event.go
package models

import "time"

// EventType identifies what a journal entry records.
type EventType string

const (
	EventFoodIntake       EventType = "FOOD_INTAKE"
	EventFridgeStorage    EventType = "FRIDGE_STORAGE"
	EventNotificationSent EventType = "NOTIFICATION_SENT"
)

// Loggable reports whether members may log this type directly.
// NOTIFICATION_SENT is only written by the reminder flow.
func (t EventType) Loggable() bool {
	return t == EventFoodIntake || t == EventFridgeStorage
}

// Event is one entry on a group's shared timeline.
type Event struct {
	ID        string    `bson:"_id" json:"id"`
	GroupID   string    `bson:"group_id" json:"group_id"`
	Type      EventType `bson:"type" json:"type"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	UserID    string    `bson:"user_id" json:"user_id"`
	UserName  string    `bson:"user_name,omitempty" json:"user_name,omitempty"`

	// NOTIFICATION_SENT only
	TargetUserID     string `bson:"target_user_id,omitempty" json:"target_user_id,omitempty"`
	TargetUserName   string `bson:"target_user_name,omitempty" json:"target_user_name,omitempty"`
	NotificationType string `bson:"notification_type,omitempty" json:"notification_type,omitempty"`
}

// Credential backs the password sign-in flow. Keyed by normalized email.
type Credential struct {
	Email        string    `bson:"_id"`
	UID          string    `bson:"uid"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}
