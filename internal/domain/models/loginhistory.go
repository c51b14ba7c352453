package models

import "time"

// LoginRecord is one successful sign-in.
type LoginRecord struct {
	UID       string    `bson:"uid" json:"uid"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	IP        string    `bson:"ip" json:"ip"`
	Provider  string    `bson:"provider" json:"provider"`
}
