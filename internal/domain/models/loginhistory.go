// internal/domain/models/loginhistory.go
package models

import "time"

// LoginRecord captures a single successful identity-provider login.
// CreatedAt is indexed for recent-activity views.
type LoginRecord struct {
	UserID    string    `bson:"user_id" json:"userId"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	IP        string    `bson:"ip" json:"ip"`
	Provider  string    `bson:"provider" json:"provider"`
	Created   bool      `bson:"created" json:"created"` // true when this login provisioned the user
}
