package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type User struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string        `bson:"email" json:"email"`
	FirstName string        `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName  string        `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Company   string        `bson:"company,omitempty" json:"company,omitempty"`
	Role      string        `bson:"role,omitempty" json:"role,omitempty"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updated_at"`
}

// FullName personalizes outgoing feedback requests. Falls back to the email
// local part when the profile was never filled in.
func (u *User) FullName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}
