package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// FeedbackTemplate is a saved, reusable feedback prompt. Templates are
// create/read only — no mutation or deletion.
type FeedbackTemplate struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID   bson.ObjectID `bson:"owner_id" json:"owner_id"`
	Name      string        `bson:"name" json:"name"`
	Prompt    string        `bson:"prompt" json:"prompt"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
}
