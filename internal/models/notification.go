package models

import "time"

type Notification struct {
	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`

	UserID  string `bson:"user_id" json:"user_id"`
	Title   string `bson:"title" json:"title"`
	Message string `bson:"message" json:"message"`
	Type    string `bson:"type" json:"type"`
	Read    bool   `bson:"read" json:"read"`
}
