package models

import "time"

type Component struct {
	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`

	Name        string `bson:"name" json:"name"`
	Category    string `bson:"category" json:"category"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL    string `bson:"image_url,omitempty" json:"image_url,omitempty"`

	// AvailableQuantity must stay within [0, TotalQuantity]; the request
	// approve/return flow is responsible for keeping it there.
	TotalQuantity     int `bson:"total_quantity" json:"total_quantity"`
	AvailableQuantity int `bson:"available_quantity" json:"available_quantity"`
}
