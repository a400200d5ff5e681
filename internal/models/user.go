package models

import "time"

// User roles. Admin accounts are seeded; self-registration always creates students.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

type User struct {
	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`

	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	Role         string    `bson:"role" json:"role"`
	RollNo       string    `bson:"roll_no,omitempty" json:"roll_no,omitempty"`
	Mobile       string    `bson:"mobile,omitempty" json:"mobile,omitempty"`
	RegisteredAt time.Time `bson:"registered_at" json:"registered_at"`
	LastLoginAt  time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	LoginCount   int       `bson:"login_count" json:"login_count"`
	IsActive     bool      `bson:"is_active" json:"is_active"`
}
