package models

import "time"

// Borrow request lifecycle. Requests are never deleted; returned is terminal.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
	RequestReturned = "returned"
)

type BorrowRequest struct {
	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`

	StudentID     string    `bson:"student_id" json:"student_id"`
	ComponentID   string    `bson:"component_id" json:"component_id"`
	ComponentName string    `bson:"component_name,omitempty" json:"component_name,omitempty"`
	Quantity      int       `bson:"quantity" json:"quantity"`
	Status        string    `bson:"status" json:"status"`
	DueDate       time.Time `bson:"due_date" json:"due_date"`
}
