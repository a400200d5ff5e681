package models

import "time"

// LoginSession is an audit record of one authenticated session. The user
// fields are denormalized on purpose: the row must keep describing the
// session even if the user record is edited later.
type LoginSession struct {
	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`

	UserID    string `bson:"user_id" json:"user_id"`
	UserEmail string `bson:"user_email" json:"user_email"`
	UserName  string `bson:"user_name" json:"user_name"`
	UserRole  string `bson:"user_role" json:"user_role"`

	LoginTime  time.Time  `bson:"login_time" json:"login_time"`
	LogoutTime *time.Time `bson:"logout_time,omitempty" json:"logout_time,omitempty"`
	// SessionDuration is logout minus login, in milliseconds.
	SessionDuration int64 `bson:"session_duration,omitempty" json:"session_duration,omitempty"`

	IPAddress  string `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent  string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	DeviceInfo string `bson:"device_info,omitempty" json:"device_info,omitempty"`
	IsActive   bool   `bson:"is_active" json:"is_active"`
}
