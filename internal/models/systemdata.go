package models

import "time"

// Seed identity for the lab administrator. The local store bootstraps a
// credential for this email on first run; the remote seeder creates the
// matching user document.
const (
	DefaultAdminEmail = "admin@issacasimov.in"
	DefaultAdminName  = "Administrator"
)

// SystemData is the aggregate root: every entity collection, serialized as
// one JSON unit to the local store. Slices keep insertion order.
type SystemData struct {
	Users         []User          `json:"users"`
	Components    []Component     `json:"components"`
	Requests      []BorrowRequest `json:"requests"`
	Notifications []Notification  `json:"notifications"`
	LoginSessions []LoginSession  `json:"login_sessions"`
}

// DefaultSystemData is what the local store serves when no snapshot exists
// or the stored one fails to parse: the seeded admin plus one starter
// component, so a fresh (or corrupted) install is immediately usable.
func DefaultSystemData() SystemData {
	now := time.Now().UTC()
	return SystemData{
		Users: []User{
			{
				ID:           "admin-1",
				Name:         DefaultAdminName,
				Email:        DefaultAdminEmail,
				Role:         RoleAdmin,
				RegisteredAt: now,
				IsActive:     true,
			},
		},
		Components:    SeedComponents(),
		Requests:      []BorrowRequest{},
		Notifications: []Notification{},
		LoginSessions: []LoginSession{},
	}
}

// SeedComponents is the starter inventory written by both the local default
// dataset and the remote seeder.
func SeedComponents() []Component {
	return []Component{
		{
			ID:                "component-1",
			Name:              "Arduino Uno R3",
			Category:          "Microcontroller",
			Description:       "ATmega328P development board",
			TotalQuantity:     10,
			AvailableQuantity: 10,
		},
	}
}
