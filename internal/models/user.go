package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account in the tracker.
// Users authenticate with a username and password and may own issues,
// belong to teams, and be assigned issues directly.
type User struct {
	UserID   uuid.UUID // UUIDv7
	Username string    // Unique login name
	Email    string
	Staff    bool // Staff users bypass visibility and mutation checks

	// PasswordHash is a bcrypt hash of the user's password.
	// Never serialized to API responses.
	PasswordHash []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}
