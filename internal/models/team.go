package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Team represents a group of users that can have issues assigned to it.
// The owner is the user who created the team and is always a member;
// membership mutations must preserve that invariant.
type Team struct {
	TeamID      uuid.UUID // UUIDv7
	Name        string    // Unique display name
	Description string
	OwnerID     uuid.UUID   // UUIDv7, FK to users
	MemberIDs   []uuid.UUID // Includes OwnerID at all times

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasMember reports whether the given user is a member of the team.
func (t *Team) HasMember(userID uuid.UUID) bool {
	return slices.Contains(t.MemberIDs, userID)
}
