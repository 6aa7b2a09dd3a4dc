// Package access implements the authorization core of the tracker: which
// issues and teams a principal can see, which assignment transitions are
// allowed, and which team mutations are permitted.
//
// Everything here is a synchronous decision over a snapshot of entities
// loaded by the caller. The package never persists anything itself - it
// mutates the entity it was handed and leaves saving to the caller, which
// is expected to wrap the read-decide-save sequence so concurrent writers
// against the same entity cannot interleave.
package access

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/wolfeidau/tracker/internal/models"
)

// Principal is the authenticated actor performing an operation.
// It is an immutable per-request snapshot built by the auth middleware.
type Principal struct {
	ID      uuid.UUID
	Staff   bool        // Staff principals bypass visibility and mutation checks
	TeamIDs []uuid.UUID // Teams the principal is a member of
}

// MemberOf reports whether the principal is a member of the given team.
func (p Principal) MemberOf(teamID uuid.UUID) bool {
	return slices.Contains(p.TeamIDs, teamID)
}

// UserGetter resolves users referenced by assignment requests.
// Satisfied by store.UserStore.
type UserGetter interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// TeamGetter resolves teams referenced by assignment requests.
// Satisfied by store.TeamStore.
type TeamGetter interface {
	Get(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
}
