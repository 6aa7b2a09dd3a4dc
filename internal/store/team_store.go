package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/tracker/internal/models"
)

// Sentinel errors for team store operations
var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamAlreadyExists = errors.New("team already exists")
)

// TeamStore defines the interface for team storage operations.
type TeamStore interface {
	// Create creates a new team in the store.
	// Returns ErrTeamAlreadyExists if a team with the same ID or name exists.
	Create(ctx context.Context, team *models.Team) error

	// Get retrieves a team by ID.
	// Returns ErrTeamNotFound if the team doesn't exist.
	Get(ctx context.Context, teamID uuid.UUID) (*models.Team, error)

	// GetByName retrieves a team by its unique name.
	// Returns ErrTeamNotFound if the team doesn't exist.
	GetByName(ctx context.Context, name string) (*models.Team, error)

	// Update updates an existing team, including its member set.
	// Returns ErrTeamNotFound if the team doesn't exist.
	Update(ctx context.Context, team *models.Team) error

	// Delete deletes a team by ID. Issues assigned to the team have their
	// team assignment cleared (set-null cascade).
	// Returns ErrTeamNotFound if the team doesn't exist.
	Delete(ctx context.Context, teamID uuid.UUID) error

	// List returns all teams ordered by name.
	List(ctx context.Context) ([]*models.Team, error)

	// ListByMember returns all teams the given user is a member of.
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Team, error)
}
