package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/tracker/internal/models"
)

// Sentinel errors for issue store operations
var (
	ErrIssueNotFound      = errors.New("issue not found")
	ErrIssueAlreadyExists = errors.New("issue already exists")
)

// IssueStore defines the interface for issue storage operations.
//
// Callers performing a read-modify-write of a single issue (assignment
// transitions, partial updates) rely on the store to serialize writers
// per issue so the two assignment slots are never observed or written
// inconsistently.
type IssueStore interface {
	// Create creates a new issue in the store.
	// Returns ErrIssueAlreadyExists if an issue with the same ID exists.
	Create(ctx context.Context, issue *models.Issue) error

	// Get retrieves an issue by ID.
	// Returns ErrIssueNotFound if the issue doesn't exist.
	Get(ctx context.Context, issueID uuid.UUID) (*models.Issue, error)

	// Update updates an existing issue.
	// Returns ErrIssueNotFound if the issue doesn't exist.
	Update(ctx context.Context, issue *models.Issue) error

	// Delete deletes an issue by ID.
	// Returns ErrIssueNotFound if the issue doesn't exist.
	Delete(ctx context.Context, issueID uuid.UUID) error

	// List returns all issues ordered by creation time, newest first.
	List(ctx context.Context) ([]*models.Issue, error)
}
