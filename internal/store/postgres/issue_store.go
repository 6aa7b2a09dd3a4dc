package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tracker/internal/models"
	"github.com/wolfeidau/tracker/internal/store"
)

// IssueStore implements store.IssueStore using PostgreSQL.
// The schema enforces the single-assignee invariant with a CHECK
// constraint, so a write that would set both slots fails at the database
// even if a caller bypasses the assignment rules.
type IssueStore struct {
	pool *pgxpool.Pool
}

// NewIssueStore creates a new PostgreSQL-backed issue store.
// It shares the connection pool with other stores.
func NewIssueStore(pool *pgxpool.Pool) *IssueStore {
	return &IssueStore{
		pool: pool,
	}
}

// Create creates a new issue in the database.
func (s *IssueStore) Create(ctx context.Context, issue *models.Issue) error {
	query := `
		INSERT INTO issues (
			issue_id, title, description, status, owner_id,
			assigned_to_user_id, assigned_to_team_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := s.pool.Exec(ctx, query,
		issue.IssueID,
		issue.Title,
		issue.Description,
		issue.Status,
		issue.OwnerID,
		issue.AssignedToUserID,
		issue.AssignedToTeamID,
		issue.CreatedAt,
		issue.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrIssueAlreadyExists
		}
		return fmt.Errorf("failed to create issue: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("issue_id", issue.IssueID.String()).
		Str("owner_id", issue.OwnerID.String()).
		Msg("Created issue")

	return nil
}

// Get retrieves an issue by ID.
func (s *IssueStore) Get(ctx context.Context, issueID uuid.UUID) (*models.Issue, error) {
	query := `
		SELECT issue_id, title, description, status, owner_id,
			assigned_to_user_id, assigned_to_team_id, created_at, updated_at
		FROM issues
		WHERE issue_id = $1
	`

	var i models.Issue
	err := s.pool.QueryRow(ctx, query, issueID).Scan(
		&i.IssueID,
		&i.Title,
		&i.Description,
		&i.Status,
		&i.OwnerID,
		&i.AssignedToUserID,
		&i.AssignedToTeamID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to get issue: %w", mapPostgresError(err))
	}

	return &i, nil
}

// Update updates an existing issue.
func (s *IssueStore) Update(ctx context.Context, issue *models.Issue) error {
	query := `
		UPDATE issues
		SET title = $2, description = $3, status = $4,
			assigned_to_user_id = $5, assigned_to_team_id = $6, updated_at = now()
		WHERE issue_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		issue.IssueID,
		issue.Title,
		issue.Description,
		issue.Status,
		issue.AssignedToUserID,
		issue.AssignedToTeamID,
	)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", mapPostgresError(err))
	}

	if tag.RowsAffected() == 0 {
		return store.ErrIssueNotFound
	}

	return nil
}

// Delete deletes an issue by ID.
func (s *IssueStore) Delete(ctx context.Context, issueID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM issues WHERE issue_id = $1`, issueID)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", mapPostgresError(err))
	}

	if tag.RowsAffected() == 0 {
		return store.ErrIssueNotFound
	}

	log.Debug().Str("issue_id", issueID.String()).Msg("Deleted issue")

	return nil
}

// List returns all issues ordered by creation time, newest first.
func (s *IssueStore) List(ctx context.Context) ([]*models.Issue, error) {
	query := `
		SELECT issue_id, title, description, status, owner_id,
			assigned_to_user_id, assigned_to_team_id, created_at, updated_at
		FROM issues
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.Issue
	for rows.Next() {
		var i models.Issue
		err := rows.Scan(
			&i.IssueID,
			&i.Title,
			&i.Description,
			&i.Status,
			&i.OwnerID,
			&i.AssignedToUserID,
			&i.AssignedToTeamID,
			&i.CreatedAt,
			&i.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		result = append(result, &i)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read issues: %w", mapPostgresError(err))
	}

	return result, nil
}
