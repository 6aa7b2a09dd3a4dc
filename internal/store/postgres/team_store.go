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

// TeamStore implements store.TeamStore using PostgreSQL.
// Membership lives in the team_members join table; member changes and the
// team row are written in a single transaction.
type TeamStore struct {
	pool *pgxpool.Pool
}

// NewTeamStore creates a new PostgreSQL-backed team store.
// It shares the connection pool with other stores.
func NewTeamStore(pool *pgxpool.Pool) *TeamStore {
	return &TeamStore{
		pool: pool,
	}
}

// Create creates a new team and its member rows in a single transaction.
func (s *TeamStore) Create(ctx context.Context, team *models.Team) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	query := `
		INSERT INTO teams (
			team_id, name, description, owner_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err = tx.Exec(ctx, query,
		team.TeamID,
		team.Name,
		team.Description,
		team.OwnerID,
		team.CreatedAt,
		team.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrTeamAlreadyExists
		}
		return fmt.Errorf("failed to create team: %w", mapPostgresError(err))
	}

	if err := insertMembers(ctx, tx, team.TeamID, team.MemberIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit team: %w", err)
	}

	log.Debug().
		Str("team_id", team.TeamID.String()).
		Str("name", team.Name).
		Msg("Created team")

	return nil
}

// Get retrieves a team by ID, including its member set.
func (s *TeamStore) Get(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	query := `
		SELECT team_id, name, description, owner_id, created_at, updated_at
		FROM teams
		WHERE team_id = $1
	`

	return s.getTeam(ctx, query, teamID)
}

// GetByName retrieves a team by its unique name.
func (s *TeamStore) GetByName(ctx context.Context, name string) (*models.Team, error) {
	query := `
		SELECT team_id, name, description, owner_id, created_at, updated_at
		FROM teams
		WHERE name = $1
	`

	return s.getTeam(ctx, query, name)
}

// Update updates a team and replaces its member rows in a single transaction.
func (s *TeamStore) Update(ctx context.Context, team *models.Team) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	query := `
		UPDATE teams
		SET name = $2, description = $3, owner_id = $4, updated_at = now()
		WHERE team_id = $1
	`

	tag, err := tx.Exec(ctx, query,
		team.TeamID,
		team.Name,
		team.Description,
		team.OwnerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrTeamAlreadyExists
		}
		return fmt.Errorf("failed to update team: %w", mapPostgresError(err))
	}

	if tag.RowsAffected() == 0 {
		return store.ErrTeamNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1`, team.TeamID); err != nil {
		return fmt.Errorf("failed to clear team members: %w", mapPostgresError(err))
	}

	if err := insertMembers(ctx, tx, team.TeamID, team.MemberIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit team: %w", err)
	}

	return nil
}

// Delete deletes a team by ID. The issues FK is declared ON DELETE SET
// NULL, so issues assigned to the team have their team slot cleared by the
// database.
func (s *TeamStore) Delete(ctx context.Context, teamID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM teams WHERE team_id = $1`, teamID)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", mapPostgresError(err))
	}

	if tag.RowsAffected() == 0 {
		return store.ErrTeamNotFound
	}

	log.Debug().Str("team_id", teamID.String()).Msg("Deleted team")

	return nil
}

// List returns all teams ordered by name.
func (s *TeamStore) List(ctx context.Context) ([]*models.Team, error) {
	query := `
		SELECT team_id, name, description, owner_id, created_at, updated_at
		FROM teams
		ORDER BY name
	`

	return s.listTeams(ctx, query)
}

// ListByMember returns all teams the given user is a member of.
func (s *TeamStore) ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Team, error) {
	query := `
		SELECT t.team_id, t.name, t.description, t.owner_id, t.created_at, t.updated_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.team_id
		WHERE m.user_id = $1
		ORDER BY t.name
	`

	return s.listTeams(ctx, query, userID)
}

func (s *TeamStore) getTeam(ctx context.Context, query string, arg any) (*models.Team, error) {
	var t models.Team
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&t.TeamID,
		&t.Name,
		&t.Description,
		&t.OwnerID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", mapPostgresError(err))
	}

	members, err := s.loadMembers(ctx, t.TeamID)
	if err != nil {
		return nil, err
	}
	t.MemberIDs = members

	return &t, nil
}

func (s *TeamStore) listTeams(ctx context.Context, query string, args ...any) ([]*models.Team, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.Team
	for rows.Next() {
		var t models.Team
		err := rows.Scan(
			&t.TeamID,
			&t.Name,
			&t.Description,
			&t.OwnerID,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		result = append(result, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read teams: %w", mapPostgresError(err))
	}

	for _, t := range result {
		members, err := s.loadMembers(ctx, t.TeamID)
		if err != nil {
			return nil, err
		}
		t.MemberIDs = members
	}

	return result, nil
}

func (s *TeamStore) loadMembers(ctx context.Context, teamID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM team_members WHERE team_id = $1`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team members: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var members []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read team members: %w", mapPostgresError(err))
	}

	return members, nil
}

func insertMembers(ctx context.Context, tx pgx.Tx, teamID uuid.UUID, memberIDs []uuid.UUID) error {
	for _, userID := range memberIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO team_members (team_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			teamID, userID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: %s", store.ErrUserNotFound, userID)
			}
			return fmt.Errorf("failed to insert team member: %w", mapPostgresError(err))
		}
	}
	return nil
}
