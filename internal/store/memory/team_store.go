package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tracker/internal/models"
	"github.com/wolfeidau/tracker/internal/store"
)

// TeamStore implements store.TeamStore using in-memory storage.
// Used in development mode and tests - data is lost on restart.
//
// The issue store reference provides the set-null cascade on team delete,
// matching the foreign key behaviour of the postgres schema.
type TeamStore struct {
	mu sync.RWMutex

	teams       map[uuid.UUID]*models.Team // team_id -> Team
	teamsByName map[string]*models.Team    // name -> Team

	issues *IssueStore
}

// NewTeamStore creates a new in-memory team store.
// The issue store may be nil when issues are not in play (some tests).
func NewTeamStore(issues *IssueStore) *TeamStore {
	return &TeamStore{
		teams:       make(map[uuid.UUID]*models.Team),
		teamsByName: make(map[string]*models.Team),
		issues:      issues,
	}
}

// Create creates a new team in memory.
func (s *TeamStore) Create(ctx context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.teams[team.TeamID]; exists {
		return store.ErrTeamAlreadyExists
	}

	if _, exists := s.teamsByName[team.Name]; exists {
		return store.ErrTeamAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *team
	clone.MemberIDs = slices.Clone(team.MemberIDs)
	s.teams[team.TeamID] = &clone
	s.teamsByName[clone.Name] = &clone

	return nil
}

// Get retrieves a team by ID.
func (s *TeamStore) Get(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	team, exists := s.teams[teamID]
	if !exists {
		return nil, store.ErrTeamNotFound
	}

	return cloneTeam(team), nil
}

// GetByName retrieves a team by its unique name.
func (s *TeamStore) GetByName(ctx context.Context, name string) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	team, exists := s.teamsByName[name]
	if !exists {
		return nil, store.ErrTeamNotFound
	}

	return cloneTeam(team), nil
}

// Update updates an existing team.
func (s *TeamStore) Update(ctx context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.teams[team.TeamID]
	if !exists {
		return store.ErrTeamNotFound
	}

	team.UpdatedAt = time.Now()

	// Re-index if the name changed
	if existing.Name != team.Name {
		delete(s.teamsByName, existing.Name)
	}

	clone := *team
	clone.MemberIDs = slices.Clone(team.MemberIDs)
	s.teams[team.TeamID] = &clone
	s.teamsByName[clone.Name] = &clone

	return nil
}

// Delete deletes a team by ID, clearing the team slot on any issues
// assigned to it.
func (s *TeamStore) Delete(ctx context.Context, teamID uuid.UUID) error {
	s.mu.Lock()

	team, exists := s.teams[teamID]
	if !exists {
		s.mu.Unlock()
		return store.ErrTeamNotFound
	}

	delete(s.teams, teamID)
	delete(s.teamsByName, team.Name)
	s.mu.Unlock()

	// Cascade outside the team lock; the issue store has its own.
	if s.issues != nil {
		s.issues.clearTeamAssignments(teamID)
	}

	return nil
}

// List returns all teams ordered by name.
func (s *TeamStore) List(ctx context.Context) ([]*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Team, 0, len(s.teams))
	for _, team := range s.teams {
		result = append(result, cloneTeam(team))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// ListByMember returns all teams the given user is a member of.
func (s *TeamStore) ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Team
	for _, team := range s.teams {
		if team.HasMember(userID) {
			result = append(result, cloneTeam(team))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

func cloneTeam(team *models.Team) *models.Team {
	clone := *team
	clone.MemberIDs = slices.Clone(team.MemberIDs)
	return &clone
}
