package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tracker/internal/models"
	"github.com/wolfeidau/tracker/internal/store"
)

// IssueStore implements store.IssueStore using in-memory storage.
// Used in development mode and tests - data is lost on restart.
type IssueStore struct {
	mu sync.RWMutex

	issues map[uuid.UUID]*models.Issue // issue_id -> Issue
}

// NewIssueStore creates a new in-memory issue store.
func NewIssueStore() *IssueStore {
	return &IssueStore{
		issues: make(map[uuid.UUID]*models.Issue),
	}
}

// Create creates a new issue in memory.
func (s *IssueStore) Create(ctx context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.issues[issue.IssueID]; exists {
		return store.ErrIssueAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *issue
	s.issues[issue.IssueID] = &clone

	return nil
}

// Get retrieves an issue by ID.
func (s *IssueStore) Get(ctx context.Context, issueID uuid.UUID) (*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issue, exists := s.issues[issueID]
	if !exists {
		return nil, store.ErrIssueNotFound
	}

	clone := *issue
	return &clone, nil
}

// Update updates an existing issue.
func (s *IssueStore) Update(ctx context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.issues[issue.IssueID]; !exists {
		return store.ErrIssueNotFound
	}

	issue.UpdatedAt = time.Now()

	clone := *issue
	s.issues[issue.IssueID] = &clone

	return nil
}

// Delete deletes an issue by ID.
func (s *IssueStore) Delete(ctx context.Context, issueID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.issues[issueID]; !exists {
		return store.ErrIssueNotFound
	}

	delete(s.issues, issueID)

	return nil
}

// List returns all issues ordered by creation time, newest first.
func (s *IssueStore) List(ctx context.Context) ([]*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		clone := *issue
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// clearTeamAssignments nulls the team slot on every issue assigned to the
// given team. Called by the team store's Delete to provide the set-null
// cascade the SQL schema gives the postgres store for free.
func (s *IssueStore) clearTeamAssignments(teamID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, issue := range s.issues {
		if issue.AssignedToTeamID != nil && *issue.AssignedToTeamID == teamID {
			issue.AssignedToTeamID = nil
			issue.UpdatedAt = now
		}
	}
}
