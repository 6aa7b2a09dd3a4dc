package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tracker/internal/models"
	"github.com/wolfeidau/tracker/internal/store"
)

// Target selects the new occupant of one assignment slot. It is a
// three-state value: assign a specific ID, explicitly clear the slot, or
// leave the slot unchanged (the zero value). Wire adapters decode absent
// JSON keys to the zero value and explicit nulls to a clear.
type Target struct {
	present bool
	clear   bool
	value   uuid.UUID
}

// TargetID returns a target that assigns the slot to the given ID.
func TargetID(id uuid.UUID) Target {
	return Target{present: true, value: id}
}

// TargetClear returns a target that explicitly clears the slot.
func TargetClear() Target {
	return Target{present: true, clear: true}
}

// Assigns reports whether the target carries a new assignee ID.
func (t Target) Assigns() bool { return t.present && !t.clear }

// Clears reports whether the target explicitly clears the slot.
func (t Target) Clears() bool { return t.present && t.clear }

// Value returns the assignee ID. Only meaningful when Assigns is true.
func (t Target) Value() uuid.UUID { return t.value }

// AssignmentRequest carries the two assignment slots of an assign request,
// each independently present-with-value, explicit-clear, or absent.
type AssignmentRequest struct {
	User Target
	Team Target
}

// UpdateOutcome describes how much of a general update was applied.
type UpdateOutcome int

const (
	// UpdateApplied - every requested change was applied.
	UpdateApplied UpdateOutcome = iota

	// UpdateAssignmentOnly - the actor is neither owner nor staff, so only
	// the user-assignment change was applied and the remaining field
	// changes were skipped. This is a partial success, not an error.
	UpdateAssignmentOnly
)

// IssueChanges carries the optional field changes of a general update
// request. Nil pointer fields are left unchanged.
type IssueChanges struct {
	Title       *string
	Description *string
	Status      *models.IssueStatus
	User        Target // assigned-user slot
	Team        Target // assigned-team slot
}

// Rules validates and applies assignment transitions for issues.
// It resolves referenced users and teams through the store but performs
// no persistence; callers save the mutated issue afterwards.
type Rules struct {
	users UserGetter
	teams TeamGetter
}

// NewRules creates assignment rules backed by the given resolvers.
func NewRules(users UserGetter, teams TeamGetter) *Rules {
	return &Rules{users: users, teams: teams}
}

// ApplyAssignment validates and applies an assignment transition.
//
// The actor must be the issue's owner, staff, or a member of the team the
// issue is currently assigned to (a team member may reassign their own
// team's issue). All checks run before any mutation, so a failed request
// leaves the issue untouched.
func (r *Rules) ApplyAssignment(ctx context.Context, p Principal, issue *models.Issue, req AssignmentRequest) error {
	if !r.canAssign(p, issue) {
		return fmt.Errorf("%w: issue %s", ErrPermissionDenied, issue.IssueID)
	}

	switch {
	case req.User.Assigns() && req.Team.Assigns():
		return ErrConflictingAssignment

	case req.User.Assigns():
		user, err := r.resolveUser(ctx, req.User.Value())
		if err != nil {
			return err
		}
		issue.AssignedToUserID = &user.UserID
		issue.AssignedToTeamID = nil

	case req.Team.Assigns():
		team, err := r.resolveTeam(ctx, req.Team.Value())
		if err != nil {
			return err
		}
		if !p.Staff && !team.HasMember(p.ID) {
			return fmt.Errorf("%w: team %s", ErrNotTeamMember, team.TeamID)
		}
		issue.AssignedToTeamID = &team.TeamID
		issue.AssignedToUserID = nil

	default:
		// Both absent or explicitly cleared: full unassignment.
		issue.AssignedToUserID = nil
		issue.AssignedToTeamID = nil
	}

	issue.UpdatedAt = time.Now()
	return nil
}

// ApplyPartialUpdate applies a general update to an issue.
//
// The user-assignment change applies first for any authenticated
// principal; reassignment is deliberately more permissive than general
// field edits. The remaining field changes apply only when the actor is
// the owner or staff - otherwise the call succeeds with
// UpdateAssignmentOnly and the other fields are left as they were.
func (r *Rules) ApplyPartialUpdate(ctx context.Context, p Principal, issue *models.Issue, changes IssueChanges) (UpdateOutcome, error) {
	editor := issue.OwnerID == p.ID || p.Staff

	// Validate before mutating so a rejected request leaves the issue
	// unmodified.
	if editor && changes.User.Assigns() && changes.Team.Assigns() {
		return 0, ErrConflictingAssignment
	}

	touched := false

	switch {
	case changes.User.Assigns():
		user, err := r.resolveUser(ctx, changes.User.Value())
		if err != nil {
			return 0, err
		}
		issue.AssignedToUserID = &user.UserID
		issue.AssignedToTeamID = nil
		touched = true
	case changes.User.Clears():
		issue.AssignedToUserID = nil
		touched = true
	}

	if !editor {
		if touched {
			issue.UpdatedAt = time.Now()
		}
		return UpdateAssignmentOnly, nil
	}

	switch {
	case changes.Team.Assigns():
		team, err := r.resolveTeam(ctx, changes.Team.Value())
		if err != nil {
			return 0, err
		}
		issue.AssignedToTeamID = &team.TeamID
		issue.AssignedToUserID = nil
		touched = true
	case changes.Team.Clears():
		issue.AssignedToTeamID = nil
		touched = true
	}

	if changes.Title != nil {
		issue.Title = *changes.Title
		touched = true
	}
	if changes.Description != nil {
		issue.Description = *changes.Description
		touched = true
	}
	if changes.Status != nil {
		issue.Status = *changes.Status
		touched = true
	}

	if touched {
		issue.UpdatedAt = time.Now()
	}
	return UpdateApplied, nil
}

// canAssign checks the assignment precondition: owner, staff, or member of
// the currently assigned team.
func (r *Rules) canAssign(p Principal, issue *models.Issue) bool {
	if issue.OwnerID == p.ID || p.Staff {
		return true
	}
	return issue.AssignedToTeamID != nil && p.MemberOf(*issue.AssignedToTeamID)
}

func (r *Rules) resolveUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := r.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("resolve assigned user: %w", err)
	}
	return user, nil
}

func (r *Rules) resolveTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	team, err := r.teams.Get(ctx, teamID)
	if err != nil {
		if errors.Is(err, store.ErrTeamNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}
		return nil, fmt.Errorf("resolve assigned team: %w", err)
	}
	return team, nil
}
