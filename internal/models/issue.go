package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// IssueStatus represents the lifecycle state of an issue.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "OPEN"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusClosed     IssueStatus = "CLOSED"
)

// ParseIssueStatus parses a status string case-insensitively.
// Returns false if the value doesn't match any known status.
func ParseIssueStatus(s string) (IssueStatus, bool) {
	switch IssueStatus(strings.ToUpper(s)) {
	case IssueStatusOpen:
		return IssueStatusOpen, true
	case IssueStatusInProgress:
		return IssueStatusInProgress, true
	case IssueStatusClosed:
		return IssueStatusClosed, true
	}
	return "", false
}

// Issue represents a tracked work item.
// An issue may be assigned to a user or a team, never both at once.
type Issue struct {
	IssueID     uuid.UUID // UUIDv7
	Title       string
	Description string
	Status      IssueStatus
	OwnerID     uuid.UUID // Creator, immutable after creation

	// Assignment slots. At most one is non-nil.
	AssignedToUserID *uuid.UUID
	AssignedToTeamID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssignedToUser reports whether the issue is assigned to the given user.
func (i *Issue) AssignedToUser(userID uuid.UUID) bool {
	return i.AssignedToUserID != nil && *i.AssignedToUserID == userID
}

// AssignedToTeam reports whether the issue is assigned to the given team.
func (i *Issue) AssignedToTeam(teamID uuid.UUID) bool {
	return i.AssignedToTeamID != nil && *i.AssignedToTeamID == teamID
}
