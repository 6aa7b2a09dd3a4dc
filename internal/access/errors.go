package access

import "errors"

// Sentinel errors returned by authorization and assignment decisions.
// Callers wrap or match these with errors.Is; the HTTP adapter maps them
// onto status codes.
var (
	// ErrPermissionDenied - the actor lacks rights for the requested mutation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUserNotFound - an assignment or membership request referenced a
	// user absent from the store.
	ErrUserNotFound = errors.New("user not found")

	// ErrTeamNotFound - an assignment request referenced a team absent
	// from the store.
	ErrTeamNotFound = errors.New("team not found")

	// ErrConflictingAssignment - a single request targeted both a user and
	// a team. An issue has at most one assignee.
	ErrConflictingAssignment = errors.New("issue cannot be assigned to both a user and a team")

	// ErrNotTeamMember - the actor tried to assign an issue to a team they
	// do not belong to.
	ErrNotTeamMember = errors.New("not a member of the team")

	// ErrCannotRemoveOwner - the team owner is never removable via member
	// removal; that would break the owner-is-a-member invariant.
	ErrCannotRemoveOwner = errors.New("team owner cannot be removed")
)
