package access

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tracker/internal/models"
	"github.com/wolfeidau/tracker/internal/store"
)

// Membership validates team mutations: member add/remove, bulk member
// replacement, and the owner-or-staff gate for team update and delete.
type Membership struct {
	users UserGetter
}

// NewMembership creates a membership guard backed by the given resolver.
func NewMembership(users UserGetter) *Membership {
	return &Membership{users: users}
}

// NewTeam constructs a team owned by the principal. The owner is inserted
// into the member set as part of construction, never as a separate step.
func NewTeam(p Principal, name, description string) *models.Team {
	now := time.Now()
	return &models.Team{
		TeamID:      uuid.Must(uuid.NewV7()),
		Name:        name,
		Description: description,
		OwnerID:     p.ID,
		MemberIDs:   []uuid.UUID{p.ID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CanManageTeam reports whether the principal may update, delete, or
// change the membership of the team.
func CanManageTeam(p Principal, team *models.Team) bool {
	return team.OwnerID == p.ID || p.Staff
}

// AddMember adds a user to the team. Requires owner or staff. Adding an
// existing member is an idempotent no-op.
func (m *Membership) AddMember(ctx context.Context, p Principal, team *models.Team, userID uuid.UUID) error {
	if !CanManageTeam(p, team) {
		return fmt.Errorf("%w: team %s", ErrPermissionDenied, team.TeamID)
	}

	if _, err := m.users.Get(ctx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return fmt.Errorf("resolve member: %w", err)
	}

	if team.HasMember(userID) {
		return nil
	}

	team.MemberIDs = append(team.MemberIDs, userID)
	team.UpdatedAt = time.Now()
	return nil
}

// RemoveMember removes a user from the team. Requires owner or staff.
// The owner is never removable via this path. Removing a user who is not
// a member is an idempotent no-op, mirroring AddMember.
func RemoveMember(p Principal, team *models.Team, userID uuid.UUID) error {
	if !CanManageTeam(p, team) {
		return fmt.Errorf("%w: team %s", ErrPermissionDenied, team.TeamID)
	}

	if userID == team.OwnerID {
		return fmt.Errorf("%w: user %s", ErrCannotRemoveOwner, userID)
	}

	idx := slices.Index(team.MemberIDs, userID)
	if idx < 0 {
		return nil
	}

	team.MemberIDs = slices.Delete(team.MemberIDs, idx, idx+1)
	team.UpdatedAt = time.Now()
	return nil
}

// ReplaceMembers replaces the team's member set wholesale. Requires owner
// or staff. The owner is forced back into the set if the replacement
// omitted them, preserving the owner-is-a-member invariant. Duplicates in
// the replacement are collapsed.
func ReplaceMembers(p Principal, team *models.Team, memberIDs []uuid.UUID) error {
	if !CanManageTeam(p, team) {
		return fmt.Errorf("%w: team %s", ErrPermissionDenied, team.TeamID)
	}

	members := make([]uuid.UUID, 0, len(memberIDs)+1)
	seen := make(map[uuid.UUID]struct{}, len(memberIDs)+1)
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}

	if _, ok := seen[team.OwnerID]; !ok {
		members = append(members, team.OwnerID)
	}

	team.MemberIDs = members
	team.UpdatedAt = time.Now()
	return nil
}
