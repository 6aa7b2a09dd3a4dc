package access

import (
	"strings"

	"github.com/google/uuid"
	"github.com/wolfeidau/tracker/internal/models"
)

// VisibleIssues returns the subset of issues the principal may list.
//
// Staff see every issue. Everyone else sees the union of issues they own,
// issues assigned to them directly, and issues assigned to a team they
// belong to. Each issue appears at most once regardless of how many
// clauses it matches.
//
// statusFilter, when non-empty, is an exact case-insensitive match against
// the status enum applied after the visibility predicate. An unknown value
// matches nothing and yields an empty result rather than an error.
func VisibleIssues(p Principal, issues []*models.Issue, teams []*models.Team, statusFilter string) []*models.Issue {
	memberOf := make(map[uuid.UUID]struct{}, len(teams))
	for _, team := range teams {
		if team.HasMember(p.ID) {
			memberOf[team.TeamID] = struct{}{}
		}
	}

	result := make([]*models.Issue, 0, len(issues))
	for _, issue := range issues {
		if !p.Staff && !issueVisibleTo(p, issue, memberOf) {
			continue
		}
		if statusFilter != "" && !strings.EqualFold(string(issue.Status), statusFilter) {
			continue
		}
		result = append(result, issue)
	}

	return result
}

func issueVisibleTo(p Principal, issue *models.Issue, memberOf map[uuid.UUID]struct{}) bool {
	if issue.OwnerID == p.ID || issue.AssignedToUser(p.ID) {
		return true
	}
	if issue.AssignedToTeamID != nil {
		if _, ok := memberOf[*issue.AssignedToTeamID]; ok {
			return true
		}
	}
	return false
}

// CanViewIssue reports whether the principal may read a single issue,
// using the principal's membership snapshot. Same predicate as
// VisibleIssues without the team-list scan.
func CanViewIssue(p Principal, issue *models.Issue) bool {
	if p.Staff || issue.OwnerID == p.ID || issue.AssignedToUser(p.ID) {
		return true
	}
	return issue.AssignedToTeamID != nil && p.MemberOf(*issue.AssignedToTeamID)
}

// VisibleTeams returns the subset of teams the principal may list:
// teams they are a member of, or every team for staff.
func VisibleTeams(p Principal, teams []*models.Team) []*models.Team {
	result := make([]*models.Team, 0, len(teams))
	for _, team := range teams {
		if p.Staff || team.HasMember(p.ID) {
			result = append(result, team)
		}
	}
	return result
}
