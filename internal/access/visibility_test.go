package access

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tracker/internal/models"
)

func newUserID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id
}

func makeIssue(owner uuid.UUID, status models.IssueStatus) *models.Issue {
	return &models.Issue{
		IssueID:   uuid.Must(uuid.NewV7()),
		Title:     "issue",
		Status:    status,
		OwnerID:   owner,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func makeTeam(owner uuid.UUID, name string, members ...uuid.UUID) *models.Team {
	return &models.Team{
		TeamID:    uuid.Must(uuid.NewV7()),
		Name:      name,
		OwnerID:   owner,
		MemberIDs: append([]uuid.UUID{owner}, members...),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestVisibleIssues_Staff(t *testing.T) {
	u1 := newUserID(t)
	u2 := newUserID(t)
	staff := Principal{ID: newUserID(t), Staff: true}

	issues := []*models.Issue{
		makeIssue(u1, models.IssueStatusOpen),
		makeIssue(u2, models.IssueStatusClosed),
		makeIssue(u2, models.IssueStatusInProgress),
	}

	visible := VisibleIssues(staff, issues, nil, "")
	require.Len(t, visible, 3)
}

func TestVisibleIssues_NonStaff(t *testing.T) {
	u1 := newUserID(t)
	u2 := newUserID(t)

	team := makeTeam(u2, "backend", u1)

	owned := makeIssue(u1, models.IssueStatusOpen)

	assignedToMe := makeIssue(u2, models.IssueStatusOpen)
	assignedToMe.AssignedToUserID = &u1

	assignedToMyTeam := makeIssue(u2, models.IssueStatusOpen)
	assignedToMyTeam.AssignedToTeamID = &team.TeamID

	unrelated := makeIssue(u2, models.IssueStatusOpen)

	issues := []*models.Issue{owned, assignedToMe, assignedToMyTeam, unrelated}
	teams := []*models.Team{team}

	visible := VisibleIssues(Principal{ID: u1}, issues, teams, "")
	require.Len(t, visible, 3)
	require.Contains(t, visible, owned)
	require.Contains(t, visible, assignedToMe)
	require.Contains(t, visible, assignedToMyTeam)
	require.NotContains(t, visible, unrelated)
}

func TestVisibleIssues_NoDuplicates(t *testing.T) {
	u1 := newUserID(t)

	team := makeTeam(u1, "backend")

	// Owned, assigned to me, and assigned to my team all at once would
	// break the single-assignee invariant, so exercise owner + user slot.
	issue := makeIssue(u1, models.IssueStatusOpen)
	issue.AssignedToUserID = &u1

	visible := VisibleIssues(Principal{ID: u1}, []*models.Issue{issue}, []*models.Team{team}, "")
	require.Len(t, visible, 1)
}

func TestVisibleIssues_StatusFilter(t *testing.T) {
	staff := Principal{ID: newUserID(t), Staff: true}
	owner := newUserID(t)

	issues := []*models.Issue{
		makeIssue(owner, models.IssueStatusOpen),
		makeIssue(owner, models.IssueStatusOpen),
		makeIssue(owner, models.IssueStatusClosed),
	}

	tests := []struct {
		name   string
		filter string
		want   int
	}{
		{name: "lowercase matches case-insensitively", filter: "open", want: 2},
		{name: "mixed case matches", filter: "Closed", want: 1},
		{name: "exact match", filter: "OPEN", want: 2},
		{name: "unknown status yields empty result", filter: "bogus", want: 0},
		{name: "no filter returns everything", filter: "", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visible := VisibleIssues(staff, issues, nil, tt.filter)
			require.Len(t, visible, tt.want)
		})
	}
}

func TestVisibleIssues_StatusFilterAfterVisibility(t *testing.T) {
	u1 := newUserID(t)
	u2 := newUserID(t)

	mine := makeIssue(u1, models.IssueStatusOpen)
	someoneElses := makeIssue(u2, models.IssueStatusOpen)

	visible := VisibleIssues(Principal{ID: u1}, []*models.Issue{mine, someoneElses}, nil, "open")
	require.Len(t, visible, 1)
	require.Equal(t, mine.IssueID, visible[0].IssueID)
}

func TestVisibleTeams(t *testing.T) {
	u1 := newUserID(t)
	u2 := newUserID(t)

	mine := makeTeam(u1, "backend")
	other := makeTeam(u2, "frontend")
	joined := makeTeam(u2, "platform", u1)

	teams := []*models.Team{mine, other, joined}

	t.Run("non-staff sees member teams only", func(t *testing.T) {
		visible := VisibleTeams(Principal{ID: u1}, teams)
		require.Len(t, visible, 2)
		require.Contains(t, visible, mine)
		require.Contains(t, visible, joined)
	})

	t.Run("staff sees all teams", func(t *testing.T) {
		visible := VisibleTeams(Principal{ID: newUserID(t), Staff: true}, teams)
		require.Len(t, visible, 3)
	})
}
