package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/tracker/internal/auth"
	"github.com/wolfeidau/tracker/internal/models"
	"github.com/wolfeidau/tracker/internal/store/memory"
)

const fixtureYAML = `
users:
  - username: alice
    email: alice@example.com
    password: secret123
    staff: true
  - username: bob
    email: bob@example.com
    password: hunter2

teams:
  - name: platform
    description: Platform engineering
    owner: alice
    members: [bob]

issues:
  - title: Fix login redirect
    description: Redirect loops on expired sessions.
    status: in_progress
    owner: alice
    assigned_to_user: bob
  - title: Upgrade postgres
    owner: bob
    assigned_to_team: platform
`

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAndApply(t *testing.T) {
	fixture, err := Load(writeFixture(t, fixtureYAML))
	require.NoError(t, err)
	require.Len(t, fixture.Users, 2)
	require.Len(t, fixture.Teams, 1)
	require.Len(t, fixture.Issues, 2)

	ctx := context.Background()
	issues := memory.NewIssueStore()
	stores := Stores{
		Users:  memory.NewUserStore(),
		Teams:  memory.NewTeamStore(issues),
		Issues: issues,
	}
	require.NoError(t, Apply(ctx, fixture, stores))

	alice, err := stores.Users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, alice.Staff)
	require.NoError(t, auth.CheckPassword(alice.PasswordHash, "secret123"))

	bob, err := stores.Users.GetByUsername(ctx, "bob")
	require.NoError(t, err)

	team, err := stores.Teams.GetByName(ctx, "platform")
	require.NoError(t, err)
	require.Equal(t, alice.UserID, team.OwnerID)
	require.True(t, team.HasMember(alice.UserID))
	require.True(t, team.HasMember(bob.UserID))

	all, err := stores.Issues.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byTitle := make(map[string]*models.Issue, len(all))
	for _, issue := range all {
		byTitle[issue.Title] = issue
	}

	login := byTitle["Fix login redirect"]
	require.NotNil(t, login)
	require.Equal(t, models.IssueStatusInProgress, login.Status)
	require.NotNil(t, login.AssignedToUserID)
	require.Equal(t, bob.UserID, *login.AssignedToUserID)
	require.Nil(t, login.AssignedToTeamID)

	upgrade := byTitle["Upgrade postgres"]
	require.NotNil(t, upgrade)
	require.Equal(t, models.IssueStatusOpen, upgrade.Status)
	require.NotNil(t, upgrade.AssignedToTeamID)
	require.Equal(t, team.TeamID, *upgrade.AssignedToTeamID)
}

func TestApplyRejectsBadReferences(t *testing.T) {
	ctx := context.Background()

	newStores := func() Stores {
		issues := memory.NewIssueStore()
		return Stores{
			Users:  memory.NewUserStore(),
			Teams:  memory.NewTeamStore(issues),
			Issues: issues,
		}
	}

	t.Run("unknown team owner", func(t *testing.T) {
		err := Apply(ctx, &Fixture{
			Teams: []TeamFixture{{Name: "platform", Owner: "ghost"}},
		}, newStores())
		require.ErrorContains(t, err, "unknown owner")
	})

	t.Run("double assignment", func(t *testing.T) {
		err := Apply(ctx, &Fixture{
			Users: []UserFixture{{Username: "alice", Password: "pw"}},
			Teams: []TeamFixture{{Name: "platform", Owner: "alice"}},
			Issues: []IssueFixture{{
				Title:          "broken",
				Owner:          "alice",
				AssignedToUser: "alice",
				AssignedToTeam: "platform",
			}},
		}, newStores())
		require.ErrorContains(t, err, "assigned to both")
	})

	t.Run("invalid status", func(t *testing.T) {
		err := Apply(ctx, &Fixture{
			Users:  []UserFixture{{Username: "alice", Password: "pw"}},
			Issues: []IssueFixture{{Title: "broken", Owner: "alice", Status: "wontfix"}},
		}, newStores())
		require.ErrorContains(t, err, "invalid status")
	})
}
