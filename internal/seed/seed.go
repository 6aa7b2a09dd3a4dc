// Package seed loads development fixture data from a YAML file and writes
// it through the store interfaces. Intended for the memory store in local
// development; running it against a non-empty database will fail on
// duplicate usernames.
package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/wolfeidau/tracker/internal/auth"
	"github.com/wolfeidau/tracker/internal/models"
	"github.com/wolfeidau/tracker/internal/store"
)

// Fixture is the root of a seed file.
type Fixture struct {
	Users  []UserFixture  `yaml:"users"`
	Teams  []TeamFixture  `yaml:"teams"`
	Issues []IssueFixture `yaml:"issues"`
}

// UserFixture declares a user. The password is hashed at load time.
type UserFixture struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Staff    bool   `yaml:"staff"`
}

// TeamFixture declares a team. Owner and members reference users by
// username; the owner is always included as a member.
type TeamFixture struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Owner       string   `yaml:"owner"`
	Members     []string `yaml:"members"`
}

// IssueFixture declares an issue. At most one of assigned_to_user and
// assigned_to_team may be set.
type IssueFixture struct {
	Title          string `yaml:"title"`
	Description    string `yaml:"description"`
	Status         string `yaml:"status"`
	Owner          string `yaml:"owner"`
	AssignedToUser string `yaml:"assigned_to_user"`
	AssignedToTeam string `yaml:"assigned_to_team"`
}

// Load reads and parses a seed file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	return &fixture, nil
}

// Stores bundles the stores a fixture is applied to.
type Stores struct {
	Users  store.UserStore
	Teams  store.TeamStore
	Issues store.IssueStore
}

// Apply writes the fixture through the stores in dependency order: users,
// then teams, then issues. References are resolved by username and team
// name within the fixture itself.
func Apply(ctx context.Context, fixture *Fixture, stores Stores) error {
	userIDs := make(map[string]uuid.UUID, len(fixture.Users))
	teamIDs := make(map[string]uuid.UUID, len(fixture.Teams))
	now := time.Now()

	for _, uf := range fixture.Users {
		hash, err := auth.HashPassword(uf.Password)
		if err != nil {
			return fmt.Errorf("hash password for %q: %w", uf.Username, err)
		}

		user := &models.User{
			UserID:       uuid.Must(uuid.NewV7()),
			Username:     uf.Username,
			Email:        uf.Email,
			Staff:        uf.Staff,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := stores.Users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %q: %w", uf.Username, err)
		}
		userIDs[uf.Username] = user.UserID
	}

	for _, tf := range fixture.Teams {
		ownerID, ok := userIDs[tf.Owner]
		if !ok {
			return fmt.Errorf("team %q: unknown owner %q", tf.Name, tf.Owner)
		}

		members := []uuid.UUID{ownerID}
		for _, name := range tf.Members {
			memberID, ok := userIDs[name]
			if !ok {
				return fmt.Errorf("team %q: unknown member %q", tf.Name, name)
			}
			if memberID != ownerID {
				members = append(members, memberID)
			}
		}

		team := &models.Team{
			TeamID:      uuid.Must(uuid.NewV7()),
			Name:        tf.Name,
			Description: tf.Description,
			OwnerID:     ownerID,
			MemberIDs:   members,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := stores.Teams.Create(ctx, team); err != nil {
			return fmt.Errorf("seed team %q: %w", tf.Name, err)
		}
		teamIDs[tf.Name] = team.TeamID
	}

	for _, issf := range fixture.Issues {
		ownerID, ok := userIDs[issf.Owner]
		if !ok {
			return fmt.Errorf("issue %q: unknown owner %q", issf.Title, issf.Owner)
		}

		status := models.IssueStatusOpen
		if issf.Status != "" {
			parsed, ok := models.ParseIssueStatus(issf.Status)
			if !ok {
				return fmt.Errorf("issue %q: invalid status %q", issf.Title, issf.Status)
			}
			status = parsed
		}

		issue := &models.Issue{
			IssueID:     uuid.Must(uuid.NewV7()),
			Title:       issf.Title,
			Description: issf.Description,
			Status:      status,
			OwnerID:     ownerID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if issf.AssignedToUser != "" && issf.AssignedToTeam != "" {
			return fmt.Errorf("issue %q: assigned to both a user and a team", issf.Title)
		}
		if issf.AssignedToUser != "" {
			assigneeID, ok := userIDs[issf.AssignedToUser]
			if !ok {
				return fmt.Errorf("issue %q: unknown assignee %q", issf.Title, issf.AssignedToUser)
			}
			issue.AssignedToUserID = &assigneeID
		}
		if issf.AssignedToTeam != "" {
			teamID, ok := teamIDs[issf.AssignedToTeam]
			if !ok {
				return fmt.Errorf("issue %q: unknown team %q", issf.Title, issf.AssignedToTeam)
			}
			issue.AssignedToTeamID = &teamID
		}

		if err := stores.Issues.Create(ctx, issue); err != nil {
			return fmt.Errorf("seed issue %q: %w", issf.Title, err)
		}
	}

	return nil
}
