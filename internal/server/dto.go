package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfeidau/tracker/internal/access"
	"github.com/wolfeidau/tracker/internal/models"
)

// optionalID decodes one assignment slot of a request body. The wire
// contract is three-way: an absent key leaves the slot unchanged, an
// explicit null clears it, a UUID string assigns it.
type optionalID struct {
	set   bool
	clear bool
	id    uuid.UUID
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	o.set = true

	if string(data) == "null" {
		o.clear = true
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", raw, err)
	}

	o.id = id
	return nil
}

// target converts the decoded slot to the core's tri-state target.
func (o optionalID) target() access.Target {
	switch {
	case !o.set:
		return access.Target{}
	case o.clear:
		return access.TargetClear()
	default:
		return access.TargetID(o.id)
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Staff    bool      `json:"staff"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:       user.UserID,
		Username: user.Username,
		Email:    user.Email,
		Staff:    user.Staff,
	}
}

type createIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type updateIssueRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Status         *string    `json:"status"`
	AssignedToUser optionalID `json:"assigned_to_user"`
	AssignedToTeam optionalID `json:"assigned_to_team"`
}

type assignRequest struct {
	AssignedToUser optionalID `json:"assigned_to_user"`
	AssignedToTeam optionalID `json:"assigned_to_team"`
}

type issueResponse struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	AssignedToUser *uuid.UUID `json:"assigned_to_user"`
	AssignedToTeam *uuid.UUID `json:"assigned_to_team"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toIssueResponse(issue *models.Issue) issueResponse {
	return issueResponse{
		ID:             issue.IssueID,
		Title:          issue.Title,
		Description:    issue.Description,
		Status:         string(issue.Status),
		OwnerID:        issue.OwnerID,
		AssignedToUser: issue.AssignedToUserID,
		AssignedToTeam: issue.AssignedToTeamID,
		CreatedAt:      issue.CreatedAt,
		UpdatedAt:      issue.UpdatedAt,
	}
}

func toIssueResponses(issues []*models.Issue) []issueResponse {
	result := make([]issueResponse, 0, len(issues))
	for _, issue := range issues {
		result = append(result, toIssueResponse(issue))
	}
	return result
}

type createTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateTeamRequest struct {
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	Members     *[]uuid.UUID `json:"members"`
}

type addMemberRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

type teamResponse struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Members     []uuid.UUID `json:"members"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func toTeamResponse(team *models.Team) teamResponse {
	return teamResponse{
		ID:          team.TeamID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		Members:     team.MemberIDs,
		CreatedAt:   team.CreatedAt,
		UpdatedAt:   team.UpdatedAt,
	}
}

func toTeamResponses(teams []*models.Team) []teamResponse {
	result := make([]teamResponse, 0, len(teams))
	for _, team := range teams {
		result = append(result, toTeamResponse(team))
	}
	return result
}
