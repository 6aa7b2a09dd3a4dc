package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/tracker/internal/access"
	trackerhttp "github.com/wolfeidau/tracker/internal/http"
	"github.com/wolfeidau/tracker/internal/models"
)

// logTeamDenial records an audit line for a refused team mutation,
// including the client IP captured by the middleware chain.
func logTeamDenial(ctx context.Context, principal access.Principal, team *models.Team, msg string) {
	zerolog.Ctx(ctx).Warn().
		Str("client_ip", trackerhttp.ClientIPFromContext(ctx)).
		Str("user_id", principal.ID.String()).
		Str("team_id", team.TeamID.String()).
		Msg(msg)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	teams, err := s.teams.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTeamResponses(access.VisibleTeams(principal, teams)))
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req createTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		writeErrorStatus(w, http.StatusBadRequest, "name is required")
		return
	}

	team := access.NewTeam(principal, req.Name, req.Description)

	if err := s.teams.Create(ctx, team); err != nil {
		writeError(w, r, err)
		return
	}

	s.metrics.TeamsCreatedTotal.Add(ctx, 1)

	writeJSON(w, http.StatusCreated, toTeamResponse(team))
}

// loadVisibleTeam fetches the team and applies the read predicate: members
// and staff only. Invisible teams read as not found.
func (s *Server) loadVisibleTeam(w http.ResponseWriter, r *http.Request, principal access.Principal) (*models.Team, bool) {
	teamID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorStatus(w, http.StatusNotFound, "team not found")
		return nil, false
	}

	team, err := s.teams.Get(r.Context(), teamID)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	if !principal.Staff && !team.HasMember(principal.ID) {
		writeErrorStatus(w, http.StatusNotFound, "team not found")
		return nil, false
	}

	return team, true
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	team, ok := s.loadVisibleTeam(w, r, principal)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toTeamResponse(team))
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	team, ok := s.loadVisibleTeam(w, r, principal)
	if !ok {
		return
	}

	if !access.CanManageTeam(principal, team) {
		s.metrics.AuthDenialsTotal.Add(ctx, 1)
		logTeamDenial(ctx, principal, team, "team update denied")
		writeErrorStatus(w, http.StatusForbidden, "only the owner may update a team")
		return
	}

	var req updateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		team.Name = *req.Name
	}
	if req.Description != nil {
		team.Description = *req.Description
	}
	if req.Members != nil {
		if err := access.ReplaceMembers(principal, team, *req.Members); err != nil {
			writeError(w, r, err)
			return
		}
		s.metrics.MembershipChangesTotal.Add(ctx, 1)
	}

	if err := s.teams.Update(ctx, team); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTeamResponse(team))
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	team, ok := s.loadVisibleTeam(w, r, principal)
	if !ok {
		return
	}

	if !access.CanManageTeam(principal, team) {
		s.metrics.AuthDenialsTotal.Add(ctx, 1)
		logTeamDenial(ctx, principal, team, "team delete denied")
		writeErrorStatus(w, http.StatusForbidden, "only the owner may delete a team")
		return
	}

	if err := s.teams.Delete(ctx, team.TeamID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	team, ok := s.loadVisibleTeam(w, r, principal)
	if !ok {
		return
	}

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.membership.AddMember(ctx, principal, team, req.UserID); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.teams.Update(ctx, team); err != nil {
		writeError(w, r, err)
		return
	}

	s.metrics.MembershipChangesTotal.Add(ctx, 1)

	writeJSON(w, http.StatusOK, toTeamResponse(team))
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	team, ok := s.loadVisibleTeam(w, r, principal)
	if !ok {
		return
	}

	userID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		writeErrorStatus(w, http.StatusNotFound, "user not found")
		return
	}

	if err := access.RemoveMember(principal, team, userID); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.teams.Update(ctx, team); err != nil {
		writeError(w, r, err)
		return
	}

	s.metrics.MembershipChangesTotal.Add(ctx, 1)

	writeJSON(w, http.StatusOK, toTeamResponse(team))
}
