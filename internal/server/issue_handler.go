package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/tracker/internal/access"
	trackerhttp "github.com/wolfeidau/tracker/internal/http"
	"github.com/wolfeidau/tracker/internal/models"
)

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	issues, err := s.issues.List(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	teams, err := s.teams.List(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	visible := access.VisibleIssues(principal, issues, teams, r.URL.Query().Get("status"))

	writeJSON(w, http.StatusOK, toIssueResponses(visible))
}

// handleMyIssues lists the caller's personal slice: issues they own,
// issues assigned to them directly, and issues assigned to one of their
// teams, with the same status filter as the main listing.
func (s *Server) handleMyIssues(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	issues, err := s.issues.List(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	teams, err := s.teams.List(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Staff get no bypass here: "mine" stays personal even for staff.
	scoped := principal
	scoped.Staff = false
	mine := access.VisibleIssues(scoped, issues, teams, r.URL.Query().Get("status"))

	writeJSON(w, http.StatusOK, toIssueResponses(mine))
}

func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req createIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		writeErrorStatus(w, http.StatusBadRequest, "title is required")
		return
	}

	status := models.IssueStatusOpen
	if req.Status != "" {
		parsed, ok := models.ParseIssueStatus(req.Status)
		if !ok {
			writeErrorStatus(w, http.StatusBadRequest, "invalid status")
			return
		}
		status = parsed
	}

	now := time.Now()
	issue := &models.Issue{
		IssueID:     uuid.Must(uuid.NewV7()),
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		OwnerID:     principal.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		writeError(w, r, err)
		return
	}

	s.metrics.IssuesCreatedTotal.Add(ctx, 1)

	writeJSON(w, http.StatusCreated, toIssueResponse(issue))
}

// loadVisibleIssue fetches the issue and applies the read predicate.
// Invisible issues are reported as not found rather than forbidden, so the
// API does not leak issue existence.
func (s *Server) loadVisibleIssue(w http.ResponseWriter, r *http.Request, principal access.Principal) (*models.Issue, bool) {
	issueID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorStatus(w, http.StatusNotFound, "issue not found")
		return nil, false
	}

	issue, err := s.issues.Get(r.Context(), issueID)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	if !access.CanViewIssue(principal, issue) {
		writeErrorStatus(w, http.StatusNotFound, "issue not found")
		return nil, false
	}

	return issue, true
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	issue, ok := s.loadVisibleIssue(w, r, principal)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toIssueResponse(issue))
}

func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	issue, ok := s.loadVisibleIssue(w, r, principal)
	if !ok {
		return
	}

	var req updateIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	changes := access.IssueChanges{
		Title:       req.Title,
		Description: req.Description,
		User:        req.AssignedToUser.target(),
		Team:        req.AssignedToTeam.target(),
	}
	if req.Status != nil {
		parsed, ok := models.ParseIssueStatus(*req.Status)
		if !ok {
			writeErrorStatus(w, http.StatusBadRequest, "invalid status")
			return
		}
		changes.Status = &parsed
	}

	outcome, err := s.rules.ApplyPartialUpdate(ctx, principal, issue, changes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.issues.Update(ctx, issue); err != nil {
		writeError(w, r, err)
		return
	}

	if outcome == access.UpdateAssignmentOnly {
		zerolog.Ctx(ctx).Debug().
			Str("issue_id", issue.IssueID.String()).
			Str("user_id", principal.ID.String()).
			Msg("partial update applied assignment only")
	}

	writeJSON(w, http.StatusOK, toIssueResponse(issue))
}

func (s *Server) handleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	issue, ok := s.loadVisibleIssue(w, r, principal)
	if !ok {
		return
	}

	if issue.OwnerID != principal.ID && !principal.Staff {
		s.metrics.AuthDenialsTotal.Add(ctx, 1)
		zerolog.Ctx(ctx).Warn().
			Str("client_ip", trackerhttp.ClientIPFromContext(ctx)).
			Str("user_id", principal.ID.String()).
			Str("issue_id", issue.IssueID.String()).
			Msg("issue delete denied")
		writeErrorStatus(w, http.StatusForbidden, "only the owner may delete an issue")
		return
	}

	if err := s.issues.Delete(ctx, issue.IssueID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignIssue(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	issue, ok := s.loadVisibleIssue(w, r, principal)
	if !ok {
		return
	}

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.rules.ApplyAssignment(ctx, principal, issue, access.AssignmentRequest{
		User: req.AssignedToUser.target(),
		Team: req.AssignedToTeam.target(),
	})
	if err != nil {
		s.metrics.AssignmentErrors.Add(ctx, 1)
		writeError(w, r, err)
		return
	}

	if err := s.issues.Update(ctx, issue); err != nil {
		writeError(w, r, err)
		return
	}

	s.metrics.AssignmentsTotal.Add(ctx, 1)

	writeJSON(w, http.StatusOK, toIssueResponse(issue))
}
