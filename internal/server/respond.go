package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/tracker/internal/access"
	"github.com/wolfeidau/tracker/internal/auth"
	"github.com/wolfeidau/tracker/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeError maps core and store sentinel errors onto HTTP status codes.
// Anything unrecognised is a 500, logged with the request-scoped logger.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, access.ErrPermissionDenied),
		errors.Is(err, access.ErrNotTeamMember):
		writeErrorStatus(w, http.StatusForbidden, err.Error())

	case errors.Is(err, access.ErrUserNotFound),
		errors.Is(err, access.ErrTeamNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrTeamNotFound),
		errors.Is(err, store.ErrIssueNotFound):
		writeErrorStatus(w, http.StatusNotFound, err.Error())

	case errors.Is(err, access.ErrConflictingAssignment),
		errors.Is(err, access.ErrCannotRemoveOwner):
		writeErrorStatus(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, store.ErrUserAlreadyExists),
		errors.Is(err, store.ErrTeamAlreadyExists):
		writeErrorStatus(w, http.StatusConflict, err.Error())

	case errors.Is(err, auth.ErrInvalidCredentials):
		writeErrorStatus(w, http.StatusUnauthorized, "invalid credentials")

	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// requirePrincipal pulls the authenticated principal out of the context.
// The auth middleware guarantees it is present on every protected route.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (access.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
	}
	return principal, ok
}
