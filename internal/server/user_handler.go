package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/tracker/internal/auth"
	"github.com/wolfeidau/tracker/internal/models"
	"github.com/wolfeidau/tracker/internal/store"
)

type registerResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeErrorStatus(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := time.Now()
	user := &models.User{
		UserID:       uuid.Must(uuid.NewV7()),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}

	token, err := s.signer.SignToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Debug().Str("user_id", user.UserID.String()).Msg("user registered")

	writeJSON(w, http.StatusCreated, registerResponse{Token: token, User: toUserResponse(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		// Unknown user and wrong password are indistinguishable on the wire.
		if errors.Is(err, store.ErrUserNotFound) {
			s.metrics.LoginFailuresTotal.Add(ctx, 1)
			writeErrorStatus(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, err)
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.metrics.LoginFailuresTotal.Add(ctx, 1)
		writeError(w, r, err)
		return
	}

	token, err := s.signer.SignToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.metrics.LoginsTotal.Add(ctx, 1)

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// handleListUsers lists every registered user except the caller. Used by
// clients to populate assignee pickers.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	users, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	result := make([]userResponse, 0, len(users))
	for _, user := range users {
		if user.UserID == principal.ID {
			continue
		}
		result = append(result, toUserResponse(user))
	}

	writeJSON(w, http.StatusOK, result)
}
