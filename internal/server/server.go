// Package server exposes the tracker's JSON REST API. Handlers are thin:
// they decode requests, call the access-control core, persist through the
// stores, and map sentinel errors onto HTTP status codes.
package server

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/tracker/internal/access"
	"github.com/wolfeidau/tracker/internal/auth"
	trackerhttp "github.com/wolfeidau/tracker/internal/http"
	"github.com/wolfeidau/tracker/internal/logger"
	"github.com/wolfeidau/tracker/internal/store"
	"github.com/wolfeidau/tracker/internal/telemetry"
)

// Server wires the stores, access rules, and token signer behind the REST
// handlers.
type Server struct {
	users      store.UserStore
	teams      store.TeamStore
	issues     store.IssueStore
	rules      *access.Rules
	membership *access.Membership
	signer     *auth.Signer
	metrics    *telemetry.Metrics
}

// New creates a server over the given stores.
func New(users store.UserStore, teams store.TeamStore, issues store.IssueStore, signer *auth.Signer) *Server {
	return &Server{
		users:      users,
		teams:      teams,
		issues:     issues,
		rules:      access.NewRules(users, teams),
		membership: access.NewMembership(users),
		signer:     signer,
		metrics:    telemetry.GetMetrics(),
	}
}

// Handler returns the HTTP handler for the server. Everything under /api/
// except register and login sits behind the bearer-token middleware.
func (s *Server) Handler(log zerolog.Logger, corsOrigins []string) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/issues", s.handleListIssues)
	api.HandleFunc("POST /api/issues", s.handleCreateIssue)
	api.HandleFunc("GET /api/issues/mine", s.handleMyIssues)
	api.HandleFunc("GET /api/issues/{id}", s.handleGetIssue)
	api.HandleFunc("PUT /api/issues/{id}", s.handleUpdateIssue)
	api.HandleFunc("DELETE /api/issues/{id}", s.handleDeleteIssue)
	api.HandleFunc("POST /api/issues/{id}/assign", s.handleAssignIssue)

	api.HandleFunc("GET /api/users", s.handleListUsers)

	api.HandleFunc("GET /api/teams", s.handleListTeams)
	api.HandleFunc("POST /api/teams", s.handleCreateTeam)
	api.HandleFunc("GET /api/teams/{id}", s.handleGetTeam)
	api.HandleFunc("PUT /api/teams/{id}", s.handleUpdateTeam)
	api.HandleFunc("DELETE /api/teams/{id}", s.handleDeleteTeam)
	api.HandleFunc("POST /api/teams/{id}/members", s.handleAddMember)
	api.HandleFunc("DELETE /api/teams/{id}/members/{userID}", s.handleRemoveMember)

	mux.Handle("/api/", auth.Middleware(s.signer, s.teams)(api))

	var handler http.Handler = mux
	handler = trackerhttp.ClientIPMiddleware()(handler)
	handler = logger.Requests(log)(handler)

	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	return c.Handler(handler)
}
