package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/tracker/internal/auth"
	"github.com/wolfeidau/tracker/internal/models"
	"github.com/wolfeidau/tracker/internal/store/memory"
)

type testEnv struct {
	handler http.Handler
	users   *memory.UserStore
	teams   *memory.TeamStore
	issues  *memory.IssueStore
	signer  *auth.Signer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLogger(t, zerolog.Nop())
}

func newTestEnvWithLogger(t *testing.T, log zerolog.Logger) *testEnv {
	t.Helper()

	issues := memory.NewIssueStore()
	teams := memory.NewTeamStore(issues)
	users := memory.NewUserStore()
	signer := auth.NewSigner([]byte("test-secret"))

	srv := New(users, teams, issues, signer)

	return &testEnv{
		handler: srv.Handler(log, []string{"*"}),
		users:   users,
		teams:   teams,
		issues:  issues,
		signer:  signer,
	}
}

// createUser stores a user directly and mints a token for it. Registration
// via the API cannot create staff users, so tests go through the store.
func (e *testEnv) createUser(t *testing.T, username string, staff bool) (*models.User, string) {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	now := time.Now()
	user := &models.User{
		UserID:       uuid.Must(uuid.NewV7()),
		Username:     username,
		Email:        username + "@example.com",
		Staff:        staff,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.users.Create(context.Background(), user))

	token, err := e.signer.SignToken(user)
	require.NoError(t, err)

	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	reg := decodeBody[registerResponse](t, rec)
	require.NotEmpty(t, reg.Token)
	require.Equal(t, "alice", reg.User.Username)
	require.False(t, reg.User.Staff)

	t.Run("duplicate username", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/register", "", map[string]string{
			"username": "alice",
			"password": "another",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("login", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/login", "", map[string]string{
			"username": "alice",
			"password": "secret123",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotEmpty(t, decodeBody[tokenResponse](t, rec).Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/login", "", map[string]string{
			"username": "alice",
			"password": "nope",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/login", "", map[string]string{
			"username": "mallory",
			"password": "secret123",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/issues", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/issues", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice", false)

	rec := env.do(t, http.MethodPost, "/api/issues", token, map[string]string{
		"title":       "Fix login redirect",
		"description": "Redirect loops on expired sessions.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeBody[issueResponse](t, rec)
	require.Equal(t, "OPEN", created.Status)
	require.Nil(t, created.AssignedToUser)
	require.Nil(t, created.AssignedToTeam)

	t.Run("get", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/issues/"+created.ID.String(), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, created.ID, decodeBody[issueResponse](t, rec).ID)
	})

	t.Run("list with status filter", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/issues?status=open", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, decodeBody[[]issueResponse](t, rec), 1)

		rec = env.do(t, http.MethodGet, "/api/issues?status=closed", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, decodeBody[[]issueResponse](t, rec))
	})

	t.Run("owner update", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/api/issues/"+created.ID.String(), token, map[string]string{
			"title":  "Fix login redirect loop",
			"status": "in_progress",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		updated := decodeBody[issueResponse](t, rec)
		require.Equal(t, "Fix login redirect loop", updated.Title)
		require.Equal(t, "IN_PROGRESS", updated.Status)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/api/issues/"+created.ID.String(), token, map[string]string{
			"status": "wontfix",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/issues/"+created.ID.String(), token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/issues/"+created.ID.String(), token, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestIssueVisibility(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.createUser(t, "alice", false)
	_, bobToken := env.createUser(t, "bob", false)
	_, staffToken := env.createUser(t, "root", true)

	rec := env.do(t, http.MethodPost, "/api/issues", aliceToken, map[string]string{
		"title": "Private to alice",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	issue := decodeBody[issueResponse](t, rec)

	t.Run("owner sees it", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/issues/"+issue.ID.String(), aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("stranger reads not found", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/issues/"+issue.ID.String(), bobToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/issues", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, decodeBody[[]issueResponse](t, rec))
	})

	t.Run("staff sees it", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/issues/"+issue.ID.String(), staffToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAssignEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.createUser(t, "alice", false)
	bob, _ := env.createUser(t, "bob", false)

	createIssue := func(t *testing.T) issueResponse {
		t.Helper()
		rec := env.do(t, http.MethodPost, "/api/issues", aliceToken, map[string]string{"title": "Needs an owner"})
		require.Equal(t, http.StatusCreated, rec.Code)
		return decodeBody[issueResponse](t, rec)
	}

	t.Run("assign to user", func(t *testing.T) {
		issue := createIssue(t)
		rec := env.do(t, http.MethodPost, "/api/issues/"+issue.ID.String()+"/assign", aliceToken, map[string]any{
			"assigned_to_user": bob.UserID.String(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		assigned := decodeBody[issueResponse](t, rec)
		require.NotNil(t, assigned.AssignedToUser)
		require.Equal(t, bob.UserID, *assigned.AssignedToUser)
	})

	t.Run("both slots rejected", func(t *testing.T) {
		issue := createIssue(t)
		rec := env.do(t, http.MethodPost, "/api/issues/"+issue.ID.String()+"/assign", aliceToken, map[string]any{
			"assigned_to_user": bob.UserID.String(),
			"assigned_to_team": uuid.Must(uuid.NewV7()).String(),
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown assignee", func(t *testing.T) {
		issue := createIssue(t)
		rec := env.do(t, http.MethodPost, "/api/issues/"+issue.ID.String()+"/assign", aliceToken, map[string]any{
			"assigned_to_user": uuid.Must(uuid.NewV7()).String(),
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("team the owner is not in", func(t *testing.T) {
		_, bobToken := env.createUser(t, "bob2", false)
		rec := env.do(t, http.MethodPost, "/api/teams", bobToken, map[string]string{"name": "bobs-team"})
		require.Equal(t, http.StatusCreated, rec.Code)
		team := decodeBody[teamResponse](t, rec)

		issue := createIssue(t)
		rec = env.do(t, http.MethodPost, "/api/issues/"+issue.ID.String()+"/assign", aliceToken, map[string]any{
			"assigned_to_team": team.ID.String(),
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("explicit nulls unassign", func(t *testing.T) {
		issue := createIssue(t)
		rec := env.do(t, http.MethodPost, "/api/issues/"+issue.ID.String()+"/assign", aliceToken, map[string]any{
			"assigned_to_user": bob.UserID.String(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodPost, "/api/issues/"+issue.ID.String()+"/assign", aliceToken, map[string]any{
			"assigned_to_user": nil,
			"assigned_to_team": nil,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		cleared := decodeBody[issueResponse](t, rec)
		require.Nil(t, cleared.AssignedToUser)
		require.Nil(t, cleared.AssignedToTeam)
	})

	t.Run("stranger denied", func(t *testing.T) {
		_, malloryToken := env.createUser(t, "mallory", false)
		issue := createIssue(t)
		rec := env.do(t, http.MethodPost, "/api/issues/"+issue.ID.String()+"/assign", malloryToken, map[string]any{
			"assigned_to_user": bob.UserID.String(),
		})
		// Invisible to the stranger, so the route reads as not found.
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPartialUpdateByAssignee(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.createUser(t, "alice", false)
	bob, bobToken := env.createUser(t, "bob", false)

	rec := env.do(t, http.MethodPost, "/api/issues", aliceToken, map[string]string{"title": "Handed to bob"})
	require.Equal(t, http.StatusCreated, rec.Code)
	issue := decodeBody[issueResponse](t, rec)

	rec = env.do(t, http.MethodPost, "/api/issues/"+issue.ID.String()+"/assign", aliceToken, map[string]any{
		"assigned_to_user": bob.UserID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The assignee may change the assignment slot but not the other fields.
	rec = env.do(t, http.MethodPut, "/api/issues/"+issue.ID.String(), bobToken, map[string]any{
		"title":            "Renamed by bob",
		"assigned_to_user": nil,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decodeBody[issueResponse](t, rec)
	require.Equal(t, "Handed to bob", updated.Title)
	require.Nil(t, updated.AssignedToUser)
}

func TestTeamEndpoints(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.createUser(t, "alice", false)
	bob, bobToken := env.createUser(t, "bob", false)

	rec := env.do(t, http.MethodPost, "/api/teams", aliceToken, map[string]string{
		"name":        "platform",
		"description": "Platform engineering",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	team := decodeBody[teamResponse](t, rec)
	require.Equal(t, alice.UserID, team.OwnerID)
	require.Contains(t, team.Members, alice.UserID)

	teamPath := "/api/teams/" + team.ID.String()

	t.Run("non-member reads not found", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, teamPath, bobToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/teams", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, decodeBody[[]teamResponse](t, rec))
	})

	t.Run("add member", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, teamPath+"/members", aliceToken, map[string]string{
			"user_id": bob.UserID.String(),
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, decodeBody[teamResponse](t, rec).Members, bob.UserID)

		// Idempotent on repeat.
		rec = env.do(t, http.MethodPost, teamPath+"/members", aliceToken, map[string]string{
			"user_id": bob.UserID.String(),
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, decodeBody[teamResponse](t, rec).Members, 2)
	})

	t.Run("member may read but not manage", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, teamPath, bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodPut, teamPath, bobToken, map[string]string{"name": "bobs-now"})
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(t, http.MethodDelete, teamPath, bobToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner cannot be removed", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, fmt.Sprintf("%s/members/%s", teamPath, alice.UserID), aliceToken, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("replace members forces owner back in", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, teamPath, aliceToken, map[string]any{
			"members": []string{bob.UserID.String()},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		replaced := decodeBody[teamResponse](t, rec)
		require.Contains(t, replaced.Members, alice.UserID)
		require.Contains(t, replaced.Members, bob.UserID)
	})

	t.Run("remove member", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, fmt.Sprintf("%s/members/%s", teamPath, bob.UserID), aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotContains(t, decodeBody[teamResponse](t, rec).Members, bob.UserID)
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, teamPath, aliceToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(t, http.MethodGet, teamPath, aliceToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMyIssues(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.createUser(t, "alice", false)
	bob, bobToken := env.createUser(t, "bob", false)

	rec := env.do(t, http.MethodPost, "/api/issues", aliceToken, map[string]string{"title": "For bob"})
	require.Equal(t, http.StatusCreated, rec.Code)
	issue := decodeBody[issueResponse](t, rec)

	t.Run("owned issue counts as mine", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/issues/mine", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		mine := decodeBody[[]issueResponse](t, rec)
		require.Len(t, mine, 1)
		require.Equal(t, issue.ID, mine[0].ID)
	})

	t.Run("nothing for an uninvolved user", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/issues/mine", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, decodeBody[[]issueResponse](t, rec))
	})

	t.Run("assigned issue counts as mine", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/issues/"+issue.ID.String()+"/assign", aliceToken, map[string]any{
			"assigned_to_user": bob.UserID.String(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/issues/mine", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		mine := decodeBody[[]issueResponse](t, rec)
		require.Len(t, mine, 1)
		require.Equal(t, issue.ID, mine[0].ID)
	})

	t.Run("status filter applies", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/issues/mine?status=open", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, decodeBody[[]issueResponse](t, rec), 1)

		rec = env.do(t, http.MethodGet, "/api/issues/mine?status=closed", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, decodeBody[[]issueResponse](t, rec))
	})
}

func TestDenialAuditLogsClientIP(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnvWithLogger(t, zerolog.New(&buf))

	t.Run("missing token", func(t *testing.T) {
		buf.Reset()

		req := httptest.NewRequest(http.MethodGet, "/api/issues", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, buf.String(), `"client_ip":"203.0.113.9"`)
	})

	t.Run("team update denied", func(t *testing.T) {
		_, aliceToken := env.createUser(t, "alice", false)
		bob, bobToken := env.createUser(t, "bob", false)

		rec := env.do(t, http.MethodPost, "/api/teams", aliceToken, map[string]string{"name": "platform"})
		require.Equal(t, http.StatusCreated, rec.Code)
		team := decodeBody[teamResponse](t, rec)

		rec = env.do(t, http.MethodPost, "/api/teams/"+team.ID.String()+"/members", aliceToken, map[string]string{
			"user_id": bob.UserID.String(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		buf.Reset()

		var body bytes.Buffer
		require.NoError(t, json.NewEncoder(&body).Encode(map[string]string{"name": "bobs-now"}))
		req := httptest.NewRequest(http.MethodPut, "/api/teams/"+team.ID.String(), &body)
		req.Header.Set("Authorization", "Bearer "+bobToken)
		req.Header.Set("X-Forwarded-For", "198.51.100.7")
		recorder := httptest.NewRecorder()
		env.handler.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusForbidden, recorder.Code)
		require.Contains(t, buf.String(), "team update denied")
		require.Contains(t, buf.String(), `"client_ip":"198.51.100.7"`)
		require.Contains(t, buf.String(), bob.UserID.String())
	})
}

func TestListUsersExcludesCaller(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.createUser(t, "alice", false)
	bob, _ := env.createUser(t, "bob", false)

	rec := env.do(t, http.MethodGet, "/api/users", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	users := decodeBody[[]userResponse](t, rec)
	require.Len(t, users, 1)
	require.Equal(t, bob.UserID, users[0].ID)
}
