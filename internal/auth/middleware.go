package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/tracker/internal/access"
	trackerhttp "github.com/wolfeidau/tracker/internal/http"
	"github.com/wolfeidau/tracker/internal/models"
)

type contextKey int

const principalContextKey contextKey = iota

// PrincipalFromContext extracts the authenticated principal from the
// request context. Returns false if no principal is present.
func PrincipalFromContext(ctx context.Context) (access.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(access.Principal)
	return principal, ok
}

// WithPrincipal returns a context carrying the given principal.
// Used by tests to call handlers without going through the middleware.
func WithPrincipal(ctx context.Context, p access.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// MembershipSource supplies the teams a user belongs to. Satisfied by
// store.TeamStore.
type MembershipSource interface {
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Team, error)
}

// Middleware returns an HTTP middleware that verifies the bearer token and
// places an access.Principal in the request context. The principal carries
// a snapshot of the user's team memberships so downstream authorization
// decisions need no further lookups.
func Middleware(signer *Signer, memberships MembershipSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientIP := trackerhttp.ClientIPFromContext(ctx)

			tokenString := extractBearerToken(r)
			if tokenString == "" {
				zerolog.Ctx(ctx).Warn().Str("client_ip", clientIP).Msg("Missing Authorization header")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			userID, claims, err := signer.VerifyToken(tokenString)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("client_ip", clientIP).Msg("Failed to verify JWT")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			teams, err := memberships.ListByMember(ctx, userID)
			if err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Str("user_id", userID.String()).Msg("Failed to load team memberships")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			teamIDs := make([]uuid.UUID, 0, len(teams))
			for _, team := range teams {
				teamIDs = append(teamIDs, team.TeamID)
			}

			principal := access.Principal{
				ID:      userID,
				Staff:   claims.Staff,
				TeamIDs: teamIDs,
			}

			ctx = context.WithValue(ctx, principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken extracts the JWT from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return parts[1]
}
