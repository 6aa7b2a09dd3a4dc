package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/wolfeidau/tracker/internal/models"
)

const (
	// TokenExpiry is the duration after which a token expires.
	TokenExpiry = 24 * time.Hour

	// Issuer identifies tokens issued by this service.
	Issuer = "tracker"
)

// Claims represents the JWT claims for an authenticated user.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Staff    bool   `json:"staff"`
}

// Signer creates and verifies HMAC-signed JWTs for API authentication.
type Signer struct {
	secret []byte
	expiry time.Duration
}

// NewSigner creates a new JWT signer with the given HMAC secret.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, expiry: TokenExpiry}
}

// SignToken creates a signed JWT for the given user.
func (s *Signer) SignToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   user.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		Username: user.Username,
		Staff:    user.Staff,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// VerifyToken verifies a token's signature, issuer, and expiry, and
// returns the user ID and claims it carries.
func (s *Signer) VerifyToken(tokenString string) (uuid.UUID, *Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return uuid.Nil, nil, errors.New("invalid claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("invalid subject UUID: %w", err)
	}

	return userID, claims, nil
}
