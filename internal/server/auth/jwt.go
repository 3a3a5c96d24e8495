// Package auth implements the JWT primitives of the token/session layer:
// HS256 access tokens carrying the user's role, and refresh tokens carrying
// a unique jti that is tracked in the revocation store.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"eventcal-backend/internal/common"
)

// Claims includes the registered claims plus the user's account role.
// The subject is the user id; for refresh tokens ID carries the jti.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// TokenConfig bundles the signing parameters shared by both token kinds.
type TokenConfig struct {
	Secret   []byte
	Validity time.Duration
	Issuer   string
	Audience string
}

// GenerateAccessToken mints a short-lived access token for the user.
func GenerateAccessToken(userID, role string, cfg TokenConfig) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Validity)),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
		},
		Role: role,
	})
	return token.SignedString(cfg.Secret)
}

// GenerateRefreshToken mints a long-lived refresh token with a fresh jti.
// Returns the signed token and its jti.
func GenerateRefreshToken(userID string, cfg TokenConfig) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Validity)),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
		},
	})
	signed, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// ParseToken validates signature, expiry, issuer, and audience, and returns
// the claims. Expired tokens yield common.ErrTokenExpired; any other defect
// yields common.ErrInvalidToken.
func ParseToken(tokenString string, cfg TokenConfig) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
