package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/logging"
	"eventcal-backend/internal/server/auth"
	"eventcal-backend/internal/server/config"
	"eventcal-backend/internal/server/models"
	"eventcal-backend/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService handles registration, login, refresh-token rotation, logout,
// and identity resolution for authenticated requests. Refresh tokens carry a
// jti tracked in the revocation store; a jti absent from the store is
// considered revoked, so rotation and logout both work by deleting it.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	revocation  auth.RevocationStore
	accessCfg   auth.TokenConfig
	refreshCfg  auth.TokenConfig
	logger      logging.Logger
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, rev auth.RevocationStore, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		revocation:  rev,
		accessCfg: auth.TokenConfig{
			Secret:   []byte(cfg.AccessTokenSecret),
			Validity: cfg.AccessTokenValidityDuration,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		refreshCfg: auth.TokenConfig{
			Secret:   []byte(cfg.RefreshTokenSecret),
			Validity: cfg.RefreshTokenValidityDuration,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		logger: logger,
	}
}

// Register creates an active user account. Username and email must both be
// free; a clash with an existing account yields ErrConflict.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, common.ErrInvalidArgument
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.FindByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return nil, common.ErrConflict
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, mapError(ctx, s.logger, "auth.register", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, mapError(ctx, s.logger, "auth.register", err)
	}

	user, err := repo.Create(ctx, &models.User{
		Username:       username,
		Email:          email,
		HashedPassword: string(hash),
		IsActive:       true,
		Role:           models.UserRoleUser,
	})
	if err != nil {
		return nil, mapError(ctx, s.logger, "auth.register", err)
	}
	return user, nil
}

// Login verifies the credentials (login matches username or email) and mints
// a fresh token pair. Bad credentials and inactive accounts both yield
// ErrUnauthorized without distinguishing the cause.
func (s *AuthService) Login(ctx context.Context, login, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, mapError(ctx, s.logger, "auth.login", err)
	}
	if !user.IsActive {
		return nil, common.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return nil, common.ErrUnauthorized
	}

	return s.issueTokenPair(ctx, user)
}

// Refresh rotates a refresh token: the presented token must be valid and its
// jti still live in the revocation store. The old jti is deleted before the
// new pair is issued, so a replayed token fails with ErrRefreshTokenRevoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := auth.ParseToken(refreshToken, s.refreshCfg)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, common.ErrInvalidToken
	}

	live, err := s.revocation.RefreshJTIExists(ctx, claims.ID)
	if err != nil {
		return nil, mapError(ctx, s.logger, "auth.refresh", err)
	}
	if !live {
		return nil, common.ErrRefreshTokenRevoked
	}
	if err := s.revocation.DeleteRefreshJTI(ctx, claims.ID); err != nil {
		return nil, mapError(ctx, s.logger, "auth.refresh", err)
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, mapError(ctx, s.logger, "auth.refresh", err)
	}
	if !user.IsActive {
		return nil, common.ErrUnauthorized
	}

	return s.issueTokenPair(ctx, user)
}

// Logout invalidates the session: the refresh jti is deleted and the access
// token is placed on the revocation list for its remaining lifetime. Tokens
// that fail to parse are ignored; they cannot be used anyway.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if claims, err := auth.ParseToken(refreshToken, s.refreshCfg); err == nil && claims.ID != "" {
		if err := s.revocation.DeleteRefreshJTI(ctx, claims.ID); err != nil {
			return mapError(ctx, s.logger, "auth.logout", err)
		}
	}

	if claims, err := auth.ParseToken(accessToken, s.accessCfg); err == nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if err := s.revocation.RevokeAccessToken(ctx, accessToken, ttl); err != nil {
			return mapError(ctx, s.logger, "auth.logout", err)
		}
	}
	return nil
}

// CurrentUser resolves the access token to a live user account. Revoked
// tokens fail with ErrInvalidToken; inactive accounts with ErrUnauthorized.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	revoked, err := s.revocation.IsAccessTokenRevoked(ctx, accessToken)
	if err != nil {
		return nil, mapError(ctx, s.logger, "auth.current_user", err)
	}
	if revoked {
		return nil, common.ErrInvalidToken
	}

	claims, err := auth.ParseToken(accessToken, s.accessCfg)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, mapError(ctx, s.logger, "auth.current_user", err)
	}
	if !user.IsActive {
		return nil, common.ErrUnauthorized
	}
	return user, nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(user.ID, string(user.Role), s.accessCfg)
	if err != nil {
		return nil, mapError(ctx, s.logger, "auth.issue_tokens", err)
	}
	refresh, jti, err := auth.GenerateRefreshToken(user.ID, s.refreshCfg)
	if err != nil {
		return nil, mapError(ctx, s.logger, "auth.issue_tokens", err)
	}
	if err := s.revocation.PutRefreshJTI(ctx, jti, user.ID, s.refreshCfg.Validity); err != nil {
		return nil, mapError(ctx, s.logger, "auth.issue_tokens", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
