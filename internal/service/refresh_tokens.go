package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

// DefaultRefreshTokenTTL is the refresh token lifetime when none is configured.
const DefaultRefreshTokenTTL = 7 * 24 * time.Hour

// RefreshTokenManager issues, redeems and revokes opaque refresh tokens.
//
// Without rotation a token stays redeemable until it expires or is revoked,
// so concurrent redemptions of one token all succeed. With rotation each
// redemption revokes the presented token with a compare-and-set and hands
// out a replacement; only one of several concurrent redemptions wins.
type RefreshTokenManager struct {
	tokens   repository.RefreshTokenRepository
	users    repository.UserRepository
	codec    *auth.TokenManager
	ttl      time.Duration
	rotate   bool
	now      func() time.Time
	newToken func() string
}

// RefreshTokenOption customises a RefreshTokenManager.
type RefreshTokenOption func(*RefreshTokenManager)

// WithRefreshClock overrides the time source.
func WithRefreshClock(now func() time.Time) RefreshTokenOption {
	return func(m *RefreshTokenManager) { m.now = now }
}

// WithRotation enables single-use refresh tokens.
func WithRotation(enabled bool) RefreshTokenOption {
	return func(m *RefreshTokenManager) { m.rotate = enabled }
}

// NewRefreshTokenManager builds a manager.
func NewRefreshTokenManager(tokens repository.RefreshTokenRepository, users repository.UserRepository, codec *auth.TokenManager, ttl time.Duration, opts ...RefreshTokenOption) *RefreshTokenManager {
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}
	m := &RefreshTokenManager{
		tokens:   tokens,
		users:    users,
		codec:    codec,
		ttl:      ttl,
		now:      time.Now,
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IssueFor persists a new refresh token for user and pairs it with an access
// token built from the user's current role.
func (m *RefreshTokenManager) IssueFor(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	access, exp, err := m.accessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := m.create(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, AccessTokenExpiresAt: exp, RefreshToken: refresh.Token}, nil
}

// Redeem exchanges a refresh token for a fresh access token.
func (m *RefreshTokenManager) Redeem(ctx context.Context, tokenStr string) (*domain.TokenPair, error) {
	if tokenStr == "" {
		return nil, ErrRefreshTokenNotFound
	}
	stored, err := m.tokens.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}

	switch stored.State(m.now()) {
	case domain.RefreshTokenRevoked:
		return nil, &RefreshTokenError{Kind: RefreshTokenInvalid, Reason: "revoked"}
	case domain.RefreshTokenExpired:
		return nil, &RefreshTokenError{Kind: RefreshTokenInvalid, Reason: "expired"}
	}

	user, err := m.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &RefreshTokenError{Kind: RefreshTokenInvalid, Reason: "owner no longer exists"}
		}
		return nil, err
	}

	access, exp, err := m.accessToken(user)
	if err != nil {
		return nil, err
	}
	pair := &domain.TokenPair{AccessToken: access, AccessTokenExpiresAt: exp, RefreshToken: stored.Token}

	if m.rotate {
		flipped, err := m.tokens.Revoke(ctx, stored.Token)
		if err != nil {
			return nil, err
		}
		if !flipped {
			return nil, &RefreshTokenError{Kind: RefreshTokenInvalid, Reason: "revoked"}
		}
		next, err := m.create(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		pair.RefreshToken = next.Token
	}
	return pair, nil
}

// Revoke ends a refresh token's lifecycle. Revoking twice is not an error.
func (m *RefreshTokenManager) Revoke(ctx context.Context, tokenStr string) error {
	if _, err := m.tokens.GetByToken(ctx, tokenStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRefreshTokenNotFound
		}
		return err
	}
	_, err := m.tokens.Revoke(ctx, tokenStr)
	return err
}

func (m *RefreshTokenManager) create(ctx context.Context, userID int64) (*domain.RefreshToken, error) {
	token := &domain.RefreshToken{
		Token:     m.newToken(),
		UserID:    userID,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return token, nil
}

func (m *RefreshTokenManager) accessToken(user *domain.User) (string, time.Time, error) {
	return m.codec.Issue(user.Email, user.Role.Name, user.Role.Permissions)
}
