package repository

import (
	"context"

	"github.com/spec-kit/auth-service/internal/domain"
)

// RefreshTokenRepository manages refresh token persistence.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	// Revoke flips revoked from false to true and reports whether this call
	// performed the transition.
	Revoke(ctx context.Context, token string) (bool, error)
}

type refreshTokenRepository struct {
	db DB
}

// NewRefreshTokenRepository constructs repository.
func NewRefreshTokenRepository(db DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (token, user_id, expires_at, revoked)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		token.Token,
		token.UserID,
		token.ExpiresAt,
		token.Revoked,
	).Scan(&token.ID, &token.CreatedAt)
	return mapWriteError(err)
}

func (r *refreshTokenRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.RefreshToken, error) {
	const query = `
        SELECT id, token, user_id, expires_at, revoked, created_at
        FROM refresh_tokens WHERE token=$1`
	var token domain.RefreshToken
	if err := r.db.QueryRow(ctx, query, tokenStr).Scan(
		&token.ID,
		&token.Token,
		&token.UserID,
		&token.ExpiresAt,
		&token.Revoked,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, tokenStr string) (bool, error) {
	const query = `
        UPDATE refresh_tokens SET revoked=TRUE
        WHERE token=$1 AND revoked=FALSE`
	cmd, err := r.db.Exec(ctx, query, tokenStr)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
