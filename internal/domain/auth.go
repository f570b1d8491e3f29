package domain

import "time"

// RefreshToken is a durable opaque renewal credential.
type RefreshToken struct {
	ID        int64
	Token     string
	UserID    int64
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// RefreshTokenState is the lifecycle position of a refresh token.
type RefreshTokenState string

const (
	RefreshTokenActive  RefreshTokenState = "ACTIVE"
	RefreshTokenExpired RefreshTokenState = "EXPIRED"
	RefreshTokenRevoked RefreshTokenState = "REVOKED"
)

// State reports the token's state at now. Revocation wins over expiry.
func (t *RefreshToken) State(now time.Time) RefreshTokenState {
	switch {
	case t.Revoked:
		return RefreshTokenRevoked
	case !now.Before(t.ExpiresAt):
		return RefreshTokenExpired
	default:
		return RefreshTokenActive
	}
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken          string
	AccessTokenExpiresAt time.Time
	RefreshToken         string
}
