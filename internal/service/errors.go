package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many login attempts, please try again later")
	ErrDuplicateIdentity  = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrRoleNotFound       = errors.New("role not found")
)

// RefreshTokenErrorKind separates unknown tokens from unusable ones.
type RefreshTokenErrorKind string

const (
	RefreshTokenNotFound RefreshTokenErrorKind = "NOT_FOUND"
	RefreshTokenInvalid  RefreshTokenErrorKind = "INVALID"
)

// RefreshTokenError is returned by refresh token redemption.
type RefreshTokenError struct {
	Kind   RefreshTokenErrorKind
	Reason string
}

var (
	ErrRefreshTokenNotFound = &RefreshTokenError{Kind: RefreshTokenNotFound}
	ErrRefreshTokenInvalid  = &RefreshTokenError{Kind: RefreshTokenInvalid}
)

func (e *RefreshTokenError) Error() string {
	switch e.Kind {
	case RefreshTokenNotFound:
		return "invalid refresh token"
	default:
		if e.Reason != "" {
			return "refresh token " + e.Reason
		}
		return "refresh token expired or revoked"
	}
}

// Is matches any RefreshTokenError of the same kind.
func (e *RefreshTokenError) Is(target error) bool {
	t, ok := target.(*RefreshTokenError)
	return ok && t.Kind == e.Kind
}

// PermissionNotFoundError lists permission names with no stored row.
type PermissionNotFoundError struct {
	Names []string
}

func (e *PermissionNotFoundError) Error() string {
	return fmt.Sprintf("permission not found: %s", strings.Join(e.Names, ", "))
}
