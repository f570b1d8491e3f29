package handlers

import (
	"errors"

	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// serviceError maps service failures onto HTTP-aware domain errors.
func serviceError(err error) error {
	var (
		rtErr   *service.RefreshTokenError
		permErr *service.PermissionNotFoundError
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperrors.NewUnauthorized(err.Error())
	case errors.Is(err, service.ErrTooManyAttempts):
		return apperrors.NewTooManyRequests(err.Error())
	case errors.Is(err, service.ErrDuplicateIdentity):
		return apperrors.NewConflict(err.Error(), nil)
	case errors.As(err, &rtErr):
		return apperrors.NewDomainError("REFRESH_TOKEN_"+string(rtErr.Kind), rtErr.Error(), 401, nil)
	case errors.Is(err, service.ErrUserNotFound):
		return apperrors.NewNotFound("user", nil)
	case errors.Is(err, service.ErrRoleNotFound):
		return apperrors.NewDomainError("NOT_FOUND", err.Error(), 404, nil)
	case errors.As(err, &permErr):
		return apperrors.NewDomainError("NOT_FOUND", permErr.Error(), 404, map[string]any{"permissions": permErr.Names})
	default:
		return apperrors.MapError(err)
	}
}
