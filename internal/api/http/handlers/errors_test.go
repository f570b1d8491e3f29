package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

func TestServiceErrorStatus(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"invalid credentials": {service.ErrInvalidCredentials, http.StatusUnauthorized},
		"rate limited":        {service.ErrTooManyAttempts, http.StatusTooManyRequests},
		"duplicate":           {service.ErrDuplicateIdentity, http.StatusConflict},
		"refresh not found":   {&service.RefreshTokenError{Kind: service.RefreshTokenNotFound}, http.StatusUnauthorized},
		"refresh invalid":     {&service.RefreshTokenError{Kind: service.RefreshTokenInvalid, Reason: "expired"}, http.StatusUnauthorized},
		"user not found":      {service.ErrUserNotFound, http.StatusNotFound},
		"role not found":      {fmt.Errorf("%w: X", service.ErrRoleNotFound), http.StatusNotFound},
		"permission missing":  {&service.PermissionNotFoundError{Names: []string{"X"}}, http.StatusNotFound},
		"unexpected":          {errors.New("db down"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := apperrors.ToDomainError(serviceError(tc.err))
			assert.Equal(t, tc.status, got.HTTPStatus)
		})
	}
}

func TestServiceErrorNil(t *testing.T) {
	assert.NoError(t, serviceError(nil))
}
