package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	conflict := NewConflict("email already registered", nil)

	assert.Nil(t, ToDomainError(nil))
	assert.Same(t, conflict, ToDomainError(fmt.Errorf("wrapped: %w", conflict)))

	fromFiber := ToDomainError(fiber.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, fromFiber.HTTPStatus)

	fromPgx := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, http.StatusNotFound, fromPgx.HTTPStatus)

	cause := errors.New("connection reset")
	internal := ToDomainError(cause)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
	assert.Equal(t, "internal server error", internal.Message)
	assert.ErrorIs(t, internal, cause)
}

func TestConstructorStatuses(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:      NewValidationError("bad", nil),
		http.StatusUnauthorized:    NewUnauthorized("who"),
		http.StatusForbidden:       NewForbidden("no"),
		http.StatusNotFound:        NewNotFound("user", nil),
		http.StatusConflict:        NewConflict("dup", nil),
		http.StatusTooManyRequests: NewTooManyRequests("slow down"),
	}
	for status, err := range cases {
		assert.Equal(t, status, ToDomainError(err).HTTPStatus)
	}
	assert.Equal(t, "user not found", NewNotFound("user", nil).Error())
}
