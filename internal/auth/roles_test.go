package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

func guardedApp(t *testing.T, guard fiber.Handler) (*fiber.App, *TokenManager) {
	t.Helper()
	tm := newTestManager(t, nil)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var de *apperrors.DomainError
			if errors.As(err, &de) {
				return c.SendStatus(de.HTTPStatus)
			}
			return c.SendStatus(http.StatusInternalServerError)
		},
	})
	app.Use(NewAuthMiddleware(tm, nil, nil).Handle)
	app.Get("/guarded", guard, func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	return app, tm
}

func status(t *testing.T, app *fiber.App, header string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireAuthority(t *testing.T) {
	app, tm := guardedApp(t, RequireAuthority("USER_READ"))

	withPerm, _, err := tm.Issue("a@example.com", "USER", []string{"USER_READ"})
	require.NoError(t, err)
	withoutPerm, _, err := tm.Issue("b@example.com", "USER", []string{"USER_UPDATE"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, status(t, app, ""))
	assert.Equal(t, http.StatusOK, status(t, app, "Bearer "+withPerm))
	assert.Equal(t, http.StatusForbidden, status(t, app, "Bearer "+withoutPerm))
}

func TestRequireRole(t *testing.T) {
	app, tm := guardedApp(t, RequireRole("ADMIN"))

	admin, _, err := tm.Issue("root@example.com", "ADMIN", nil)
	require.NoError(t, err)
	user, _, err := tm.Issue("u@example.com", "USER", nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, status(t, app, "Bearer "+admin))
	assert.Equal(t, http.StatusForbidden, status(t, app, "Bearer "+user))
}

func TestRequireAuthenticated(t *testing.T) {
	app, tm := guardedApp(t, RequireAuthenticated())

	token, _, err := tm.Issue("u@example.com", "USER", nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, status(t, app, ""))
	assert.Equal(t, http.StatusOK, status(t, app, "Bearer "+token))
}

func TestNewContext_RoleAuthorityHasPrefix(t *testing.T) {
	ac := NewContext("a@example.com", "USER", []string{"USER_READ", ""})

	assert.True(t, ac.HasRole("USER"))
	assert.True(t, ac.HasAuthority("ROLE_USER"))
	assert.True(t, ac.HasAuthority("USER_READ"))
	assert.False(t, ac.HasAuthority("USER"))
	assert.Len(t, ac.Authorities, 2)
}
