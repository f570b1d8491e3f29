package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/ratelimit"
	"github.com/spec-kit/auth-service/internal/repository/repotest"
	"github.com/spec-kit/auth-service/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Path    string          `json:"path"`
}

type testServer struct {
	app    *fiber.App
	auth   *service.AuthService
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:             testSecret,
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLHours:  168,
		BcryptCost:            bcrypt.MinCost,
		PublicPaths:           []string{"/api/v1/auth/login", "/api/v1/auth/register", "/api/v1/auth/refresh-token"},
	}}
	store := repotest.NewStore()
	users, roles, refresh := store.Repos()
	metrics := observability.NewMetrics()

	authService, err := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:         users,
		RoleRepo:         roles,
		RefreshTokenRepo: refresh,
		Limiter:          ratelimit.NewMemoryLimiter(ratelimit.Config{}),
		Metrics:          metrics,
	})
	require.NoError(t, err)
	userService := service.NewUserService(users, roles, nil)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, MiddlewareConfig{})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("auth-service", "test", nil),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Admin:          handlers.NewAdminHandler(userService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), cfg.Auth.PublicPaths, metrics),
		Metrics:        metrics,
	})
	return &testServer{app: app, auth: authService, tokens: authService.TokenManager()}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	token, _, err := s.tokens.Issue("root@example.com", domain.RoleAdmin, []string{
		domain.PermissionUserRead, domain.PermissionUserUpdate,
		domain.PermissionAdminReadUsers, domain.PermissionAdminManageUsers,
	})
	require.NoError(t, err)
	return token
}

func (s *testServer) login(t *testing.T, email, password string) (string, string) {
	t.Helper()
	status, env := s.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": email, "password": password})
	require.Equal(t, fiber.StatusOK, status, env.Message)
	var tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	return tokens.AccessToken, tokens.RefreshToken
}

func registerBody(email string) fiber.Map {
	return fiber.Map{"name": "Alice", "email": email, "password": "secret1"}
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodPost, "/api/v1/auth/register", "", registerBody("alice@example.com"))
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "SUCCESS", env.Status)

	access, _ := s.login(t, "alice@example.com", "secret1")

	status, env = s.do(t, fiber.MethodGet, "/api/v1/user/profile", access, nil)
	require.Equal(t, fiber.StatusOK, status)
	var profile struct {
		Email string `json:"email"`
		Role  struct {
			Name string `json:"name"`
		} `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, domain.RoleUser, profile.Role.Name)

	status, _ = s.do(t, fiber.MethodPut, "/api/v1/user/update", access, fiber.Map{"name": "Alice B"})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestProtectedRouteWithoutTokenIsUnauthorized(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodGet, "/api/v1/user/profile", "", nil)

	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "ERROR", env.Status)
	assert.Equal(t, "/api/v1/user/profile", env.Path)
}

func TestMalformedTokenStopsRequest(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodGet, "/api/v1/user/profile", "not-a-jwt", nil)

	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, auth.InvalidTokenMessage, env.Message)
	assert.Equal(t, "null", string(env.Data))
}

func TestPublicPathIgnoresGarbageToken(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodPost, "/api/v1/auth/register", "garbage", registerBody("bob@example.com"))

	assert.Equal(t, fiber.StatusCreated, status, env.Message)
}

func TestLoginFailuresMapToStatusCodes(t *testing.T) {
	s := newTestServer(t)
	s.do(t, fiber.MethodPost, "/api/v1/auth/register", "", registerBody("alice@example.com"))

	status, env := s.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, service.ErrInvalidCredentials.Error(), env.Message)

	for i := 0; i < 4; i++ {
		s.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "alice@example.com", "password": "wrong"})
	}
	status, _ = s.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "alice@example.com", "password": "secret1"})
	assert.Equal(t, fiber.StatusTooManyRequests, status)
}

func TestRegisterValidationAndConflict(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodPost, "/api/v1/auth/register", "", fiber.Map{"name": "X", "email": "nope", "password": "secret1"})
	require.Equal(t, fiber.StatusBadRequest, status)
	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.Contains(t, details, "email")

	s.do(t, fiber.MethodPost, "/api/v1/auth/register", "", registerBody("alice@example.com"))
	status, _ = s.do(t, fiber.MethodPost, "/api/v1/auth/register", "", registerBody("alice@example.com"))
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	s.do(t, fiber.MethodPost, "/api/v1/auth/register", "", registerBody("alice@example.com"))
	access, refresh := s.login(t, "alice@example.com", "secret1")

	status, env := s.do(t, fiber.MethodPost, "/api/v1/auth/refresh-token", "", fiber.Map{"refreshToken": refresh})
	require.Equal(t, fiber.StatusOK, status)
	var tokens struct {
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	assert.Equal(t, refresh, tokens.RefreshToken)

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/auth/refresh-token", "", fiber.Map{"refreshToken": "unknown"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/auth/logout", access, fiber.Map{"refreshToken": refresh})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/auth/refresh-token", "", fiber.Map{"refreshToken": refresh})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminRoutesRequireAuthorities(t *testing.T) {
	s := newTestServer(t)
	s.do(t, fiber.MethodPost, "/api/v1/auth/register", "", registerBody("alice@example.com"))
	userAccess, _ := s.login(t, "alice@example.com", "secret1")

	status, _ := s.do(t, fiber.MethodGet, "/api/v1/admin/users", userAccess, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/auth/register-admin", userAccess, registerBody("eve@example.com"))
	assert.Equal(t, fiber.StatusForbidden, status)

	admin := s.adminToken(t)
	status, env := s.do(t, fiber.MethodGet, "/api/v1/admin/users?page=0&size=5", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	var page struct {
		Content       []json.RawMessage `json:"content"`
		TotalElements int64             `json:"totalElements"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.EqualValues(t, 1, page.TotalElements)

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/auth/register-admin", admin, registerBody("ops@example.com"))
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestAdminRoutesRequireAdminRoleEvenWithAdminPermissions(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(t, fiber.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"name":        "Support",
		"email":       "support@example.com",
		"password":    "secret1",
		"role":        "support",
		"permissions": []string{domain.PermissionAdminReadUsers, domain.PermissionAdminManageUsers},
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	access, _ := s.login(t, "support@example.com", "secret1")

	status, _ = s.do(t, fiber.MethodGet, "/api/v1/admin/users", access, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.do(t, fiber.MethodDelete, "/api/v1/admin/users/1", access, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.do(t, fiber.MethodPut, "/api/v1/admin/roles/USER/permissions", access, fiber.Map{"permissions": []string{}})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestAdminUserLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	_, env := s.do(t, fiber.MethodPost, "/api/v1/auth/register", "", registerBody("alice@example.com"))
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	path := "/api/v1/admin/users/" + jsonNumber(created.ID)

	status, _ := s.do(t, fiber.MethodPut, path, admin, fiber.Map{"roleName": "admin"})
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, fiber.MethodDelete, path, admin, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "alice@example.com", "password": "secret1"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, fiber.MethodPost, path+"/restore", admin, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, fiber.MethodDelete, "/api/v1/admin/users/abc", admin, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSetRolePermissions(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	status, env := s.do(t, fiber.MethodPut, "/api/v1/admin/roles/user/permissions", admin, fiber.Map{"permissions": []string{"user_read"}})
	require.Equal(t, fiber.StatusOK, status, env.Message)

	status, _ = s.do(t, fiber.MethodPut, "/api/v1/admin/roles/USER/permissions", admin, fiber.Map{"permissions": []string{"NOPE"}})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestUnknownRouteRendersEnvelope(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodGet, "/api/v1/nowhere", "", nil)

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "ERROR", env.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, fiber.MethodGet, "/api/v1/user/profile", "not-a-jwt", nil)

	resp, err := s.app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "auth_token_rejections_total")
}

func TestMetricsEndpointSurvivesInvalidTokensOnManyPaths(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 20; i++ {
		status, _ := s.do(t, fiber.MethodGet, fmt.Sprintf("/api/v1/user/x%02d", i), "garbage", nil)
		require.Equal(t, fiber.StatusUnauthorized, status)
	}

	resp, err := s.app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `auth_token_rejections_total{route="/api/v1"} 20`)
	assert.NotContains(t, string(body), "/api/v1/user/x")
}

func jsonNumber(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}
