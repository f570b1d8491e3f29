package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// InvalidTokenMessage is the message of the 401 body for rejected tokens.
const InvalidTokenMessage = "Invalid or malformed JWT token"

const bearerPrefix = "Bearer "

// RejectionRecorder is notified when a request is stopped for a bad token.
// route is the registered route template, never the raw request path.
type RejectionRecorder interface {
	RecordTokenRejection(route string)
}

// AuthMiddleware turns the Authorization header into a Context.
type AuthMiddleware struct {
	tokens      *TokenManager
	publicPaths map[string]struct{}
	recorder    RejectionRecorder
}

// NewAuthMiddleware constructs middleware. Requests to publicPaths are never
// inspected.
func NewAuthMiddleware(tokens *TokenManager, publicPaths []string, recorder RejectionRecorder) *AuthMiddleware {
	set := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		if p = normalizePath(p); p != "" {
			set[p] = struct{}{}
		}
	}
	return &AuthMiddleware{tokens: tokens, publicPaths: set, recorder: recorder}
}

// Build resolves the context for one request. Only a present but invalid
// bearer token yields an error; a missing or non-bearer header is anonymous.
func (m *AuthMiddleware) Build(header, path string) (*Context, error) {
	if m.IsPublic(path) {
		return Anonymous(), nil
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return Anonymous(), nil
	}

	claims, err := m.tokens.Verify(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		return nil, err
	}
	return NewContext(claims.Subject, claims.Role, claims.Permissions), nil
}

// IsPublic reports whether path bypasses token inspection.
func (m *AuthMiddleware) IsPublic(path string) bool {
	_, ok := m.publicPaths[normalizePath(path)]
	return ok
}

// Handle attaches the Context and continues, or stops with 401.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	ac, err := m.Build(c.Get(fiber.HeaderAuthorization), c.Path())
	if err != nil {
		if !errors.Is(err, ErrInvalidToken) {
			return err
		}
		if m.recorder != nil {
			m.recorder.RecordTokenRejection(c.Route().Path)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  "ERROR",
			"message": InvalidTokenMessage,
			"data":    nil,
			"path":    c.Path(),
		})
	}

	c.Locals(contextKey, ac)
	return c.Next()
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
