package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// RequireAuthenticated rejects anonymous callers.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !FromContext(c).Authenticated() {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the caller holds ROLE_<role>.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac := FromContext(c)
		if !ac.Authenticated() {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !ac.HasRole(role) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthority ensures the caller holds at least one of the authorities.
func RequireAuthority(authorities ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac := FromContext(c)
		if !ac.Authenticated() {
			return apperrors.NewUnauthorized("authentication required")
		}
		for _, authority := range authorities {
			if ac.HasAuthority(authority) {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("access denied")
	}
}
