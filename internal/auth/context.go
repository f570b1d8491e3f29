package auth

import "github.com/gofiber/fiber/v2"

const contextKey = "auth_context"

// RolePrefix is prepended to the role name to form its authority.
const RolePrefix = "ROLE_"

// Context is the per-request authentication result. A zero Context is
// unauthenticated.
type Context struct {
	Subject     string
	Authorities map[string]struct{}
}

// NewContext derives the authority set from a role and its permissions.
func NewContext(subject, role string, permissions []string) *Context {
	authorities := make(map[string]struct{}, len(permissions)+1)
	if role != "" {
		authorities[RolePrefix+role] = struct{}{}
	}
	for _, p := range permissions {
		if p == "" {
			continue
		}
		authorities[p] = struct{}{}
	}
	return &Context{Subject: subject, Authorities: authorities}
}

// Anonymous returns an unauthenticated context.
func Anonymous() *Context {
	return &Context{Authorities: map[string]struct{}{}}
}

// Authenticated reports whether a subject was resolved.
func (a *Context) Authenticated() bool {
	return a != nil && a.Subject != ""
}

// HasAuthority reports whether the context carries authority.
func (a *Context) HasAuthority(authority string) bool {
	if a == nil {
		return false
	}
	_, ok := a.Authorities[authority]
	return ok
}

// HasRole reports whether the context carries ROLE_<role>.
func (a *Context) HasRole(role string) bool {
	return a.HasAuthority(RolePrefix + role)
}

// AuthorityList returns the authorities in no particular order.
func (a *Context) AuthorityList() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.Authorities))
	for authority := range a.Authorities {
		out = append(out, authority)
	}
	return out
}

// FromContext retrieves the authentication context set by the middleware.
func FromContext(c *fiber.Ctx) *Context {
	if ac, ok := c.Locals(contextKey).(*Context); ok && ac != nil {
		return ac
	}
	return Anonymous()
}
