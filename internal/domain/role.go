package domain

import (
	"sort"
	"strings"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Permission names seeded by the initial migration.
const (
	PermissionUserRead         = "USER_READ"
	PermissionUserUpdate       = "USER_UPDATE"
	PermissionAdminReadUsers   = "ADMIN_READ_USERS"
	PermissionAdminManageUsers = "ADMIN_MANAGE_USERS"
)

// Role is a named bundle of permission names. Permissions is a value
// snapshot: callers replace it, they never mutate a shared slice.
type Role struct {
	ID          int64
	Name        string
	Permissions []string
}

// NormalizeName upper-cases and trims role and permission names.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// WithPermissions returns a copy of the role whose permission set is the
// union of the current set and extra.
func (r Role) WithPermissions(extra ...string) Role {
	seen := make(map[string]struct{}, len(r.Permissions)+len(extra))
	merged := make([]string, 0, len(r.Permissions)+len(extra))
	for _, p := range append(append([]string{}, r.Permissions...), extra...) {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		merged = append(merged, p)
	}
	sort.Strings(merged)
	r.Permissions = merged
	return r
}
