// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

// Store backs the in-memory repositories. Users reference roles by id so
// that role changes are visible on the next lookup, as with the real schema.
type Store struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]*domain.User
	roles       map[string]*domain.Role
	permissions map[string]struct{}
	tokens      map[string]*domain.RefreshToken
}

// NewStore returns a store seeded with the USER and ADMIN roles.
func NewStore() *Store {
	s := &Store{
		users:       map[int64]*domain.User{},
		roles:       map[string]*domain.Role{},
		permissions: map[string]struct{}{},
		tokens:      map[string]*domain.RefreshToken{},
	}
	s.seedRole(domain.RoleUser, domain.PermissionUserRead, domain.PermissionUserUpdate)
	s.seedRole(domain.RoleAdmin, domain.PermissionUserRead, domain.PermissionUserUpdate,
		domain.PermissionAdminReadUsers, domain.PermissionAdminManageUsers)
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Repos returns the three repositories sharing this store.
func (s *Store) Repos() (UserRepo, RoleRepo, RefreshTokenRepo) {
	return UserRepo{s}, RoleRepo{s}, RefreshTokenRepo{s}
}

func (s *Store) seedRole(name string, perms ...string) {
	for _, p := range perms {
		s.permissions[p] = struct{}{}
	}
	role := domain.Role{ID: s.id(), Name: name}.WithPermissions(perms...)
	s.roles[name] = &role
}

func (s *Store) roleByID(id int64) domain.Role {
	for _, r := range s.roles {
		if r.ID == id {
			out := *r
			out.Permissions = append([]string{}, r.Permissions...)
			return out
		}
	}
	return domain.Role{}
}

func (s *Store) hydrate(u *domain.User) *domain.User {
	out := *u
	out.Role = s.roleByID(u.Role.ID)
	return &out
}

// UserRepo implements repository.UserRepository.
type UserRepo struct{ S *Store }

func (r UserRepo) Create(_ context.Context, user *domain.User) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for _, u := range r.S.users {
		if u.Email == user.Email {
			return repository.ErrConflict
		}
	}
	user.ID = r.S.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.S.users[user.ID] = &stored
	return nil
}

func (r UserRepo) Update(_ context.Context, user *domain.User) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	existing, ok := r.S.users[user.ID]
	if !ok || existing.Deleted {
		return pgx.ErrNoRows
	}
	stored := *user
	r.S.users[user.ID] = &stored
	return nil
}

func (r UserRepo) setDeleted(id int64, deleted bool) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	u, ok := r.S.users[id]
	if !ok || u.Deleted == deleted {
		return pgx.ErrNoRows
	}
	u.Deleted = deleted
	return nil
}

func (r UserRepo) SoftDelete(_ context.Context, id int64) error { return r.setDeleted(id, true) }
func (r UserRepo) Restore(_ context.Context, id int64) error    { return r.setDeleted(id, false) }

func (r UserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	u, ok := r.S.users[id]
	if !ok || u.Deleted {
		return nil, pgx.ErrNoRows
	}
	return r.S.hydrate(u), nil
}

func (r UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for _, u := range r.S.users {
		if u.Email == email && !u.Deleted {
			return r.S.hydrate(u), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r UserRepo) List(_ context.Context, filter domain.UserFilter) (*domain.UserPage, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	var items []domain.User
	for _, u := range r.S.users {
		if !u.Deleted && strings.Contains(strings.ToLower(u.Email), strings.ToLower(filter.EmailFilter)) {
			items = append(items, *r.S.hydrate(u))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	total := int64(len(items))
	start := filter.Page * filter.Size
	if start > len(items) {
		start = len(items)
	}
	end := start + filter.Size
	if end > len(items) {
		end = len(items)
	}
	return &domain.UserPage{Items: items[start:end], Page: filter.Page, Size: filter.Size, TotalItems: total}, nil
}

// RoleRepo implements repository.RoleRepository.
type RoleRepo struct{ S *Store }

func (r RoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	role, ok := r.S.roles[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := r.S.roleByID(role.ID)
	return &out, nil
}

func (r RoleRepo) Create(_ context.Context, role *domain.Role) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if existing, ok := r.S.roles[role.Name]; ok {
		role.ID = existing.ID
		return nil
	}
	role.ID = r.S.id()
	stored := domain.Role{ID: role.ID, Name: role.Name}
	r.S.roles[role.Name] = &stored
	return nil
}

func (r RoleRepo) ReplacePermissions(_ context.Context, roleID int64, permissions []string) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for _, p := range permissions {
		r.S.permissions[p] = struct{}{}
	}
	for name, role := range r.S.roles {
		if role.ID == roleID {
			replaced := domain.Role{ID: role.ID, Name: name}.WithPermissions(permissions...)
			r.S.roles[name] = &replaced
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r RoleRepo) AddPermissions(_ context.Context, roleID int64, permissions []string) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	for _, p := range permissions {
		r.S.permissions[p] = struct{}{}
	}
	for name, role := range r.S.roles {
		if role.ID == roleID {
			merged := role.WithPermissions(permissions...)
			r.S.roles[name] = &merged
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r RoleRepo) MissingPermissions(_ context.Context, names []string) ([]string, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	var missing []string
	for _, n := range names {
		if _, ok := r.S.permissions[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing, nil
}

// RefreshTokenRepo implements repository.RefreshTokenRepository.
type RefreshTokenRepo struct{ S *Store }

func (r RefreshTokenRepo) Create(_ context.Context, token *domain.RefreshToken) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	if _, ok := r.S.tokens[token.Token]; ok {
		return repository.ErrConflict
	}
	token.ID = r.S.id()
	token.CreatedAt = time.Now()
	stored := *token
	r.S.tokens[token.Token] = &stored
	return nil
}

func (r RefreshTokenRepo) GetByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	t, ok := r.S.tokens[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *t
	return &out, nil
}

func (r RefreshTokenRepo) Revoke(_ context.Context, token string) (bool, error) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	t, ok := r.S.tokens[token]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

// Expire forces a stored token's expiry into the past.
func (r RefreshTokenRepo) Expire(token string) {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	r.S.tokens[token].ExpiresAt = time.Now().Add(-time.Second)
}

var (
	_ repository.UserRepository         = UserRepo{}
	_ repository.RoleRepository         = RoleRepo{}
	_ repository.RefreshTokenRepository = RefreshTokenRepo{}
)
