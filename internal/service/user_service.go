package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	// maxPage keeps page*size within an int32 offset.
	maxPage = math.MaxInt32 / maxPageSize
)

// AdminUserUpdate lists the fields an administrator may change. Nil fields
// are left untouched.
type AdminUserUpdate struct {
	Name     *string
	RoleName *string
}

// UserService serves profile and administration use cases.
type UserService struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	logger *zap.Logger
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, roles repository.RoleRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, roles: roles, logger: logger}
}

// Profile returns the principal identified by the token subject.
func (s *UserService) Profile(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

// UpdateProfile changes the caller's display name.
func (s *UserService) UpdateProfile(ctx context.Context, email, name string) (*domain.User, error) {
	user, err := s.Profile(ctx, email)
	if err != nil {
		return nil, err
	}
	user.Name = name
	if err := s.users.Update(ctx, user); err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

// ListUsers returns one page of users. Page is zero-based.
func (s *UserService) ListUsers(ctx context.Context, filter domain.UserFilter) (*domain.UserPage, error) {
	if filter.Page < 0 {
		filter.Page = 0
	}
	if filter.Page > maxPage {
		filter.Page = maxPage
	}
	if filter.Size <= 0 {
		filter.Size = defaultPageSize
	}
	if filter.Size > maxPageSize {
		filter.Size = maxPageSize
	}
	if filter.SortBy == "" {
		filter.SortBy = "id"
	}
	filter.EmailFilter = strings.TrimSpace(filter.EmailFilter)
	return s.users.List(ctx, filter)
}

// UpdateUser applies an administrator's changes. A role change takes effect
// for the user's tokens on their next renewal.
func (s *UserService) UpdateUser(ctx context.Context, id int64, upd AdminUserUpdate) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	if upd.Name != nil {
		user.Name = *upd.Name
	}
	if upd.RoleName != nil {
		role, err := s.roles.GetByName(ctx, domain.NormalizeName(*upd.RoleName))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, *upd.RoleName)
			}
			return nil, err
		}
		user.Role = *role
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	s.logger.Info("user updated by admin", zap.Int64("user_id", id))
	return user, nil
}

// DeleteUser soft-deletes a user.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.SoftDelete(ctx, id); err != nil {
		return notFound(err, ErrUserNotFound)
	}
	s.logger.Warn("user deleted", zap.Int64("user_id", id))
	return nil
}

// RestoreUser reverses a soft delete.
func (s *UserService) RestoreUser(ctx context.Context, id int64) error {
	if err := s.users.Restore(ctx, id); err != nil {
		return notFound(err, ErrUserNotFound)
	}
	return nil
}

// SetRolePermissions replaces a role's permission set. Every permission must
// already exist.
func (s *UserService) SetRolePermissions(ctx context.Context, roleName string, permissions []string) (*domain.Role, error) {
	role, err := s.roles.GetByName(ctx, domain.NormalizeName(roleName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, roleName)
		}
		return nil, err
	}

	names := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if p = domain.NormalizeName(p); p != "" {
			names = append(names, p)
		}
	}
	missing, err := s.roles.MissingPermissions(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &PermissionNotFoundError{Names: missing}
	}

	updated := domain.Role{ID: role.ID, Name: role.Name}.WithPermissions(names...)
	if err := s.roles.ReplacePermissions(ctx, updated.ID, updated.Permissions); err != nil {
		return nil, err
	}
	return &updated, nil
}

func notFound(err, replacement error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return replacement
	}
	return err
}
