package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// AdminHandler exposes user and role administration.
type AdminHandler struct {
	users *service.UserService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

// ListUsers handles GET /api/v1/admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, err := h.users.ListUsers(c.UserContext(), domain.UserFilter{
		Page:        c.QueryInt("page", 0),
		Size:        c.QueryInt("size", 10),
		SortBy:      c.Query("sortBy", "id"),
		Descending:  strings.EqualFold(c.Query("direction", "asc"), "desc"),
		EmailFilter: c.Query("emailFilter"),
	})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(dto.Success("Users fetched successfully", dto.NewPageResponse(page), c.Path()))
}

// UpdateUser handles PUT /api/v1/admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req dto.AdminUpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateUser(c.UserContext(), id, service.AdminUserUpdate{Name: req.Name, RoleName: req.RoleName})
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(dto.Success("User updated successfully", dto.NewUserResponse(user), c.Path()))
}

// DeleteUser handles DELETE /api/v1/admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.users.DeleteUser(c.UserContext(), id); err != nil {
		return serviceError(err)
	}
	return c.JSON(dto.Success("User deleted successfully", nil, c.Path()))
}

// RestoreUser handles POST /api/v1/admin/users/:id/restore.
func (h *AdminHandler) RestoreUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.users.RestoreUser(c.UserContext(), id); err != nil {
		return serviceError(err)
	}
	return c.JSON(dto.Success("User restored successfully", nil, c.Path()))
}

// SetRolePermissions handles PUT /api/v1/admin/roles/:name/permissions.
func (h *AdminHandler) SetRolePermissions(c *fiber.Ctx) error {
	var req dto.RolePermissionsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	role, err := h.users.SetRolePermissions(c.UserContext(), c.Params("name"), req.Permissions)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(dto.Success("Role permissions updated successfully", dto.NewRoleResponse(*role), c.Path()))
}

func userID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid user id", nil)
	}
	return int64(id), nil
}
