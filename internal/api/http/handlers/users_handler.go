package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/service"
)

// UsersHandler exposes the caller's own profile.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Profile handles GET /api/v1/user/profile.
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	user, err := h.users.Profile(c.UserContext(), auth.FromContext(c).Subject)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(dto.Success("User profile fetched successfully", dto.NewUserResponse(user), c.Path()))
}

// UpdateProfile handles PUT /api/v1/user/update.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateProfile(c.UserContext(), auth.FromContext(c).Subject, req.Name)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(dto.Success("User profile updated successfully", dto.NewUserResponse(user), c.Path()))
}
