package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/service"
)

// AuthHandler exposes registration, login and token endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.Status(http.StatusCreated).JSON(dto.Success("User registered successfully", dto.NewUserResponse(user), c.Path()))
}

// RegisterAdmin handles POST /api/v1/auth/register-admin.
func (h *AuthHandler) RegisterAdmin(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.RegisterAdmin(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}
	return c.Status(http.StatusCreated).JSON(dto.Success("Admin user created successfully", dto.NewUserResponse(user), c.Path()))
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(dto.Success("Login successful", authResponse(pair), c.Path()))
}

// Refresh handles POST /api/v1/auth/refresh-token.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(dto.Success("Token refreshed successfully", authResponse(pair), c.Path()))
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return serviceError(err)
	}
	return c.JSON(dto.Success("Logged out successfully", nil, c.Path()))
}

func authResponse(pair *domain.TokenPair) dto.AuthResponse {
	return dto.AuthResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
}
