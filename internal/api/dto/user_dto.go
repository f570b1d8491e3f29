package dto

import (
	"time"

	"github.com/spec-kit/auth-service/internal/domain"
)

// RegisterRequest payload for self-registration. Role and Permissions are
// optional; the role defaults to USER.
type RegisterRequest struct {
	Name        string   `json:"name" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=6"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest payload for token renewal and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse is returned by login and refresh.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UpdateProfileRequest payload for self-service profile changes.
type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required"`
}

// AdminUpdateUserRequest payload for administrator changes.
type AdminUpdateUserRequest struct {
	Name     *string `json:"name"`
	RoleName *string `json:"roleName"`
}

// RolePermissionsRequest replaces a role's permission set.
type RolePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

// RoleResponse renders a role.
type RoleResponse struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// UserResponse renders a principal without its credentials.
type UserResponse struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Role      RoleResponse `json:"role"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// PageResponse wraps one page of results.
type PageResponse struct {
	Content       []UserResponse `json:"content"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"totalElements"`
	TotalPages    int64          `json:"totalPages"`
}

// NewRoleResponse converts a domain role.
func NewRoleResponse(r domain.Role) RoleResponse {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return RoleResponse{Name: r.Name, Permissions: perms}
}

// NewUserResponse converts a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      NewRoleResponse(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewPageResponse converts a domain page.
func NewPageResponse(p *domain.UserPage) PageResponse {
	content := make([]UserResponse, 0, len(p.Items))
	for i := range p.Items {
		content = append(content, NewUserResponse(&p.Items[i]))
	}
	var pages int64
	if p.Size > 0 {
		pages = (p.TotalItems + int64(p.Size) - 1) / int64(p.Size)
	}
	return PageResponse{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalItems,
		TotalPages:    pages,
	}
}
