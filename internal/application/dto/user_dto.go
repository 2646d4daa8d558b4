package dto

import "time"

// LoginRequest entrada para login: identifier acepta email o username.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
	Remember   bool   `json:"remember"`
}

// LoginResponse salida del login. El token solo se emite con remember=true.
type LoginResponse struct {
	User          UserResponse `json:"user"`
	CompanySlug   string       `json:"company_slug,omitempty"`
	RedirectTo    string       `json:"redirect_to"`
	RememberToken string       `json:"-"`
}

// CreateUserRequest entrada para crear un usuario de la empresa efectiva.
type CreateUserRequest struct {
	Username    string          `json:"username" validate:"required,min=1,max=80"`
	DisplayName string          `json:"display_name" validate:"omitempty,max=200"`
	Email       string          `json:"email" validate:"omitempty,email"`
	Password    string          `json:"password" validate:"required,min=4"`
	Role        string          `json:"role" validate:"required"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"company_id,omitempty"`
	Username    string          `json:"username"`
	DisplayName string          `json:"display_name"`
	Email       string          `json:"email,omitempty"`
	Role        string          `json:"role"`
	Active      bool            `json:"active"`
	Permissions map[string]bool `json:"permissions"`
	CreatedAt   time.Time       `json:"created_at"`
}

// UserListResponse lista paginada de usuarios.
type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// MeResponse identidad y contexto de tenant de la solicitud actual.
type MeResponse struct {
	User          UserResponse     `json:"user"`
	Company       *CompanyResponse `json:"company,omitempty"`
	Impersonating bool             `json:"impersonating"`
	TenantSource  string           `json:"tenant_source"`
}
