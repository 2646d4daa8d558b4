package dto

import "time"

// CreateCompanyRequest entrada para crear una empresa desde la consola de super-admin.
// Slug vacío se deriva del nombre. Sin AdminPassword no se crea usuario administrador.
type CreateCompanyRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=200"`
	Slug          string `json:"slug" validate:"omitempty,max=63"`
	Plan          string `json:"plan" validate:"omitempty"`
	AdminUsername string `json:"admin_username"`
	AdminEmail    string `json:"admin_email" validate:"omitempty,email"`
	AdminPassword string `json:"admin_password"`
}

// PauseCompanyRequest pausa inmediata o programada (ScheduledFor no nulo).
type PauseCompanyRequest struct {
	Reason       string     `json:"reason"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// CompanyResponse salida de una empresa.
type CompanyResponse struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Slug               string     `json:"slug"`
	Plan               string     `json:"plan"`
	Status             string     `json:"status"`
	PausedAt           *time.Time `json:"paused_at,omitempty"`
	PauseReason        string     `json:"pause_reason,omitempty"`
	PauseScheduledFor  *time.Time `json:"pause_scheduled_for,omitempty"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// CompanyListResponse lista paginada de empresas.
type CompanyListResponse struct {
	Items []CompanyResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// ImpersonateResponse destino tras iniciar o terminar la suplantación.
type ImpersonateResponse struct {
	CompanyID  string `json:"company_id,omitempty"`
	RedirectTo string `json:"redirect_to"`
}
