package entity

import "time"

// Estados de ciclo de vida de una empresa.
const (
	CompanyStatusActive = "active"
	CompanyStatusPaused = "paused"
)

// Company representa una empresa/tenant. El slug es único global y en minúsculas.
type Company struct {
	ID                 string
	Name               string
	Slug               string
	Plan               string
	Status             string // active, paused
	PausedAt           *time.Time
	PauseReason        string
	PauseScheduledFor  *time.Time // pausa programada (la ejecuta el scheduler)
	SubscriptionEndsAt *time.Time
	CreatedAt          time.Time
}

// IsPaused informa si la empresa está pausada.
func (c *Company) IsPaused() bool {
	return c != nil && c.Status == CompanyStatusPaused
}

// PauseDue informa si la empresa debe pausarse en el instante now: pausa programada
// vencida o suscripción expirada.
func (c *Company) PauseDue(now time.Time) bool {
	if c == nil || c.IsPaused() {
		return false
	}
	if c.PauseScheduledFor != nil && !c.PauseScheduledFor.After(now) {
		return true
	}
	return c.SubscriptionEndsAt != nil && !c.SubscriptionEndsAt.After(now)
}

// Pause marca la empresa como pausada.
func (c *Company) Pause(reason string, now time.Time) {
	c.Status = CompanyStatusPaused
	c.PausedAt = &now
	c.PauseReason = reason
	c.PauseScheduledFor = nil
}

// Reactivate devuelve la empresa a estado activo y limpia los metadatos de pausa.
func (c *Company) Reactivate() {
	c.Status = CompanyStatusActive
	c.PausedAt = nil
	c.PauseReason = ""
	c.PauseScheduledFor = nil
}
