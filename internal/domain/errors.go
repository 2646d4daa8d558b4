package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")

	// Aislamiento multi-tenant.
	ErrCrossTenant       = errors.New("operación entre empresas bloqueada")
	ErrNoTenant          = errors.New("no hay empresa efectiva para la solicitud")
	ErrCompanyPaused     = errors.New("la empresa está pausada")
	ErrAmbiguousLogin    = errors.New("identificador de acceso ambiguo")
	ErrResetNotConfirmed = errors.New("reset requiere RESET_DB=1 y RESET_DB_CONFIRM=YES")
)

// CrossTenantError describe una escritura rechazada porque la fila pertenece a otra empresa.
// errors.Is la reconoce como ErrCrossTenant y como ErrForbidden.
type CrossTenantError struct {
	Op              string // insert, update, delete
	Table           string
	RowTenant       string
	EffectiveTenant string
}

func (e *CrossTenantError) Error() string {
	return fmt.Sprintf("cross-tenant %s bloqueado en %s (fila=%q, efectiva=%q)", e.Op, e.Table, e.RowTenant, e.EffectiveTenant)
}

func (e *CrossTenantError) Unwrap() []error {
	return []error{ErrCrossTenant, ErrForbidden}
}
