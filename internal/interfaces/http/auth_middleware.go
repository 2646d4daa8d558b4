package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/zentral/internal/domain"
)

// permissionChecker es el contrato mínimo para RequirePermission. Lo implementa
// *usecase.PermissionService.
type permissionChecker interface {
	HasPermission(ctx context.Context, userID, module string) (bool, error)
}

// RequireAuth exige usuario de sesión o principal restaurado.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Identity(c).Authenticated() {
			return domain.ErrUnauthorized
		}
		return c.Next()
	}
}

// RequireSuperAdmin exige un super-admin autenticado.
func RequireSuperAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := Identity(c)
		if !id.Authenticated() {
			return domain.ErrUnauthorized
		}
		if !id.IsSuperAdmin() {
			return domain.ErrForbidden
		}
		return c.Next()
	}
}

// RequireRole permite el acceso solo a los roles indicados. El super-admin siempre pasa.
// Debe usarse después de RequireAuth.
func RequireRole(allowed ...string) fiber.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		id := Identity(c)
		if id.IsSuperAdmin() {
			return c.Next()
		}
		role := id.Role()
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(errorBody("MISSING_ROLE", "la sesión no tiene rol", ""))
		}
		if _, ok := set[role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(errorBody("FORBIDDEN", "rol '"+role+"' sin acceso a este recurso", ""))
		}
		return c.Next()
	}
}

// RequirePermission verifica que el usuario tenga el módulo habilitado (permisos propios o
// de su rol). El super-admin siempre pasa.
func RequirePermission(module string, checker permissionChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := Identity(c)
		if id.IsSuperAdmin() {
			return c.Next()
		}
		uid := id.UserID()
		if uid == "" {
			return domain.ErrUnauthorized
		}
		ok, err := checker.HasPermission(c.UserContext(), uid, module)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(errorBody("PERMISSION_CHECK_FAILED",
				"no se pudo verificar el permiso, intente más tarde", ""))
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(errorBody("MODULE_DISABLED",
				"el módulo '"+module+"' no está habilitado para este usuario", ""))
		}
		return c.Next()
	}
}
