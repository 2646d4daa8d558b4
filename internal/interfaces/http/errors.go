package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/zentral/internal/application/dto"
	"github.com/jhoicas/zentral/internal/domain"
	"github.com/jhoicas/zentral/pkg/logger"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Orden relevante: CrossTenantError también es ErrForbidden.
var errorMappings = []errorMapping{
	{domain.ErrAmbiguousLogin, fiber.StatusUnauthorized, "AMBIGUOUS_LOGIN"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrCrossTenant, fiber.StatusForbidden, "CROSS_TENANT"},
	{domain.ErrCompanyPaused, fiber.StatusForbidden, "COMPANY_PAUSED"},
	{domain.ErrNoTenant, fiber.StatusForbidden, "NO_TENANT"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrUserNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrEmailAlreadyExists, fiber.StatusConflict, "EMAIL_EXISTS"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
}

// statusFor traduce un error a status HTTP y código.
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, "HTTP_ERROR"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

func errorBody(code, message, redirect string) dto.ErrorResponse {
	return dto.ErrorResponse{Code: code, Message: message, RedirectTo: redirect}
}

// ErrorHandler responde los errores de dominio con su status. JSON para /api, /auth y
// /superadmin; texto plano en el resto.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx, err error) error {
		status, code := statusFor(err)
		msg := err.Error()
		if status == fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
			msg = "error interno"
		}
		if wantsJSON(c) {
			return c.Status(status).JSON(errorBody(code, msg, ""))
		}
		return c.Status(status).SendString(msg)
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorBody("INVALID_BODY", message, ""))
}

// page normaliza limit/offset de la query.
func page(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 20)
	offset = c.QueryInt("offset", 0)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
