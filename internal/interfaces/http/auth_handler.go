package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/zentral/internal/application/auth"
	"github.com/jhoicas/zentral/internal/application/dto"
	"github.com/jhoicas/zentral/internal/application/usecase"
	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/config"
)

// AuthHandler maneja login, logout y la identidad actual.
type AuthHandler struct {
	uc           *auth.AuthUseCase
	cookies      config.SessionConfig
	rememberDays int
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc *auth.AuthUseCase, cookies config.SessionConfig, rememberDays int) *AuthHandler {
	if rememberDays <= 0 {
		rememberDays = 30
	}
	return &AuthHandler{uc: uc, cookies: cookies, rememberDays: rememberDays}
}

// Login godoc
// @Summary      Iniciar sesión
// @Description  identifier acepta email o username. Con varias coincidencias de username gana la empresa de la URL.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "identifier, password, remember"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	if strings.TrimSpace(in.Identifier) == "" || in.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("VALIDATION", "identifier y password son requeridos", ""))
	}
	res, err := h.uc.Login(c.UserContext(), in)
	if err != nil {
		return err
	}
	Identity(c).Login(res.User, res.Company)

	out := dto.LoginResponse{User: *usecase.NewUserResponse(res.User, nil), RedirectTo: "/superadmin"}
	if res.Company != nil {
		out.CompanySlug = res.Company.Slug
		out.RedirectTo = tenancy.PrefixSegment + res.Company.Slug + "/"
	}
	if res.RememberToken != "" {
		c.Cookie(&fiber.Cookie{
			Name:     RememberCookie,
			Value:    res.RememberToken,
			Path:     "/",
			Domain:   h.cookies.CookieDomain,
			Expires:  time.Now().Add(time.Duration(h.rememberDays) * 24 * time.Hour),
			Secure:   h.cookies.CookieSecure,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return c.JSON(out)
}

// Logout godoc
// @Summary      Cerrar sesión
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.ImpersonateResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	id := Identity(c)
	redirect := "/auth/login"
	if slug := id.CompanySlug(); slug != "" {
		redirect = tenancy.PrefixSegment + slug + redirect
	}
	id.Logout()
	c.ClearCookie(RememberCookie)
	return c.JSON(dto.ImpersonateResponse{RedirectTo: redirect})
}

// Me godoc
// @Summary      Identidad actual
// @Description  Usuario autenticado, empresa efectiva y origen de la resolución.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.MeResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	out, err := h.uc.Me(c.UserContext(), GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(out)
}
