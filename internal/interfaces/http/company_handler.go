package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/zentral/internal/application/dto"
	"github.com/jhoicas/zentral/internal/application/usecase"
	"github.com/jhoicas/zentral/internal/tenancy"
)

// CompanyHandler consola de super-admin: empresas y suplantación. Las rutas van detrás de
// RequireSuperAdmin y los casos de uso corren con la identidad de sistema, de modo que la
// suplantación activa no acota la consola.
type CompanyHandler struct {
	uc *usecase.CompanyUseCase
}

// NewCompanyHandler construye el handler inyectando el caso de uso.
func NewCompanyHandler(uc *usecase.CompanyUseCase) *CompanyHandler {
	return &CompanyHandler{uc: uc}
}

func system(c *fiber.Ctx) context.Context { return tenancy.SystemContext(c.UserContext()) }

// List godoc
// @Summary      Listar empresas
// @Tags         superadmin
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.CompanyListResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Router       /superadmin/companies [get]
func (h *CompanyHandler) List(c *fiber.Ctx) error {
	limit, offset := page(c)
	out, err := h.uc.List(system(c), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear empresa
// @Description  Sin slug se deriva del nombre. Crea los roles por defecto y, si hay admin_password, el administrador.
// @Tags         superadmin
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCompanyRequest  true  "Datos de la empresa"
// @Success      201   {object}  dto.CompanyResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /superadmin/companies [post]
func (h *CompanyHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCompanyRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.uc.Create(system(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener empresa por ID
// @Tags         superadmin
// @Produce      json
// @Param        id   path  string  true  "ID de la empresa"
// @Success      200  {object}  dto.CompanyResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /superadmin/companies/{id} [get]
func (h *CompanyHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(system(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Pause godoc
// @Summary      Pausar empresa
// @Description  Con scheduled_for futuro la pausa queda programada y la ejecuta el scheduler.
// @Tags         superadmin
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID de la empresa"
// @Param        body  body  dto.PauseCompanyRequest  true  "Motivo y fecha opcional"
// @Success      200   {object}  dto.CompanyResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /superadmin/companies/{id}/pause [post]
func (h *CompanyHandler) Pause(c *fiber.Ctx) error {
	var in dto.PauseCompanyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "cuerpo inválido")
		}
	}
	out, err := h.uc.Pause(system(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Reactivate godoc
// @Summary      Reactivar empresa
// @Tags         superadmin
// @Produce      json
// @Param        id   path  string  true  "ID de la empresa"
// @Success      200  {object}  dto.CompanyResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /superadmin/companies/{id}/reactivate [post]
func (h *CompanyHandler) Reactivate(c *fiber.Ctx) error {
	out, err := h.uc.Reactivate(system(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar empresa
// @Description  Borra la empresa y todos sus datos.
// @Tags         superadmin
// @Param        id   path  string  true  "ID de la empresa"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /superadmin/companies/{id} [delete]
func (h *CompanyHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.uc.Delete(system(c), id); err != nil {
		return err
	}
	if sid := Identity(c); sid.ImpersonatedTenantID() == id {
		_ = sid.ClearImpersonation()
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Impersonate godoc
// @Summary      Suplantar empresa
// @Description  Las solicitudes siguientes del super-admin se acotan a la empresa indicada.
// @Tags         superadmin
// @Produce      json
// @Param        id   path  string  true  "ID de la empresa"
// @Success      200  {object}  dto.ImpersonateResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /superadmin/companies/{id}/impersonate [post]
func (h *CompanyHandler) Impersonate(c *fiber.Ctx) error {
	company, err := h.uc.GetByID(system(c), c.Params("id"))
	if err != nil {
		return err
	}
	if err := Identity(c).SetImpersonation(company.ID); err != nil {
		return err
	}
	return c.JSON(dto.ImpersonateResponse{
		CompanyID:  company.ID,
		RedirectTo: tenancy.PrefixSegment + company.Slug + "/",
	})
}

// ClearImpersonation godoc
// @Summary      Terminar suplantación
// @Tags         superadmin
// @Produce      json
// @Success      200  {object}  dto.ImpersonateResponse
// @Router       /superadmin/impersonation [delete]
func (h *CompanyHandler) ClearImpersonation(c *fiber.Ctx) error {
	if err := Identity(c).ClearImpersonation(); err != nil {
		return err
	}
	return c.JSON(dto.ImpersonateResponse{RedirectTo: "/superadmin"})
}
