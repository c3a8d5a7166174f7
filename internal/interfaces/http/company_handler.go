package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/erp-tn-api/internal/application/dto"
)

// CompanyService ficha fiscal del tenant autenticado.
type CompanyService interface {
	Get(ctx context.Context, tenantID string) (*dto.CompanyResponse, error)
	Save(ctx context.Context, tenantID string, in dto.CompanyRequest) (*dto.CompanyResponse, error)
}

// CompanyHandler maneja las peticiones HTTP para la empresa emisora.
type CompanyHandler struct {
	svc CompanyService
}

// NewCompanyHandler construye el handler inyectando el caso de uso.
func NewCompanyHandler(svc CompanyService) *CompanyHandler {
	return &CompanyHandler{svc: svc}
}

// Get godoc
// @Summary      Ficha de la empresa del tenant
// @Tags         company
// @Produce      json
// @Success      200  {object}  dto.CompanyResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/company [get]
func (h *CompanyHandler) Get(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.svc.Get(c.UserContext(), companyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Save godoc
// @Summary      Registrar o actualizar la empresa del tenant
// @Tags         company
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CompanyRequest  true  "Datos fiscales"
// @Success      200   {object}  dto.CompanyResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/company [put]
func (h *CompanyHandler) Save(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.CompanyRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.Save(c.UserContext(), companyID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
