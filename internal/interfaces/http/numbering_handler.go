package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/erp-tn-api/internal/application/dto"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
)

// NumberingService administración de plantillas y emisión de números.
type NumberingService interface {
	NextNumber(ctx context.Context, tenantID string, kind entity.Kind) (string, error)
	GetTemplate(ctx context.Context, tenantID string, kind entity.Kind) (*dto.NumberingTemplateResponse, error)
	SetTemplate(ctx context.Context, tenantID string, kind entity.Kind, in dto.SetNumberingTemplateRequest) (*dto.NumberingTemplateResponse, error)
}

// NumberingHandler maneja plantillas y números de documento (protegido).
type NumberingHandler struct {
	svc NumberingService
}

// NewNumberingHandler construye el handler.
func NewNumberingHandler(svc NumberingService) *NumberingHandler {
	return &NumberingHandler{svc: svc}
}

// GetTemplate devuelve la plantilla efectiva y la vista previa del siguiente número.
// GET /api/numbering/templates/:kind
func (h *NumberingHandler) GetTemplate(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.svc.GetTemplate(c.UserContext(), companyID, entity.Kind(c.Params("kind")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetTemplate fija la plantilla del tenant y, opcionalmente, la base del contador.
// PUT /api/numbering/templates/:kind
func (h *NumberingHandler) SetTemplate(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.SetNumberingTemplateRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.SetTemplate(c.UserContext(), companyID, entity.Kind(c.Params("kind")), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Next emite un número para documentos creados fuera de este servicio.
// POST /api/numbering/:kind/next
func (h *NumberingHandler) Next(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	kind := entity.Kind(c.Params("kind"))
	number, err := h.svc.NextNumber(c.UserContext(), companyID, kind)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NextNumberResponse{Kind: string(kind), Number: number})
}
