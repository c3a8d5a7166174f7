package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/erp-tn-api/internal/application/dto"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
)

// DocumentService operaciones de documentos que expone la API.
type DocumentService interface {
	Create(ctx context.Context, tenantID, userID string, kind entity.Kind, in dto.DocumentRequest) (*dto.DocumentResponse, error)
	Update(ctx context.Context, tenantID, id string, in dto.DocumentRequest) (*dto.DocumentResponse, error)
	Get(ctx context.Context, tenantID, id string) (*dto.DocumentResponse, error)
	List(ctx context.Context, tenantID string, q dto.ListDocumentsQuery) (*dto.DocumentListResponse, error)
	Validate(ctx context.Context, tenantID, id string) (*dto.DocumentResponse, error)
	CreateCreditNote(ctx context.Context, tenantID, userID, invoiceID string) (*dto.DocumentResponse, error)
	ComputePreview(kind entity.Kind, in dto.PreviewRequest) (*dto.PreviewResponse, error)
}

// ExportService descargas PDF y TEIF.
type ExportService interface {
	DownloadPDF(ctx context.Context, tenantID, id string) ([]byte, string, error)
	DownloadTEIF(ctx context.Context, tenantID, id string) ([]byte, string, error)
}

// DocumentHandler maneja las peticiones HTTP de documentos comerciales (protegido).
type DocumentHandler struct {
	docs   DocumentService
	export ExportService
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(docs DocumentService, export ExportService) *DocumentHandler {
	return &DocumentHandler{docs: docs, export: export}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

// Create crea un documento del tipo indicado, con número y totales calculados.
// POST /api/documents/:kind
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.DocumentRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.docs.Create(c.UserContext(), companyID, userID, entity.Kind(c.Params("kind")), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Preview calcula los totales sin persistir ni numerar.
// POST /api/documents/:kind/preview
func (h *DocumentHandler) Preview(c *fiber.Ctx) error {
	var in dto.PreviewRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.docs.ComputePreview(entity.Kind(c.Params("kind")), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List lista los documentos del tenant.
// GET /api/documents?kind=&status=&party=&from=&to=&limit=&offset=
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var q dto.ListDocumentsQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	if err := validate.Struct(&q); err != nil {
		return validationResponse(c, err)
	}
	out, err := h.docs.List(c.UserContext(), companyID, q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID obtiene el documento con sus líneas.
// GET /api/documents/:id
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.docs.Get(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update reescribe un borrador y recalcula sus totales.
// PUT /api/documents/:id
func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.DocumentRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.docs.Update(c.UserContext(), companyID, c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Validate bloquea el documento y sella su huella TEIF.
// POST /api/documents/:id/validate
func (h *DocumentHandler) Validate(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.docs.Validate(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CreditNote emite el avoir de una factura validada.
// POST /api/documents/:id/credit-note
func (h *DocumentHandler) CreditNote(c *fiber.Ctx) error {
	companyID, userID := GetCompanyID(c), GetUserID(c)
	if companyID == "" || userID == "" {
		return unauthorized(c)
	}
	out, err := h.docs.CreateCreditNote(c.UserContext(), companyID, userID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// DownloadPDF devuelve el PDF del documento.
// GET /api/documents/:id/pdf
func (h *DocumentHandler) DownloadPDF(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	body, filename, err := h.export.DownloadPDF(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(body)
}

// DownloadTEIF devuelve el XML TEIF de un documento validado.
// GET /api/documents/:id/teif
func (h *DocumentHandler) DownloadTEIF(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	body, filename, err := h.export.DownloadTEIF(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(body)
}
