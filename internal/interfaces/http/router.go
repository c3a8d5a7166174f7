package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName   string
	Documents DocumentService
	Export    ExportService
	Numbering NumberingService
	Company   CompanyService
	JWTSecret string
	// Gatherer expone /metrics; nil lo desactiva.
	Gatherer prometheus.Gatherer
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Documents
	documents := api.Group("/documents")
	docHandler := NewDocumentHandler(deps.Documents, deps.Export)
	documents.Get("/", docHandler.List)
	documents.Post("/:kind/preview", docHandler.Preview)
	documents.Post("/:id/validate", RequireRole(RoleAdmin, RoleAccountant), docHandler.Validate)
	documents.Post("/:id/credit-note", RequireRole(RoleAdmin, RoleAccountant), docHandler.CreditNote)
	documents.Get("/:id/pdf", docHandler.DownloadPDF)
	documents.Get("/:id/teif", docHandler.DownloadTEIF)
	documents.Post("/:kind", docHandler.Create)
	documents.Get("/:id", docHandler.GetByID)
	documents.Put("/:id", docHandler.Update)

	// Company
	companyHandler := NewCompanyHandler(deps.Company)
	api.Get("/company", companyHandler.Get)
	api.Put("/company", RequireRole(RoleAdmin), companyHandler.Save)

	// Numbering
	numbering := api.Group("/numbering")
	numHandler := NewNumberingHandler(deps.Numbering)
	numbering.Get("/templates/:kind", numHandler.GetTemplate)
	numbering.Put("/templates/:kind", RequireRole(RoleAdmin), numHandler.SetTemplate)
	numbering.Post("/:kind/next", numHandler.Next)
}
