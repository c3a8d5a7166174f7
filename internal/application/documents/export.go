package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
)

// ExportUseCase genera las representaciones de un documento (PDF y XML TEIF).
type ExportUseCase struct {
	docRepo     repository.DocumentRepository
	companyRepo repository.CompanyRepository
	pdf         PDFRenderer
	teif        TEIFBuilder
	signer      XMLSigner
}

// NewExportUseCase construye el caso de uso inyectando todas sus dependencias.
func NewExportUseCase(
	docRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	pdf PDFRenderer,
	teif TEIFBuilder,
) *ExportUseCase {
	return &ExportUseCase{docRepo: docRepo, companyRepo: companyRepo, pdf: pdf, teif: teif}
}

// WithSigner activa la firma XAdES del TEIF exportado.
func (uc *ExportUseCase) WithSigner(s XMLSigner) *ExportUseCase {
	uc.signer = s
	return uc
}

// DownloadPDF devuelve el PDF y el nombre de archivo sugerido.
// Los borradores también se pueden imprimir; el PDF los marca como tales.
func (uc *ExportUseCase) DownloadPDF(ctx context.Context, tenantID, id string) (pdfBytes []byte, filename string, err error) {
	doc, company, err := uc.load(ctx, tenantID, id)
	if err != nil {
		return nil, "", err
	}
	pdfBytes, err = uc.pdf.Render(ctx, company, doc)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, fileName(doc, "pdf"), nil
}

// DownloadTEIF devuelve el XML TEIF. Solo para documentos validados: la huella sellada
// debe corresponder al XML entregado.
func (uc *ExportUseCase) DownloadTEIF(ctx context.Context, tenantID, id string) (xmlBytes []byte, filename string, err error) {
	doc, company, err := uc.load(ctx, tenantID, id)
	if err != nil {
		return nil, "", err
	}
	if doc.Status != entity.StatusValidated {
		return nil, "", fmt.Errorf("%w: el documento está en estado %s, valídelo antes de exportar el TEIF",
			domain.ErrConflict, doc.Status)
	}
	xmlBytes, err = uc.teif.Build(company, doc)
	if err != nil {
		return nil, "", fmt.Errorf("teif: %w", err)
	}
	if uc.signer != nil {
		if xmlBytes, err = uc.signer.Sign(xmlBytes); err != nil {
			return nil, "", fmt.Errorf("teif: firma: %w", err)
		}
	}
	return xmlBytes, fileName(doc, "xml"), nil
}

func (uc *ExportUseCase) load(ctx context.Context, tenantID, id string) (*entity.Document, *entity.Company, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, domain.ErrNotFound
	}
	doc, err := uc.docRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, nil, fmt.Errorf("obtener documento: %w", err)
	}
	if doc == nil || doc.TenantID != tenantID {
		return nil, nil, domain.ErrNotFound
	}
	company := &entity.Company{ID: tenantID}
	if uc.companyRepo != nil {
		c, err := uc.companyRepo.GetByID(ctx, tenantID)
		if err != nil {
			return nil, nil, fmt.Errorf("obtener empresa: %w", err)
		}
		if c != nil {
			company = c
		}
	}
	return doc, company, nil
}

func fileName(doc *entity.Document, ext string) string {
	number := doc.Number
	if number == "" {
		number = doc.ID
	}
	safe := strings.NewReplacer("/", "-", "\\", "-", " ", "_").Replace(number)
	return fmt.Sprintf("%s_%s.%s", doc.Kind, safe, ext)
}
