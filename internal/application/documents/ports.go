package documents

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
)

// DocumentTxRunner ejecuta fn dentro de una transacción con los repos de documentos y de stock.
type DocumentTxRunner interface {
	RunDocument(ctx context.Context, fn func(
		docRepo repository.DocumentRepository,
		stockRepo repository.StockMovementRepository,
	) error) error
}

// Numberer reserva números de documento (implementado por numbering.Service).
type Numberer interface {
	NextNumber(ctx context.Context, tenantID string, kind entity.Kind) (string, error)
}

// PDFRenderer genera la representación PDF de un documento.
type PDFRenderer interface {
	Render(ctx context.Context, company *entity.Company, doc *entity.Document) ([]byte, error)
}

// TEIFBuilder genera el XML TEIF y su huella canónica.
type TEIFBuilder interface {
	Build(company *entity.Company, doc *entity.Document) ([]byte, error)
	Fingerprint(company *entity.Company, doc *entity.Document) (string, error)
}

// XMLSigner firma el XML TEIF exportado. Opcional: sin firmante se entrega el XML sin firma.
type XMLSigner interface {
	Sign(xmlBytes []byte) ([]byte, error)
}

// Defaults valores fiscales por defecto del tenant (vienen de config).
type Defaults struct {
	Currency        string
	FiscalStamp     decimal.Decimal
	FodecRate       decimal.Decimal
	WithholdingRate decimal.Decimal
}
