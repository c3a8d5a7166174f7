package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-tn-api/internal/domain/fiscal"
)

// Estados del documento. Solo un borrador admite cambios.
const (
	StatusDraft     = "draft"
	StatusValidated = "validated"
	StatusCancelled = "cancelled"
)

// Document es la cabecera de un documento comercial (devis, facture, avoir, BL, ...).
// Los totales se recalculan en cada alta y edición; nunca vienen del cliente.
type Document struct {
	ID           string
	TenantID     string
	Kind         Kind
	Number       string
	Status       string
	IssueDate    time.Time
	DueDate      *time.Time
	PartyName    string
	PartyTaxID   string // matricule fiscal del tercero
	PartyAddress string
	Currency     string
	Notes        string
	SourceID     string // documento de origen (factura de un avoir)
	WarehouseRef string // solo para tipos con movimiento de stock

	Modifiers fiscal.Modifiers
	Totals    fiscal.Totals
	Lines     []*DocumentLine

	Fingerprint string // SHA-256 del TEIF canónico, fijado al validar
	CreatedBy   string
	ValidatedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DocumentLine es una línea valorizada del documento.
type DocumentLine struct {
	ID           string
	DocumentID   string
	Position     int
	ProductRef   string
	Description  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	DiscountPct  decimal.Decimal
	TaxRatePct   decimal.Decimal
	TotalExclTax decimal.Decimal // calculado
	TaxAmount    decimal.Decimal // calculado
}

// IsDraft indica si el documento admite edición.
func (d *Document) IsDraft() bool {
	return d.Status == StatusDraft
}

// LineItems proyecta las líneas a la entrada del motor fiscal.
func (d *Document) LineItems() []fiscal.LineItem {
	items := make([]fiscal.LineItem, len(d.Lines))
	for i, l := range d.Lines {
		items[i] = fiscal.LineItem{
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
			TaxRatePct:  l.TaxRatePct,
		}
	}
	return items
}

// ApplyTotals copia los totales calculados al documento y a sus líneas.
// t.Lines viene en el mismo orden que LineItems().
func (d *Document) ApplyTotals(t fiscal.Totals) {
	d.Totals = t
	for i, l := range d.Lines {
		if i >= len(t.Lines) {
			break
		}
		l.TotalExclTax = t.Lines[i].TotalExclTax
		l.TaxAmount = t.Lines[i].TaxAmount
	}
}
