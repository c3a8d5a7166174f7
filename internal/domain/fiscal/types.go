// Package fiscal calcula los totales de los documentos comerciales según el
// régimen tunecino: HT, remise globale, FODEC, TVA, timbre fiscal, TTC y
// retenue à la source.
//
// Orden de la cascada (idéntico para todos los tipos de documento):
//
//	líneas HT (con remise de línea)
//	  → remise globale
//	    → FODEC sobre el HT neto
//	      → TVA sobre (HT neto + FODEC), línea por línea
//	        → + timbre fiscal = TTC
//	          → − retenue à la source = net à payer
//
// Los importes se redondean a 3 decimales solo al cerrar cada total.
package fiscal

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-tn-api/pkg/money"
)

// LineItem es una línea valorizada del documento. Los importes son HT.
type LineItem struct {
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal // precio unitario HT
	DiscountPct decimal.Decimal // remise de línea, 0..100
	TaxRatePct  decimal.Decimal // tasa de TVA de la línea, 0..100
}

// TotalExclTax devuelve qty × PU × (1 − remise/100), sin redondear.
func (l LineItem) TotalExclTax() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Mul(money.Factor(l.DiscountPct))
}

// Modifiers agrupa los ajustes a nivel de documento, aplicados después de sumar las líneas.
type Modifiers struct {
	GlobalDiscountPct decimal.Decimal

	SpecialTaxEnabled bool            // FODEC
	SpecialTaxRatePct decimal.Decimal // 1 por defecto

	FiscalStampEnabled bool
	FiscalStampAmount  decimal.Decimal // importe fijo, 1.000 TND por defecto

	WithholdingEnabled bool
	WithholdingRatePct decimal.Decimal

	// AllowNegativeQuantities habilita cantidades negativas (avoirs que reflejan una factura).
	AllowNegativeQuantities bool
}

// LineTotals son los importes finales de una línea, redondeados.
type LineTotals struct {
	TotalExclTax decimal.Decimal // HT tras la remise de línea, antes de la remise globale
	TaxBase      decimal.Decimal // parte del HT neto + FODEC de la línea
	TaxAmount    decimal.Decimal
}

// TaxBucket agrupa la base y la TVA de todas las líneas con la misma tasa.
// Cada bucket se redondea por separado; la suma puede diferir de TotalTax en un millime.
type TaxBucket struct {
	RatePct decimal.Decimal
	Base    decimal.Decimal
	Amount  decimal.Decimal
}

// Totals es el resultado del cálculo. Siempre se recalcula; nunca se acepta del cliente.
type Totals struct {
	GrossExclTax         decimal.Decimal // Σ HT de línea, antes de la remise globale
	GlobalDiscountAmount decimal.Decimal
	TotalExclTax         decimal.Decimal
	SpecialTaxAmount     decimal.Decimal
	TotalTax             decimal.Decimal
	FiscalStampAmount    decimal.Decimal
	TotalInclTax         decimal.Decimal
	WithholdingAmount    decimal.Decimal
	NetPayable           decimal.Decimal

	Lines        []LineTotals
	TaxBreakdown []TaxBucket
}
