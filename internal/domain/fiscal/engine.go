package fiscal

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-tn-api/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// Límites de las columnas NUMERIC donde se persisten entradas y totales.
const (
	qtyPrecision, qtyScale = 18, 6 // quantity, unit_price
	pctPrecision, pctScale = 7, 4  // porcentajes y tasas
	totalPrecision         = 18    // importes, a money.Scale
)

// ComputeTotals calcula los totales del documento a partir de sus líneas y modificadores.
// Es pura: sin I/O ni estado compartido, segura para llamadas concurrentes.
// Ante cualquier dato inválido devuelve *ValidationError y ningún total parcial.
func ComputeTotals(lines []LineItem, mods Modifiers) (Totals, error) {
	if err := validateModifiers(mods); err != nil {
		return Totals{}, err
	}
	for i, l := range lines {
		if err := validateLine(i, l, mods.AllowNegativeQuantities); err != nil {
			return Totals{}, err
		}
	}

	// Factor de la remise globale, aplicado igual al agregado y a cada línea.
	globalFactor := decimal.NewFromInt(1)
	if mods.GlobalDiscountPct.IsPositive() {
		globalFactor = money.Factor(mods.GlobalDiscountPct)
	}

	var gross, specialSum, vatSum decimal.Decimal
	lineTotals := make([]LineTotals, 0, len(lines))
	buckets := make(map[string]*TaxBucket)

	for _, l := range lines {
		lineHT := l.TotalExclTax()
		gross = gross.Add(lineHT)

		// Parte de la línea en el HT neto del documento.
		share := lineHT.Mul(globalFactor)

		// FODEC acumulado por línea: forma parte de la base de TVA.
		special := decimal.Zero
		if mods.SpecialTaxEnabled {
			special = money.Percent(share, mods.SpecialTaxRatePct)
		}
		specialSum = specialSum.Add(special)

		base := share.Add(special)
		vat := money.Percent(base, l.TaxRatePct)
		vatSum = vatSum.Add(vat)

		key := l.TaxRatePct.String()
		b, ok := buckets[key]
		if !ok {
			b = &TaxBucket{RatePct: l.TaxRatePct}
			buckets[key] = b
		}
		b.Base = b.Base.Add(base)
		b.Amount = b.Amount.Add(vat)

		lineTotals = append(lineTotals, LineTotals{
			TotalExclTax: money.Round(lineHT),
			TaxBase:      money.Round(base),
			TaxAmount:    money.Round(vat),
		})
	}

	totalExclTax := money.Round(gross.Mul(globalFactor))
	specialTax := money.Round(specialSum)
	totalTax := money.Round(vatSum)

	stamp := decimal.Zero
	if mods.FiscalStampEnabled {
		stamp = money.Round(mods.FiscalStampAmount)
	}

	// TTC como suma de componentes ya redondeados: la igualdad es exacta.
	totalInclTax := totalExclTax.Add(specialTax).Add(totalTax).Add(stamp)

	withholding := decimal.Zero
	if mods.WithholdingEnabled {
		withholding = money.Round(money.Percent(totalExclTax, mods.WithholdingRatePct))
	}

	tot := Totals{
		GrossExclTax:         money.Round(gross),
		GlobalDiscountAmount: money.Round(gross.Sub(gross.Mul(globalFactor))),
		TotalExclTax:         totalExclTax,
		SpecialTaxAmount:     specialTax,
		TotalTax:             totalTax,
		FiscalStampAmount:    stamp,
		TotalInclTax:         totalInclTax,
		WithholdingAmount:    withholding,
		NetPayable:           totalInclTax.Sub(withholding),
		Lines:                lineTotals,
		TaxBreakdown:         sortedBuckets(buckets),
	}
	if err := checkTotals(tot); err != nil {
		return Totals{}, err
	}
	return tot, nil
}

// checkTotals rechaza documentos cuyos importes no caben en NUMERIC(18,3).
func checkTotals(t Totals) error {
	for i, l := range t.Lines {
		for _, v := range []decimal.Decimal{l.TotalExclTax, l.TaxBase, l.TaxAmount} {
			if !money.FitsNumeric(v, totalPrecision, money.Scale) {
				return &ValidationError{Line: i, Field: "totalExclTax", Value: v.String(), Reason: "excede el importe máximo"}
			}
		}
	}
	for _, v := range []decimal.Decimal{t.GrossExclTax, t.TotalExclTax, t.SpecialTaxAmount, t.TotalTax, t.TotalInclTax, t.NetPayable} {
		if !money.FitsNumeric(v, totalPrecision, money.Scale) {
			return &ValidationError{Line: DocumentLevel, Field: "totalInclTax", Value: v.String(), Reason: "excede el importe máximo"}
		}
	}
	return nil
}

func sortedBuckets(m map[string]*TaxBucket) []TaxBucket {
	out := make([]TaxBucket, 0, len(m))
	for _, b := range m {
		out = append(out, TaxBucket{
			RatePct: b.RatePct,
			Base:    money.Round(b.Base),
			Amount:  money.Round(b.Amount),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RatePct.LessThan(out[j].RatePct) })
	return out
}

func validateLine(i int, l LineItem, allowNegativeQty bool) error {
	if !money.FitsNumeric(l.Quantity, qtyPrecision, qtyScale) {
		return &ValidationError{Line: i, Field: "quantity", Value: l.Quantity.String(), Reason: "máximo 12 enteros y 6 decimales"}
	}
	if l.Quantity.IsNegative() && !allowNegativeQty {
		return &ValidationError{Line: i, Field: "quantity", Value: l.Quantity.String(), Reason: "no puede ser negativa"}
	}
	if !money.FitsNumeric(l.UnitPrice, qtyPrecision, qtyScale) {
		return &ValidationError{Line: i, Field: "unitPrice", Value: l.UnitPrice.String(), Reason: "máximo 12 enteros y 6 decimales"}
	}
	if l.UnitPrice.IsNegative() {
		return &ValidationError{Line: i, Field: "unitPrice", Value: l.UnitPrice.String(), Reason: "no puede ser negativo"}
	}
	if !validPct(l.DiscountPct) {
		return &ValidationError{Line: i, Field: "discountPct", Value: l.DiscountPct.String(), Reason: pctReason}
	}
	if !validPct(l.TaxRatePct) {
		return &ValidationError{Line: i, Field: "taxRatePct", Value: l.TaxRatePct.String(), Reason: pctReason}
	}
	return nil
}

// Las tasas se validan aunque el modificador esté desactivado: se persisten igual.
func validateModifiers(m Modifiers) error {
	if !validPct(m.GlobalDiscountPct) {
		return &ValidationError{Line: DocumentLevel, Field: "globalDiscountPct", Value: m.GlobalDiscountPct.String(), Reason: pctReason}
	}
	if !validPct(m.SpecialTaxRatePct) {
		return &ValidationError{Line: DocumentLevel, Field: "specialTaxRatePct", Value: m.SpecialTaxRatePct.String(), Reason: pctReason}
	}
	if m.FiscalStampAmount.IsNegative() || !money.FitsNumeric(m.FiscalStampAmount, totalPrecision, money.Scale) {
		return &ValidationError{Line: DocumentLevel, Field: "fiscalStampAmount", Value: m.FiscalStampAmount.String(), Reason: "debe ser positivo y con 3 decimales como máximo"}
	}
	if !validPct(m.WithholdingRatePct) {
		return &ValidationError{Line: DocumentLevel, Field: "withholdingRatePct", Value: m.WithholdingRatePct.String(), Reason: pctReason}
	}
	return nil
}

const pctReason = "fuera de [0,100] o más de 4 decimales"

func validPct(d decimal.Decimal) bool {
	return money.FitsNumeric(d, pctPrecision, pctScale) && !d.IsNegative() && d.LessThanOrEqual(hundred)
}
