package fiscal_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/fiscal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// assertAmount compara importes por valor, no por representación interna.
func assertAmount(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: esperado %s, obtenido %s", msg, want, got.StringFixed(3))
}

func baseLine() fiscal.LineItem {
	return fiscal.LineItem{Quantity: d("2"), UnitPrice: d("100"), TaxRatePct: d("19")}
}

// ──────────────────────────────────────────────────────────────────────────────
// Casos de referencia: una línea 2 × 100 HT al 19 %.
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeTotals_SinModificadores(t *testing.T) {
	tot, err := fiscal.ComputeTotals([]fiscal.LineItem{baseLine()}, fiscal.Modifiers{})
	require.NoError(t, err)

	assertAmount(t, "200.000", tot.TotalExclTax, "HT")
	assertAmount(t, "38.000", tot.TotalTax, "TVA")
	assertAmount(t, "238.000", tot.TotalInclTax, "TTC")
	assertAmount(t, "238.000", tot.NetPayable, "net à payer")
	assert.True(t, tot.SpecialTaxAmount.IsZero())
	assert.True(t, tot.FiscalStampAmount.IsZero())
}

func TestComputeTotals_FodecEntraEnBaseTVA(t *testing.T) {
	mods := fiscal.Modifiers{SpecialTaxEnabled: true, SpecialTaxRatePct: d("1")}
	tot, err := fiscal.ComputeTotals([]fiscal.LineItem{baseLine()}, mods)
	require.NoError(t, err)

	assertAmount(t, "2.000", tot.SpecialTaxAmount, "FODEC")
	require.Len(t, tot.Lines, 1)
	assertAmount(t, "202.000", tot.Lines[0].TaxBase, "base TVA")
	assertAmount(t, "38.380", tot.TotalTax, "TVA")
	assertAmount(t, "240.380", tot.TotalInclTax, "TTC")
}

func TestComputeTotals_TimbreFiscal(t *testing.T) {
	mods := fiscal.Modifiers{
		SpecialTaxEnabled:  true,
		SpecialTaxRatePct:  d("1"),
		FiscalStampEnabled: true,
		FiscalStampAmount:  d("1.000"),
	}
	tot, err := fiscal.ComputeTotals([]fiscal.LineItem{baseLine()}, mods)
	require.NoError(t, err)

	assertAmount(t, "1.000", tot.FiscalStampAmount, "timbre")
	assertAmount(t, "241.380", tot.TotalInclTax, "TTC")
}

func TestComputeTotals_RemiseGlobale(t *testing.T) {
	tot, err := fiscal.ComputeTotals([]fiscal.LineItem{baseLine()}, fiscal.Modifiers{GlobalDiscountPct: d("10")})
	require.NoError(t, err)

	assertAmount(t, "200.000", tot.GrossExclTax, "HT bruto")
	assertAmount(t, "20.000", tot.GlobalDiscountAmount, "remise")
	assertAmount(t, "180.000", tot.TotalExclTax, "HT")
	assertAmount(t, "34.200", tot.TotalTax, "TVA")
	assertAmount(t, "214.200", tot.TotalInclTax, "TTC")
}

func TestComputeTotals_RetenueSobreHT(t *testing.T) {
	mods := fiscal.Modifiers{
		FiscalStampEnabled: true,
		FiscalStampAmount:  d("1"),
		WithholdingEnabled: true,
		WithholdingRatePct: d("1.5"),
	}
	tot, err := fiscal.ComputeTotals([]fiscal.LineItem{baseLine()}, mods)
	require.NoError(t, err)

	// Base de la retenue = HT (200), el timbre no entra.
	assertAmount(t, "3.000", tot.WithholdingAmount, "retenue")
	assertAmount(t, "239.000", tot.TotalInclTax, "TTC")
	assertAmount(t, "236.000", tot.NetPayable, "net à payer")
}

func TestComputeTotals_SinLineas(t *testing.T) {
	mods := fiscal.Modifiers{
		GlobalDiscountPct:  d("50"),
		SpecialTaxEnabled:  true,
		SpecialTaxRatePct:  d("1"),
		WithholdingEnabled: true,
		WithholdingRatePct: d("1"),
	}
	tot, err := fiscal.ComputeTotals(nil, mods)
	require.NoError(t, err)

	for name, v := range map[string]decimal.Decimal{
		"GrossExclTax":      tot.GrossExclTax,
		"TotalExclTax":      tot.TotalExclTax,
		"SpecialTaxAmount":  tot.SpecialTaxAmount,
		"TotalTax":          tot.TotalTax,
		"TotalInclTax":      tot.TotalInclTax,
		"WithholdingAmount": tot.WithholdingAmount,
		"NetPayable":        tot.NetPayable,
	} {
		assert.True(t, v.IsZero(), "%s debe ser 0", name)
	}
	assert.Empty(t, tot.Lines)
	assert.Empty(t, tot.TaxBreakdown)
}

func TestComputeTotals_TasaCeroContribuyeAlHTyFodec(t *testing.T) {
	lines := []fiscal.LineItem{
		{Quantity: d("1"), UnitPrice: d("100"), TaxRatePct: d("0")},
		{Quantity: d("1"), UnitPrice: d("100"), TaxRatePct: d("19")},
	}
	mods := fiscal.Modifiers{SpecialTaxEnabled: true, SpecialTaxRatePct: d("1")}
	tot, err := fiscal.ComputeTotals(lines, mods)
	require.NoError(t, err)

	assertAmount(t, "200.000", tot.TotalExclTax, "HT")
	assertAmount(t, "2.000", tot.SpecialTaxAmount, "FODEC")
	assertAmount(t, "19.190", tot.TotalTax, "TVA") // 101 × 19 %
	assertAmount(t, "0", tot.Lines[0].TaxAmount, "TVA línea exonerada")
}

func TestComputeTotals_DesglosePorTasa(t *testing.T) {
	lines := []fiscal.LineItem{
		{Quantity: d("1"), UnitPrice: d("10"), TaxRatePct: d("19")},
		{Quantity: d("1"), UnitPrice: d("10"), TaxRatePct: d("7")},
	}
	mods := fiscal.Modifiers{
		GlobalDiscountPct: d("10"),
		SpecialTaxEnabled: true,
		SpecialTaxRatePct: d("1"),
	}
	tot, err := fiscal.ComputeTotals(lines, mods)
	require.NoError(t, err)

	assertAmount(t, "18.000", tot.TotalExclTax, "HT")
	assertAmount(t, "0.180", tot.SpecialTaxAmount, "FODEC")
	assertAmount(t, "2.363", tot.TotalTax, "TVA")
	assertAmount(t, "20.543", tot.TotalInclTax, "TTC")

	require.Len(t, tot.TaxBreakdown, 2)
	assertAmount(t, "7", tot.TaxBreakdown[0].RatePct, "tasa ordenada")
	assertAmount(t, "9.090", tot.TaxBreakdown[0].Base, "base 7 %")
	assertAmount(t, "0.636", tot.TaxBreakdown[0].Amount, "TVA 7 %")
	assertAmount(t, "19", tot.TaxBreakdown[1].RatePct, "tasa ordenada")
	assertAmount(t, "1.727", tot.TaxBreakdown[1].Amount, "TVA 19 %")
}

func TestComputeTotals_RedondeoAlCierre(t *testing.T) {
	// 3 × 0.3335 = 1.0005 → 1.001 (mitad lejos de cero)
	lines := []fiscal.LineItem{{Quantity: d("3"), UnitPrice: d("0.3335"), TaxRatePct: d("19")}}
	tot, err := fiscal.ComputeTotals(lines, fiscal.Modifiers{})
	require.NoError(t, err)

	assertAmount(t, "1.001", tot.TotalExclTax, "HT")
	assertAmount(t, "0.190", tot.TotalTax, "TVA") // 0.190095
	assertAmount(t, "1.191", tot.TotalInclTax, "TTC")
}

func TestComputeTotals_RemiseDeLinea(t *testing.T) {
	lines := []fiscal.LineItem{{Quantity: d("4"), UnitPrice: d("25"), DiscountPct: d("12.5"), TaxRatePct: d("13")}}
	tot, err := fiscal.ComputeTotals(lines, fiscal.Modifiers{})
	require.NoError(t, err)

	assertAmount(t, "87.500", tot.TotalExclTax, "HT")
	assertAmount(t, "11.375", tot.TotalTax, "TVA")
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades
// ──────────────────────────────────────────────────────────────────────────────

func sampleLines() []fiscal.LineItem {
	return []fiscal.LineItem{
		{Quantity: d("3"), UnitPrice: d("12.345"), DiscountPct: d("5"), TaxRatePct: d("19")},
		{Quantity: d("1.5"), UnitPrice: d("7.777"), TaxRatePct: d("7")},
		{Quantity: d("10"), UnitPrice: d("0.999"), DiscountPct: d("33.3"), TaxRatePct: d("13")},
		{Quantity: d("2"), UnitPrice: d("45"), TaxRatePct: d("0")},
	}
}

func fullModifiers() fiscal.Modifiers {
	return fiscal.Modifiers{
		GlobalDiscountPct:  d("7.5"),
		SpecialTaxEnabled:  true,
		SpecialTaxRatePct:  d("1"),
		FiscalStampEnabled: true,
		FiscalStampAmount:  d("1"),
		WithholdingEnabled: true,
		WithholdingRatePct: d("1"),
	}
}

func TestComputeTotals_Idempotente(t *testing.T) {
	a, err := fiscal.ComputeTotals(sampleLines(), fullModifiers())
	require.NoError(t, err)
	b, err := fiscal.ComputeTotals(sampleLines(), fullModifiers())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeTotals_TTCEsSumaExacta(t *testing.T) {
	variants := []fiscal.Modifiers{
		{},
		{GlobalDiscountPct: d("3.33")},
		{SpecialTaxEnabled: true, SpecialTaxRatePct: d("1")},
		fullModifiers(),
	}
	for i, mods := range variants {
		tot, err := fiscal.ComputeTotals(sampleLines(), mods)
		require.NoError(t, err)
		sum := tot.TotalExclTax.Add(tot.SpecialTaxAmount).Add(tot.TotalTax).Add(tot.FiscalStampAmount)
		assert.True(t, sum.Equal(tot.TotalInclTax), "variante %d: %s != %s", i, sum, tot.TotalInclTax)
		assert.True(t, tot.TotalInclTax.Sub(tot.WithholdingAmount).Equal(tot.NetPayable), "variante %d", i)
		assert.LessOrEqual(t, -tot.TotalInclTax.Exponent(), int32(3), "variante %d: más de 3 decimales", i)
	}
}

func TestComputeTotals_MonotonoEnPrecio(t *testing.T) {
	prev := decimal.NewFromInt(-1)
	for _, price := range []string{"0", "0.001", "0.5", "1", "12.345", "99.999", "1000"} {
		lines := sampleLines()
		lines[1].UnitPrice = d(price)
		tot, err := fiscal.ComputeTotals(lines, fullModifiers())
		require.NoError(t, err)
		assert.True(t, tot.TotalInclTax.GreaterThanOrEqual(prev), "precio %s reduce el TTC", price)
		prev = tot.TotalInclTax
	}
}

func TestComputeTotals_FodecDesactivadoRecalculaTodo(t *testing.T) {
	mods := fiscal.Modifiers{SpecialTaxEnabled: true, SpecialTaxRatePct: d("1")}
	withFodec, err := fiscal.ComputeTotals([]fiscal.LineItem{baseLine()}, mods)
	require.NoError(t, err)
	require.False(t, withFodec.SpecialTaxAmount.IsZero())

	mods.SpecialTaxEnabled = false
	without, err := fiscal.ComputeTotals([]fiscal.LineItem{baseLine()}, mods)
	require.NoError(t, err)

	assert.True(t, without.SpecialTaxAmount.IsZero())
	assertAmount(t, "38.000", without.TotalTax, "TVA sin FODEC")
	assertAmount(t, "238.000", without.TotalInclTax, "TTC sin FODEC")
}

func TestComputeTotals_AvoirEsNegacionExacta(t *testing.T) {
	mods := fiscal.Modifiers{
		GlobalDiscountPct: d("7.5"),
		SpecialTaxEnabled: true,
		SpecialTaxRatePct: d("1"),
	}
	invoice, err := fiscal.ComputeTotals(sampleLines(), mods)
	require.NoError(t, err)

	credit := sampleLines()
	for i := range credit {
		credit[i].Quantity = credit[i].Quantity.Neg()
	}
	mods.AllowNegativeQuantities = true
	avoir, err := fiscal.ComputeTotals(credit, mods)
	require.NoError(t, err)

	assert.True(t, avoir.TotalExclTax.Equal(invoice.TotalExclTax.Neg()))
	assert.True(t, avoir.SpecialTaxAmount.Equal(invoice.SpecialTaxAmount.Neg()))
	assert.True(t, avoir.TotalTax.Equal(invoice.TotalTax.Neg()))
	assert.True(t, avoir.TotalInclTax.Equal(invoice.TotalInclTax.Neg()))
	assert.True(t, avoir.TotalInclTax.IsNegative(), "no debe recortarse a cero")
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeTotals_ErroresDeValidacion(t *testing.T) {
	ok := baseLine()
	tests := []struct {
		name      string
		lines     []fiscal.LineItem
		mods      fiscal.Modifiers
		wantLine  int
		wantField string
	}{
		{"cantidad negativa", []fiscal.LineItem{ok, {Quantity: d("-1"), UnitPrice: d("1")}}, fiscal.Modifiers{}, 1, "quantity"},
		{"precio negativo", []fiscal.LineItem{{Quantity: d("1"), UnitPrice: d("-0.001")}}, fiscal.Modifiers{}, 0, "unitPrice"},
		{"remise de línea > 100", []fiscal.LineItem{ok, ok, {Quantity: d("1"), UnitPrice: d("1"), DiscountPct: d("100.5")}}, fiscal.Modifiers{}, 2, "discountPct"},
		{"tasa negativa", []fiscal.LineItem{{Quantity: d("1"), UnitPrice: d("1"), TaxRatePct: d("-7")}}, fiscal.Modifiers{}, 0, "taxRatePct"},
		{"remise globale > 100", []fiscal.LineItem{ok}, fiscal.Modifiers{GlobalDiscountPct: d("101")}, fiscal.DocumentLevel, "globalDiscountPct"},
		{"FODEC fuera de rango", []fiscal.LineItem{ok}, fiscal.Modifiers{SpecialTaxEnabled: true, SpecialTaxRatePct: d("-1")}, fiscal.DocumentLevel, "specialTaxRatePct"},
		{"timbre negativo", []fiscal.LineItem{ok}, fiscal.Modifiers{FiscalStampEnabled: true, FiscalStampAmount: d("-1")}, fiscal.DocumentLevel, "fiscalStampAmount"},
		{"retenue fuera de rango", []fiscal.LineItem{ok}, fiscal.Modifiers{WithholdingEnabled: true, WithholdingRatePct: d("150")}, fiscal.DocumentLevel, "withholdingRatePct"},
		{"precio con más de 6 decimales", []fiscal.LineItem{{Quantity: d("2500"), UnitPrice: d("0.0000004"), TaxRatePct: d("19")}}, fiscal.Modifiers{}, 0, "unitPrice"},
		{"cantidad con más de 6 decimales", []fiscal.LineItem{ok, {Quantity: d("1.0000001"), UnitPrice: d("1")}}, fiscal.Modifiers{}, 1, "quantity"},
		{"cantidad gigante", []fiscal.LineItem{{Quantity: d("1e2000000"), UnitPrice: d("1")}}, fiscal.Modifiers{}, 0, "quantity"},
		{"cantidad ínfima", []fiscal.LineItem{{Quantity: d("1e-2000000"), UnitPrice: d("1")}}, fiscal.Modifiers{}, 0, "quantity"},
		{"precio de 13 cifras", []fiscal.LineItem{{Quantity: d("1"), UnitPrice: d("1000000000000")}}, fiscal.Modifiers{}, 0, "unitPrice"},
		{"tasa con 5 decimales", []fiscal.LineItem{{Quantity: d("1"), UnitPrice: d("1"), TaxRatePct: d("19.00001")}}, fiscal.Modifiers{}, 0, "taxRatePct"},
		{"timbre con 4 decimales", []fiscal.LineItem{ok}, fiscal.Modifiers{FiscalStampEnabled: true, FiscalStampAmount: d("1.0005")}, fiscal.DocumentLevel, "fiscalStampAmount"},
		{"línea que desborda el importe", []fiscal.LineItem{{Quantity: d("999999999999"), UnitPrice: d("999999999999")}}, fiscal.Modifiers{}, 0, "totalExclTax"},
		{"documento que desborda el importe", []fiscal.LineItem{
			{Quantity: d("1000"), UnitPrice: d("999999999999"), TaxRatePct: d("19")},
		}, fiscal.Modifiers{}, fiscal.DocumentLevel, "totalInclTax"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tot, err := fiscal.ComputeTotals(tt.lines, tt.mods)
			require.Error(t, err)
			assert.Equal(t, fiscal.Totals{}, tot, "no se devuelven totales parciales")
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))

			var ve *fiscal.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantLine, ve.Line)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestComputeTotals_ModificadoresDesactivadosTambienSeValidan(t *testing.T) {
	tests := []struct {
		name      string
		mods      fiscal.Modifiers
		wantField string
	}{
		{"FODEC", fiscal.Modifiers{SpecialTaxRatePct: d("99999")}, "specialTaxRatePct"},
		{"retenue", fiscal.Modifiers{WithholdingRatePct: d("-3")}, "withholdingRatePct"},
		{"timbre", fiscal.Modifiers{FiscalStampAmount: d("-1")}, "fiscalStampAmount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fiscal.ComputeTotals([]fiscal.LineItem{baseLine()}, tt.mods)
			var ve *fiscal.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestComputeTotals_LimitesDeColumnaAceptados(t *testing.T) {
	lines := []fiscal.LineItem{{Quantity: d("1.123456"), UnitPrice: d("999999999.999999"), TaxRatePct: d("19.1234")}}
	tot, err := fiscal.ComputeTotals(lines, fiscal.Modifiers{GlobalDiscountPct: d("0.0001")})
	require.NoError(t, err)
	assert.True(t, tot.TotalInclTax.IsPositive())
}

func TestValidationError_Mensaje(t *testing.T) {
	e := &fiscal.ValidationError{Line: 2, Field: "quantity", Value: "-1", Reason: "no puede ser negativa"}
	assert.Equal(t, "línea 2: quantity=-1: no puede ser negativa", e.Error())

	e = &fiscal.ValidationError{Line: fiscal.DocumentLevel, Field: "globalDiscountPct", Value: "101", Reason: "fuera de [0,100]"}
	assert.Equal(t, "documento: globalDiscountPct=101: fuera de [0,100]", e.Error())
}
