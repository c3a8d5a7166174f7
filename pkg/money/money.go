// Package money agrupa las reglas de redondeo y presentación del dinar tunecino
// (TND, 3 decimales: 1 dinar = 1000 millimes).
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Scale es la precisión monetaria del dominio.
const Scale int32 = 3

// Round redondea a 3 decimales (half-up, alejándose de cero en el .5).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Percent devuelve base × pct / 100, exacto y sin redondear.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Shift(-2)
}

// Factor devuelve (1 − pct/100), el multiplicador de una remise.
func Factor(discountPct decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(discountPct.Shift(-2))
}

// Fixed devuelve el importe con exactamente 3 decimales ("238.000").
func Fixed(d decimal.Decimal) string {
	return Round(d).StringFixed(Scale)
}

// FitsNumeric indica si d cabe sin pérdida en una columna NUMERIC(precision, scale).
// Solo mira coeficiente y exponente: nunca expande valores como 1e2000000.
func FitsNumeric(d decimal.Decimal, precision, scale int32) bool {
	if d.IsZero() {
		return true
	}
	digits := int32(d.NumDigits())
	if digits+d.Exponent() > precision-scale {
		return false
	}
	if d.Exponent() >= -scale {
		return true
	}
	// Un coeficiente de n cifras tiene como mucho n-1 ceros finales.
	if -d.Exponent()-scale >= digits {
		return false
	}
	return d.Truncate(scale).Equal(d)
}

var printer = message.NewPrinter(language.French)

// Format devuelve el importe con separadores franceses ("1 234,567"), para PDF.
func Format(d decimal.Decimal) string {
	f, _ := Round(d).Float64()
	return printer.Sprint(number.Decimal(f, number.Scale(int(Scale))))
}
