package tn

// =============================================================================
// TEIF - tipos de documento (Bgm/DocumentType@code)
// =============================================================================

const (
	DocTypeInvoice    = "I-11" // Facture
	DocTypeCreditNote = "I-12" // Facture d'avoir
	DocTypeQuote      = "I-13" // Devis / facture pro forma
	DocTypeDelivery   = "I-14" // Bon de livraison
	DocTypePurchase   = "I-15" // Facture fournisseur
	DocTypeReceipt    = "I-16" // Bon de réception
)

// =============================================================================
// TEIF - calificadores de importes (InvoiceMoa/AmountDetails/Moa@amountTypeCode)
// =============================================================================

const (
	AmountTotalExclTax  = "I-176" // Total HT
	AmountTotalTax      = "I-181" // Total taxes
	AmountTotalInclTax  = "I-180" // Total TTC
	AmountTotalDiscount = "I-179" // Total remises
	AmountNetPayable    = "I-183" // Net à payer
	AmountLineExclTax   = "I-171" // Montant HT de la ligne
)

// =============================================================================
// TEIF - tipos de impuesto (InvoiceTax/Tax/TaxTypeName@code)
// =============================================================================

const (
	TaxTypeStamp       = "I-1601" // Droit de timbre
	TaxTypeVAT         = "I-1602" // TVA
	TaxTypeFodec       = "I-162"  // FODEC
	TaxTypeWithholding = "I-1604" // Retenue à la source
)

// Tasas de TVA vigentes (en %).
var VATRates = []int{0, 7, 13, 19}

// IsStandardVATRate indica si pct es una de las tasas de TVA vigentes.
func IsStandardVATRate(pct int) bool {
	for _, r := range VATRates {
		if r == pct {
			return true
		}
	}
	return false
}

// =============================================================================
// TEIF - importes del desglose de impuestos y fechas
// =============================================================================

const (
	AmountTaxBase   = "I-177" // Base imponible
	AmountTaxAmount = "I-178" // Importe del impuesto
	AmountStamp     = "I-182" // Timbre fiscal (total)

	DateIssue = "I-31" // Fecha de emisión
	DateDue   = "I-32" // Fecha límite de pago

	// Formato ddMMyy usado por DateText@format.
	DateFormatDDMMYY = "ddMMyy"
)

// =============================================================================
// TEIF - partes (PartnerDetails@functionCode) e identificadores
// =============================================================================

const (
	PartnerSeller = "I-62"
	PartnerBuyer  = "I-64"

	IdentifierMatricule = "I-01" // matricule fiscal
	IdentifierOther     = "I-04" // identificador interno (CIN, pasaporte...)
)
