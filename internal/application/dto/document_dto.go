package dto

import "github.com/shopspring/decimal"

// DocumentRequest body para POST /api/documents/:kind y PUT /api/documents/:id.
// Los totales nunca se aceptan del cliente: se recalculan siempre.
type DocumentRequest struct {
	IssueDate    string                `json:"issue_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueDate      string                `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PartyName    string                `json:"party_name" validate:"required,max=255"`
	PartyTaxID   string                `json:"party_tax_id,omitempty" validate:"omitempty,max=32"`
	PartyAddress string                `json:"party_address,omitempty" validate:"omitempty,max=500"`
	WarehouseRef string                `json:"warehouse_ref,omitempty" validate:"omitempty,max=64"`
	Notes        string                `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Modifiers    ModifiersRequest      `json:"modifiers"`
	Lines        []DocumentLineRequest `json:"lines" validate:"max=500,dive"`
}

// ModifiersRequest ajustes a nivel de documento. Las tasas nulas toman el valor configurado.
type ModifiersRequest struct {
	GlobalDiscountPct  decimal.Decimal  `json:"global_discount_pct"`
	SpecialTaxEnabled  bool             `json:"special_tax_enabled"`
	SpecialTaxRatePct  *decimal.Decimal `json:"special_tax_rate_pct,omitempty"`
	FiscalStampEnabled bool             `json:"fiscal_stamp_enabled"`
	FiscalStampAmount  *decimal.Decimal `json:"fiscal_stamp_amount,omitempty"`
	WithholdingEnabled bool             `json:"withholding_enabled"`
	WithholdingRatePct *decimal.Decimal `json:"withholding_rate_pct,omitempty"`
}

// DocumentLineRequest línea del documento.
type DocumentLineRequest struct {
	ProductRef  string          `json:"product_ref,omitempty" validate:"omitempty,max=64"`
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	TaxRatePct  decimal.Decimal `json:"tax_rate_pct"`
}

// PreviewRequest body para POST /api/documents/:kind/preview.
type PreviewRequest struct {
	Modifiers ModifiersRequest      `json:"modifiers"`
	Lines     []DocumentLineRequest `json:"lines" validate:"max=500"`
}

// ListDocumentsQuery filtros de GET /api/documents.
type ListDocumentsQuery struct {
	Kind   string `query:"kind"`
	Status string `query:"status" validate:"omitempty,oneof=draft validated cancelled"`
	Party  string `query:"party" validate:"omitempty,max=255"`
	From   string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit  int    `query:"limit" validate:"min=0,max=100"`
	Offset int    `query:"offset" validate:"min=0"`
}

// TotalsResponse importes con 3 decimales. NetPayable se omite en tipos sin net à payer.
type TotalsResponse struct {
	GrossExclTax         string              `json:"gross_excl_tax"`
	GlobalDiscountAmount string              `json:"global_discount_amount"`
	TotalExclTax         string              `json:"total_excl_tax"`
	SpecialTaxAmount     string              `json:"special_tax_amount"`
	TotalTax             string              `json:"total_tax"`
	FiscalStampAmount    string              `json:"fiscal_stamp_amount"`
	TotalInclTax         string              `json:"total_incl_tax"`
	WithholdingAmount    string              `json:"withholding_amount,omitempty"`
	NetPayable           string              `json:"net_payable,omitempty"`
	TaxBreakdown         []TaxBucketResponse `json:"tax_breakdown"`
}

// TaxBucketResponse base y TVA por tasa.
type TaxBucketResponse struct {
	RatePct string `json:"rate_pct"`
	Base    string `json:"base"`
	Amount  string `json:"amount"`
}

// ModifiersResponse modificadores efectivos tras aplicar la política del tipo.
type ModifiersResponse struct {
	GlobalDiscountPct  string `json:"global_discount_pct"`
	SpecialTaxEnabled  bool   `json:"special_tax_enabled"`
	SpecialTaxRatePct  string `json:"special_tax_rate_pct"`
	FiscalStampEnabled bool   `json:"fiscal_stamp_enabled"`
	FiscalStampAmount  string `json:"fiscal_stamp_amount"`
	WithholdingEnabled bool   `json:"withholding_enabled"`
	WithholdingRatePct string `json:"withholding_rate_pct"`
}

// DocumentLineResponse línea con sus importes calculados.
type DocumentLineResponse struct {
	ID           string `json:"id,omitempty"`
	Position     int    `json:"position"`
	ProductRef   string `json:"product_ref,omitempty"`
	Description  string `json:"description"`
	Quantity     string `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	DiscountPct  string `json:"discount_pct"`
	TaxRatePct   string `json:"tax_rate_pct"`
	TotalExclTax string `json:"total_excl_tax"`
	TaxAmount    string `json:"tax_amount"`
}

// DocumentResponse documento completo para GET /api/documents/:id.
type DocumentResponse struct {
	ID           string                 `json:"id"`
	Kind         string                 `json:"kind"`
	Number       string                 `json:"number"`
	Status       string                 `json:"status"`
	IssueDate    string                 `json:"issue_date"`
	DueDate      string                 `json:"due_date,omitempty"`
	PartyName    string                 `json:"party_name"`
	PartyTaxID   string                 `json:"party_tax_id,omitempty"`
	PartyAddress string                 `json:"party_address,omitempty"`
	WarehouseRef string                 `json:"warehouse_ref,omitempty"`
	Currency     string                 `json:"currency"`
	Notes        string                 `json:"notes,omitempty"`
	SourceID     string                 `json:"source_id,omitempty"`
	Fingerprint  string                 `json:"fingerprint,omitempty"`
	Modifiers    ModifiersResponse      `json:"modifiers"`
	Totals       TotalsResponse         `json:"totals"`
	Lines        []DocumentLineResponse `json:"lines"`
	CreatedAt    string                 `json:"created_at"`
	ValidatedAt  string                 `json:"validated_at,omitempty"`
}

// DocumentSummary fila de listado.
type DocumentSummary struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Number       string `json:"number"`
	Status       string `json:"status"`
	IssueDate    string `json:"issue_date"`
	PartyName    string `json:"party_name"`
	TotalInclTax string `json:"total_incl_tax"`
	NetPayable   string `json:"net_payable,omitempty"`
}

// DocumentListResponse respuesta de GET /api/documents.
type DocumentListResponse struct {
	Items []DocumentSummary `json:"items"`
	Page  PageResponse      `json:"page"`
}

// PreviewResponse totales calculados sin persistir.
type PreviewResponse struct {
	Kind   string                 `json:"kind"`
	Totals TotalsResponse         `json:"totals"`
	Lines  []DocumentLineResponse `json:"lines"`
}
