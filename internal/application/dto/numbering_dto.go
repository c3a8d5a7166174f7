package dto

// NumberingTemplateResponse plantilla efectiva de un tipo para GET /api/numbering/templates/:kind.
type NumberingTemplateResponse struct {
	Kind      string `json:"kind"`
	Template  string `json:"template"`
	IsDefault bool   `json:"is_default"`
	Preview   string `json:"preview"` // siguiente número con la fecha de hoy, sin reservarlo
	LastValue int64  `json:"last_value"`
}

// SetNumberingTemplateRequest body para PUT /api/numbering/templates/:kind.
type SetNumberingTemplateRequest struct {
	Template string `json:"template" validate:"required,max=64"`
	Base     *int64 `json:"base,omitempty" validate:"omitempty,min=1"`
}

// NextNumberResponse número reservado por POST /api/numbering/:kind/next.
type NextNumberResponse struct {
	Kind   string `json:"kind"`
	Number string `json:"number"`
}
