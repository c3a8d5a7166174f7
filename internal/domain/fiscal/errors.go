package fiscal

import (
	"fmt"

	"github.com/jhoicas/erp-tn-api/internal/domain"
)

// DocumentLevel es el índice de línea usado cuando el error está en los modificadores.
const DocumentLevel = -1

// ValidationError identifica la línea y el campo que invalidan el cálculo.
// Envuelve domain.ErrInvalidInput para que el caller lo traduzca a un 4xx.
type ValidationError struct {
	Line   int    // índice 0-based, o DocumentLevel
	Field  string // quantity, unitPrice, discountPct, taxRatePct, globalDiscountPct, ...
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Line == DocumentLevel {
		return fmt.Sprintf("documento: %s=%s: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("línea %d: %s=%s: %s", e.Line, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidInput
}
