package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockMovement es el asiento de inventario que deja una línea de BL o de bon de réception.
type StockMovement struct {
	ID           string
	TenantID     string
	DocumentID   string
	LineID       string
	WarehouseRef string
	ProductRef   string
	Direction    string          // IN, OUT
	Quantity     decimal.Decimal // positivo en IN, negativo en OUT
	CreatedBy    string
	CreatedAt    time.Time
}
