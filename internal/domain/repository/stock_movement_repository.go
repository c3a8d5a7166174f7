package repository

import (
	"context"

	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
)

// StockMovementRepository define el puerto del libro de inventario (DIP).
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	ListByDocument(ctx context.Context, tenantID, documentID string) ([]*entity.StockMovement, error)
	// DeleteByDocument anula los movimientos de un borrador antes de reescribirlos.
	DeleteByDocument(ctx context.Context, tenantID, documentID string) error
}
