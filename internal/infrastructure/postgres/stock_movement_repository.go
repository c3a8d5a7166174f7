package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de movimientos de inventario (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create registra un movimiento.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (id, tenant_id, document_id, line_id, warehouse_ref, product_ref, direction, quantity, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.TenantID, m.DocumentID, nullIfEmpty(m.LineID), m.WarehouseRef, nullIfEmpty(m.ProductRef),
		m.Direction, m.Quantity, nullIfEmpty(m.CreatedBy), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// ListByDocument devuelve los movimientos de un documento en orden de alta.
func (r *StockMovementRepo) ListByDocument(ctx context.Context, tenantID, documentID string) ([]*entity.StockMovement, error) {
	query := `
		SELECT id::text, tenant_id, document_id::text, COALESCE(line_id::text, ''), warehouse_ref, COALESCE(product_ref, ''),
		       direction, quantity, COALESCE(created_by, ''), created_at
		FROM stock_movements
		WHERE tenant_id = $1 AND document_id = $2
		ORDER BY seq`
	rows, err := r.q.Query(ctx, query, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(&m.ID, &m.TenantID, &m.DocumentID, &m.LineID, &m.WarehouseRef, &m.ProductRef,
			&m.Direction, &m.Quantity, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// DeleteByDocument elimina los movimientos de un documento (reescritura de borradores).
func (r *StockMovementRepo) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM stock_movements WHERE tenant_id = $1 AND document_id = $2`, tenantID, documentID)
	if err != nil {
		return fmt.Errorf("delete stock movements: %w", err)
	}
	return nil
}
