package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contador atómico en PostgreSQL.
// Debe usarse con el pool, fuera de la transacción del documento: el número queda
// reservado aunque el documento luego falle, y la fila no queda bloqueada durante el alta.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Next incrementa y devuelve el contador en un único upsert (INSERT ... ON CONFLICT ... RETURNING).
// Postgres serializa los upserts concurrentes sobre la misma fila: no hay duplicados.
func (r *SequenceRepo) Next(ctx context.Context, tenantID string, kind entity.Kind) (int64, error) {
	const query = `
		INSERT INTO sequence_counters (tenant_id, kind, value, base, updated_at)
		VALUES ($1, $2, 1, 1, now())
		ON CONFLICT (tenant_id, kind) DO UPDATE
		SET value      = GREATEST(sequence_counters.value + 1, sequence_counters.base),
		    updated_at = now()
		RETURNING value`
	var value int64
	if err := r.q.QueryRow(ctx, query, tenantID, string(kind)).Scan(&value); err != nil {
		return 0, fmt.Errorf("incrementar secuencia %s/%s: %w", tenantID, kind, err)
	}
	return value, nil
}

// Get lee el estado del contador sin modificarlo.
func (r *SequenceRepo) Get(ctx context.Context, tenantID string, kind entity.Kind) (*entity.SequenceCounter, error) {
	const query = `
		SELECT tenant_id, kind, value, base, updated_at
		FROM sequence_counters WHERE tenant_id = $1 AND kind = $2`
	var c entity.SequenceCounter
	var k string
	err := r.q.QueryRow(ctx, query, tenantID, string(kind)).Scan(&c.TenantID, &k, &c.Value, &c.Base, &c.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("leer secuencia: %w", err)
	}
	c.Kind = entity.Kind(k)
	return &c, nil
}

// SetBase fija el primer valor a emitir. Como Next usa GREATEST, un contador
// que ya superó la base sigue su curso.
func (r *SequenceRepo) SetBase(ctx context.Context, tenantID string, kind entity.Kind, base int64) error {
	const query = `
		INSERT INTO sequence_counters (tenant_id, kind, value, base, updated_at)
		VALUES ($1, $2, 0, $3, now())
		ON CONFLICT (tenant_id, kind) DO UPDATE
		SET base = EXCLUDED.base, updated_at = now()`
	if _, err := r.q.Exec(ctx, query, tenantID, string(kind), base); err != nil {
		return fmt.Errorf("fijar base de secuencia: %w", err)
	}
	return nil
}
