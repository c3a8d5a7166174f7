package repository

import (
	"context"

	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
)

// SequenceStore reserva el siguiente valor del contador (tenant, tipo) en una sola
// operación atómica del almacén. Crea el contador en su base si no existe.
type SequenceStore interface {
	Next(ctx context.Context, tenantID string, kind entity.Kind) (int64, error)
}

// SequenceRepository añade la administración del contador al SequenceStore.
type SequenceRepository interface {
	SequenceStore
	// Get devuelve (nil, nil) si el contador aún no existe.
	Get(ctx context.Context, tenantID string, kind entity.Kind) (*entity.SequenceCounter, error)
	// SetBase fija el primer valor a emitir. Nunca hace retroceder un contador ya usado.
	SetBase(ctx context.Context, tenantID string, kind entity.Kind, base int64) error
}

// NumberingTemplateRepository persiste las plantillas de numeración por tenant.
type NumberingTemplateRepository interface {
	// Get devuelve (nil, nil) si el tenant no configuró plantilla para el tipo.
	Get(ctx context.Context, tenantID string, kind entity.Kind) (*entity.NumberingTemplate, error)
	Upsert(ctx context.Context, tpl *entity.NumberingTemplate) error
}
