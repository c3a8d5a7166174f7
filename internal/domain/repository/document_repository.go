package repository

import (
	"context"
	"time"

	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
)

// DocumentFilter criterios opcionales de List. Los campos vacíos no filtran.
type DocumentFilter struct {
	Kind   entity.Kind
	Status string
	Party  string // coincidencia parcial sobre nombre o matricule del tercero
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// DocumentRepository define el puerto de persistencia de documentos y sus líneas.
// GetByID devuelve (nil, nil) si no existe o pertenece a otro tenant.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	// Update reescribe cabecera y totales y reemplaza todas las líneas.
	Update(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Document, error)
	List(ctx context.Context, tenantID string, filter DocumentFilter) ([]*entity.Document, int, error)
	// MarkValidated pasa un borrador a validado. Devuelve ErrDocumentLocked si ya no es borrador.
	MarkValidated(ctx context.Context, tenantID, id, fingerprint string, at time.Time) error
}
