package repository

import (
	"context"

	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company (DIP).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	// Save inserta o actualiza la ficha fiscal del tenant (upsert por ID).
	Save(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	GetByMatricule(ctx context.Context, matricule string) (*entity.Company, error)
}
