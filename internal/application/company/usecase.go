// Package company administra la ficha fiscal del tenant emisor (nombre, matricule fiscal, contacto).
// El PDF y el TEIF toman de aquí los datos del vendedor.
package company

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/erp-tn-api/internal/application/dto"
	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
	"github.com/jhoicas/erp-tn-api/pkg/logger"
	"github.com/jhoicas/erp-tn-api/pkg/tn"
)

const statusActive = "active"

// UseCase lee y actualiza la empresa de cada tenant.
type UseCase struct {
	repo repository.CompanyRepository
	log  *logger.Logger
	now  func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(repo repository.CompanyRepository, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{repo: repo, log: log.Named("company"), now: time.Now}
}

// Get devuelve la ficha del tenant o domain.ErrNotFound si aún no se registró.
func (uc *UseCase) Get(ctx context.Context, tenantID string) (*dto.CompanyResponse, error) {
	c, err := uc.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(c), nil
}

// Save registra o actualiza la ficha. El matricule se guarda en forma canónica
// y no puede pertenecer a otro tenant.
func (uc *UseCase) Save(ctx context.Context, tenantID string, in dto.CompanyRequest) (*dto.CompanyResponse, error) {
	m, err := tn.ParseMatricule(in.Matricule)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	matricule := m.String()

	other, err := uc.repo.GetByMatricule(ctx, matricule)
	if err != nil {
		return nil, err
	}
	if other != nil && other.ID != tenantID {
		return nil, fmt.Errorf("%w: matricule %s ya registrado", domain.ErrDuplicate, matricule)
	}

	current, err := uc.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := uc.now().UTC()
	c := &entity.Company{
		ID:        tenantID,
		Name:      in.Name,
		Matricule: matricule,
		Address:   in.Address,
		Phone:     in.Phone,
		Email:     in.Email,
		Status:    statusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if current != nil {
		c.CreatedAt = current.CreatedAt
		c.Status = current.Status
	}
	if err := uc.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	uc.log.Info().Str("tenant_id", tenantID).Str("matricule", matricule).Bool("created", current == nil).Msg("ficha de empresa guardada")
	return toResponse(c), nil
}

func toResponse(c *entity.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:        c.ID,
		Name:      c.Name,
		Matricule: c.Matricule,
		Address:   c.Address,
		Phone:     c.Phone,
		Email:     c.Email,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
