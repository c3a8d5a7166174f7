package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

const companyColumns = `id, name, matricule, COALESCE(address, ''), COALESCE(phone, ''), COALESCE(email, ''), status, created_at, updated_at`

// Save inserta la empresa o actualiza sus datos si el ID ya existe. created_at no se toca en la actualización.
func (r *CompanyRepo) Save(ctx context.Context, company *entity.Company) error {
	query := `
		INSERT INTO companies (id, name, matricule, address, phone, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			matricule = EXCLUDED.matricule,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		company.ID, company.Name, company.Matricule, nullIfEmpty(company.Address),
		nullIfEmpty(company.Phone), nullIfEmpty(company.Email), company.Status,
		company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: matricule %s", domain.ErrDuplicate, company.Matricule)
		}
		return fmt.Errorf("save company: %w", err)
	}
	return nil
}

// GetByID obtiene una empresa por ID. (nil, nil) si no existe.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
}

// GetByMatricule busca por matricule fiscal.
func (r *CompanyRepo) GetByMatricule(ctx context.Context, matricule string) (*entity.Company, error) {
	return r.getOne(ctx, `SELECT `+companyColumns+` FROM companies WHERE matricule = $1`, matricule)
}

func (r *CompanyRepo) getOne(ctx context.Context, query string, arg string) (*entity.Company, error) {
	var c entity.Company
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.Name, &c.Matricule, &c.Address, &c.Phone, &c.Email, &c.Status,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}
