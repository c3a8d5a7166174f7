package company_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-tn-api/internal/application/company"
	"github.com/jhoicas/erp-tn-api/internal/application/dto"
	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
)

type memCompanies struct {
	byID    map[string]*entity.Company
	saveErr error
}

func newMemCompanies() *memCompanies { return &memCompanies{byID: map[string]*entity.Company{}} }

func (m *memCompanies) Save(_ context.Context, c *entity.Company) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCompanies) GetByID(_ context.Context, id string) (*entity.Company, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memCompanies) GetByMatricule(_ context.Context, matricule string) (*entity.Company, error) {
	for _, c := range m.byID {
		if c.Matricule == matricule {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func request() dto.CompanyRequest {
	return dto.CompanyRequest{Name: "Société Alpha", Matricule: "1234567 a a m 000", Address: "Tunis"}
}

func TestSave_CreaYNormalizaMatricule(t *testing.T) {
	repo := newMemCompanies()
	uc := company.NewUseCase(repo, nil)

	out, err := uc.Save(context.Background(), "tenant-1", request())
	require.NoError(t, err)
	assert.Equal(t, "1234567A/A/M/000", out.Matricule)
	assert.Equal(t, "active", out.Status)
	assert.Equal(t, "1234567A/A/M/000", repo.byID["tenant-1"].Matricule)
}

func TestSave_ActualizaConservandoCreatedAt(t *testing.T) {
	repo := newMemCompanies()
	created := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	repo.byID["tenant-1"] = &entity.Company{ID: "tenant-1", Name: "Vieja", Matricule: "1234567A/A/M/000", Status: "suspended", CreatedAt: created}
	uc := company.NewUseCase(repo, nil)

	out, err := uc.Save(context.Background(), "tenant-1", request())
	require.NoError(t, err)
	assert.Equal(t, "Société Alpha", out.Name)
	assert.Equal(t, created, out.CreatedAt)
	assert.Equal(t, "suspended", out.Status)
}

func TestSave_Errores(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*memCompanies)
		req     dto.CompanyRequest
		wantErr error
	}{
		{
			name:    "matricule inválido",
			req:     dto.CompanyRequest{Name: "X", Matricule: "123"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "matricule de otro tenant",
			setup: func(m *memCompanies) {
				m.byID["tenant-2"] = &entity.Company{ID: "tenant-2", Matricule: "1234567A/A/M/000"}
			},
			req:     request(),
			wantErr: domain.ErrDuplicate,
		},
		{
			name:    "fallo de persistencia",
			setup:   func(m *memCompanies) { m.saveErr = errors.New("db caída") },
			req:     request(),
			wantErr: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemCompanies()
			if tt.setup != nil {
				tt.setup(repo)
			}
			_, err := company.NewUseCase(repo, nil).Save(context.Background(), "tenant-1", tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGet(t *testing.T) {
	repo := newMemCompanies()
	uc := company.NewUseCase(repo, nil)

	_, err := uc.Get(context.Background(), "tenant-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.Save(context.Background(), "tenant-1", request())
	require.NoError(t, err)
	out, err := uc.Get(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", out.ID)
}
