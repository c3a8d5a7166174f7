package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
)

var _ repository.NumberingTemplateRepository = (*NumberingTemplateRepo)(nil)

// NumberingTemplateRepo plantillas de numeración por tenant.
type NumberingTemplateRepo struct {
	q Querier
}

// NewNumberingTemplateRepository construye el adaptador.
func NewNumberingTemplateRepository(q Querier) *NumberingTemplateRepo {
	return &NumberingTemplateRepo{q: q}
}

func (r *NumberingTemplateRepo) Get(ctx context.Context, tenantID string, kind entity.Kind) (*entity.NumberingTemplate, error) {
	const query = `
		SELECT template, updated_at FROM numbering_templates
		WHERE tenant_id = $1 AND kind = $2`
	t := entity.NumberingTemplate{TenantID: tenantID, Kind: kind}
	if err := r.q.QueryRow(ctx, query, tenantID, string(kind)).Scan(&t.Template, &t.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("leer plantilla: %w", err)
	}
	return &t, nil
}

func (r *NumberingTemplateRepo) Upsert(ctx context.Context, tpl *entity.NumberingTemplate) error {
	const query = `
		INSERT INTO numbering_templates (tenant_id, kind, template, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, kind) DO UPDATE
		SET template = EXCLUDED.template, updated_at = EXCLUDED.updated_at`
	if _, err := r.q.Exec(ctx, query, tpl.TenantID, string(tpl.Kind), tpl.Template, tpl.UpdatedAt); err != nil {
		return fmt.Errorf("guardar plantilla: %w", err)
	}
	return nil
}
