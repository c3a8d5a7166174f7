package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/fiscal"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q       Querier
	builder sq.StatementBuilderType
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{
		q:       q,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// taxBucketRow forma JSONB del desglose de TVA.
type taxBucketRow struct {
	RatePct decimal.Decimal `json:"rate_pct"`
	Base    decimal.Decimal `json:"base"`
	Amount  decimal.Decimal `json:"amount"`
}

var headerColumns = []string{
	"id::text", "tenant_id", "kind", "number", "status", "issue_date", "due_date",
	"party_name", "COALESCE(party_tax_id, '')", "COALESCE(party_address, '')", "COALESCE(warehouse_ref, '')",
	"currency", "COALESCE(notes, '')", "COALESCE(source_id::text, '')",
	"global_discount_pct", "special_tax_enabled", "special_tax_rate_pct",
	"fiscal_stamp_enabled", "fiscal_stamp_amount", "withholding_enabled", "withholding_rate_pct",
	"gross_excl_tax", "global_discount_amount", "total_excl_tax", "special_tax_amount", "total_tax",
	"total_fiscal_stamp", "total_incl_tax", "withholding_amount", "net_payable", "tax_breakdown",
	"COALESCE(fingerprint, '')", "COALESCE(created_by, '')", "validated_at", "created_at", "updated_at",
}

// Create persiste cabecera y líneas. Un número repetido para (tenant, tipo) es ErrDuplicate.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO documents (
			id, tenant_id, kind, number, status, issue_date, due_date,
			party_name, party_tax_id, party_address, warehouse_ref, currency, notes, source_id,
			global_discount_pct, special_tax_enabled, special_tax_rate_pct,
			fiscal_stamp_enabled, fiscal_stamp_amount, withholding_enabled, withholding_rate_pct,
			gross_excl_tax, global_discount_amount, total_excl_tax, special_tax_amount, total_tax,
			total_fiscal_stamp, total_incl_tax, withholding_amount, net_payable, tax_breakdown,
			fingerprint, created_by, validated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36)`
	m, t := doc.Modifiers, doc.Totals
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.TenantID, string(doc.Kind), doc.Number, doc.Status, doc.IssueDate, doc.DueDate,
		doc.PartyName, nullIfEmpty(doc.PartyTaxID), nullIfEmpty(doc.PartyAddress), nullIfEmpty(doc.WarehouseRef),
		doc.Currency, nullIfEmpty(doc.Notes), nullIfEmpty(doc.SourceID),
		m.GlobalDiscountPct, m.SpecialTaxEnabled, m.SpecialTaxRatePct,
		m.FiscalStampEnabled, m.FiscalStampAmount, m.WithholdingEnabled, m.WithholdingRatePct,
		t.GrossExclTax, t.GlobalDiscountAmount, t.TotalExclTax, t.SpecialTaxAmount, t.TotalTax,
		t.FiscalStampAmount, t.TotalInclTax, t.WithholdingAmount, t.NetPayable, breakdownRows(t.TaxBreakdown),
		nullIfEmpty(doc.Fingerprint), nullIfEmpty(doc.CreatedBy), doc.ValidatedAt, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número %s ya existe", domain.ErrDuplicate, doc.Number)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return r.insertLines(ctx, doc)
}

// Update reescribe cabecera y totales de un borrador y reemplaza sus líneas.
// El número, el tipo y el tenant no se tocan.
func (r *DocumentRepo) Update(ctx context.Context, doc *entity.Document) error {
	query := `
		UPDATE documents
		SET issue_date = $3, due_date = $4, party_name = $5, party_tax_id = $6, party_address = $7,
		    warehouse_ref = $8, notes = $9,
		    global_discount_pct = $10, special_tax_enabled = $11, special_tax_rate_pct = $12,
		    fiscal_stamp_enabled = $13, fiscal_stamp_amount = $14, withholding_enabled = $15, withholding_rate_pct = $16,
		    gross_excl_tax = $17, global_discount_amount = $18, total_excl_tax = $19, special_tax_amount = $20,
		    total_tax = $21, total_fiscal_stamp = $22, total_incl_tax = $23, withholding_amount = $24,
		    net_payable = $25, tax_breakdown = $26, updated_at = $27
		WHERE tenant_id = $1 AND id = $2 AND status = 'draft'`
	m, t := doc.Modifiers, doc.Totals
	tag, err := r.q.Exec(ctx, query,
		doc.TenantID, doc.ID, doc.IssueDate, doc.DueDate, doc.PartyName,
		nullIfEmpty(doc.PartyTaxID), nullIfEmpty(doc.PartyAddress), nullIfEmpty(doc.WarehouseRef), nullIfEmpty(doc.Notes),
		m.GlobalDiscountPct, m.SpecialTaxEnabled, m.SpecialTaxRatePct,
		m.FiscalStampEnabled, m.FiscalStampAmount, m.WithholdingEnabled, m.WithholdingRatePct,
		t.GrossExclTax, t.GlobalDiscountAmount, t.TotalExclTax, t.SpecialTaxAmount,
		t.TotalTax, t.FiscalStampAmount, t.TotalInclTax, t.WithholdingAmount,
		t.NetPayable, breakdownRows(t.TaxBreakdown), doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Otro request lo validó entre la lectura y la escritura.
		return domain.ErrDocumentLocked
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("delete document lines: %w", err)
	}
	return r.insertLines(ctx, doc)
}

func (r *DocumentRepo) insertLines(ctx context.Context, doc *entity.Document) error {
	if len(doc.Lines) == 0 {
		return nil
	}
	ins := r.builder.Insert("document_lines").Columns(
		"id", "document_id", "position", "product_ref", "description",
		"quantity", "unit_price", "discount_pct", "tax_rate_pct", "total_excl_tax", "tax_amount",
	)
	for _, l := range doc.Lines {
		ins = ins.Values(
			l.ID, doc.ID, l.Position, nullIfEmpty(l.ProductRef), l.Description,
			l.Quantity, l.UnitPrice, l.DiscountPct, l.TaxRatePct, l.TotalExclTax, l.TaxAmount,
		)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert document lines: %w", err)
	}
	return nil
}

// GetByID obtiene el documento con sus líneas. (nil, nil) si no existe en el tenant.
func (r *DocumentRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Document, error) {
	query, args, err := r.builder.Select(headerColumns...).
		From("documents").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get document: %w", err)
	}
	doc, err := scanDocument(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc.Lines, err = r.lines(ctx, doc.ID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepo) lines(ctx context.Context, documentID string) ([]*entity.DocumentLine, error) {
	query := `
		SELECT id::text, document_id::text, position, COALESCE(product_ref, ''), description,
		       quantity, unit_price, discount_pct, tax_rate_pct, total_excl_tax, tax_amount
		FROM document_lines WHERE document_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document lines: %w", err)
	}
	defer rows.Close()

	var list []*entity.DocumentLine
	for rows.Next() {
		var l entity.DocumentLine
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.Position, &l.ProductRef, &l.Description,
			&l.Quantity, &l.UnitPrice, &l.DiscountPct, &l.TaxRatePct, &l.TotalExclTax, &l.TaxAmount); err != nil {
			return nil, err
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// List devuelve la página pedida (sin líneas) y el total de coincidencias.
func (r *DocumentRepo) List(ctx context.Context, tenantID string, f repository.DocumentFilter) ([]*entity.Document, int, error) {
	where := listConditions(tenantID, f)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").From("documents").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count documents: %w", err)
	}
	var total int
	if err := r.q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	qb := r.builder.Select(headerColumns...).
		From("documents").
		Where(where).
		OrderBy("issue_date DESC", "created_at DESC")
	if f.Limit > 0 {
		qb = qb.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		qb = qb.Offset(uint64(f.Offset))
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list documents: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var list []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, doc)
	}
	return list, total, rows.Err()
}

// listConditions traduce el filtro a condiciones squirrel.
func listConditions(tenantID string, f repository.DocumentFilter) sq.And {
	where := sq.And{sq.Eq{"tenant_id": tenantID}}
	if f.Kind != "" {
		where = append(where, sq.Eq{"kind": string(f.Kind)})
	}
	if f.Status != "" {
		where = append(where, sq.Eq{"status": f.Status})
	}
	if f.Party != "" {
		pattern := "%" + f.Party + "%"
		where = append(where, sq.Or{
			sq.ILike{"party_name": pattern},
			sq.ILike{"party_tax_id": pattern},
		})
	}
	if f.From != nil {
		where = append(where, sq.GtOrEq{"issue_date": *f.From})
	}
	if f.To != nil {
		where = append(where, sq.LtOrEq{"issue_date": *f.To})
	}
	return where
}

// MarkValidated pasa el borrador a validado y guarda la huella.
func (r *DocumentRepo) MarkValidated(ctx context.Context, tenantID, id, fingerprint string, at time.Time) error {
	query := `
		UPDATE documents
		SET status = 'validated', fingerprint = $3, validated_at = $4, updated_at = $4
		WHERE tenant_id = $1 AND id = $2 AND status = 'draft'`
	tag, err := r.q.Exec(ctx, query, tenantID, id, fingerprint, at)
	if err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := r.q.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM documents WHERE tenant_id = $1 AND id = $2)`, tenantID, id,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("validate document: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrDocumentLocked
	}
	return nil
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var (
		doc       entity.Document
		kind      string
		breakdown []taxBucketRow
	)
	m, t := &doc.Modifiers, &doc.Totals
	err := row.Scan(
		&doc.ID, &doc.TenantID, &kind, &doc.Number, &doc.Status, &doc.IssueDate, &doc.DueDate,
		&doc.PartyName, &doc.PartyTaxID, &doc.PartyAddress, &doc.WarehouseRef,
		&doc.Currency, &doc.Notes, &doc.SourceID,
		&m.GlobalDiscountPct, &m.SpecialTaxEnabled, &m.SpecialTaxRatePct,
		&m.FiscalStampEnabled, &m.FiscalStampAmount, &m.WithholdingEnabled, &m.WithholdingRatePct,
		&t.GrossExclTax, &t.GlobalDiscountAmount, &t.TotalExclTax, &t.SpecialTaxAmount, &t.TotalTax,
		&t.FiscalStampAmount, &t.TotalInclTax, &t.WithholdingAmount, &t.NetPayable, &breakdown,
		&doc.Fingerprint, &doc.CreatedBy, &doc.ValidatedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Kind = entity.Kind(kind)
	if p, err := doc.Kind.Policy(); err == nil {
		m.AllowNegativeQuantities = p.NegativeQuantities
	}
	for _, b := range breakdown {
		t.TaxBreakdown = append(t.TaxBreakdown, fiscal.TaxBucket{RatePct: b.RatePct, Base: b.Base, Amount: b.Amount})
	}
	return &doc, nil
}

func breakdownRows(buckets []fiscal.TaxBucket) []taxBucketRow {
	rows := make([]taxBucketRow, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, taxBucketRow{RatePct: b.RatePct, Base: b.Base, Amount: b.Amount})
	}
	return rows
}
