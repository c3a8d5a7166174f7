// Package documents orquesta el ciclo de vida de los documentos comerciales:
// numeración al crear, recálculo de totales en cada alta o edición,
// movimientos de stock y sellado al validar.
package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/erp-tn-api/internal/application/dto"
	"github.com/jhoicas/erp-tn-api/internal/application/ports"
	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/fiscal"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
	"github.com/jhoicas/erp-tn-api/pkg/logger"
)

// DocumentUseCase crea, edita, valida y consulta documentos.
type DocumentUseCase struct {
	txRunner    DocumentTxRunner
	docRepo     repository.DocumentRepository
	companyRepo repository.CompanyRepository
	numberer    Numberer
	teif        TEIFBuilder
	metrics     ports.Metrics
	log         *logger.Logger
	defaults    Defaults
	now         func() time.Time
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(
	txRunner DocumentTxRunner,
	docRepo repository.DocumentRepository,
	companyRepo repository.CompanyRepository,
	numberer Numberer,
	teif TEIFBuilder,
	metrics ports.Metrics,
	log *logger.Logger,
	defaults Defaults,
) *DocumentUseCase {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentUseCase{
		txRunner:    txRunner,
		docRepo:     docRepo,
		companyRepo: companyRepo,
		numberer:    numberer,
		teif:        teif,
		metrics:     metrics,
		log:         log.Named("documents"),
		defaults:    defaults,
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *DocumentUseCase) WithClock(now func() time.Time) *DocumentUseCase {
	uc.now = now
	return uc
}

// Create calcula los totales, reserva el número y persiste documento, líneas y
// movimientos de stock en una sola transacción.
// El número se reserva una única vez; si la transacción falla queda un hueco.
func (uc *DocumentUseCase) Create(ctx context.Context, tenantID, userID string, kind entity.Kind, in dto.DocumentRequest) (*dto.DocumentResponse, error) {
	policy, err := kind.Policy()
	if err != nil {
		return nil, err
	}
	if tenantID == "" {
		return nil, domain.ErrForbidden
	}

	now := uc.now()
	doc := &entity.Document{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Kind:      kind,
		Status:    entity.StatusDraft,
		Currency:  uc.defaults.Currency,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.fill(doc, policy, in); err != nil {
		return nil, err
	}
	if err := uc.compute(doc, policy); err != nil {
		return nil, err
	}

	number, err := uc.numberer.NextNumber(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}
	doc.Number = number

	if err := uc.persist(ctx, doc, policy, false); err != nil {
		uc.log.Error().Err(err).Str("tenant_id", tenantID).Str("kind", kind.String()).Str("number", number).
			Msg("documento no creado; el número queda sin usar")
		return nil, err
	}

	uc.log.Info().Str("tenant_id", tenantID).Str("kind", kind.String()).Str("number", number).
		Str("document_id", doc.ID).Str("total_ttc", doc.Totals.TotalInclTax.StringFixed(3)).Msg("documento creado")
	return toDocumentResponse(doc, policy), nil
}

// Update recalcula desde cero y reemplaza las líneas de un borrador. Nunca renumera.
func (uc *DocumentUseCase) Update(ctx context.Context, tenantID, id string, in dto.DocumentRequest) (*dto.DocumentResponse, error) {
	doc, err := uc.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsDraft() {
		return nil, domain.ErrDocumentLocked
	}
	policy, err := doc.Kind.Policy()
	if err != nil {
		return nil, err
	}

	// Se descartan totales y modificadores previos: nada se arrastra de la versión anterior.
	doc.Modifiers = fiscal.Modifiers{}
	doc.Totals = fiscal.Totals{}
	doc.UpdatedAt = uc.now()
	if err := uc.fill(doc, policy, in); err != nil {
		return nil, err
	}
	if err := uc.compute(doc, policy); err != nil {
		return nil, err
	}
	if err := uc.persist(ctx, doc, policy, true); err != nil {
		return nil, err
	}

	uc.log.Info().Str("tenant_id", tenantID).Str("document_id", doc.ID).Str("number", doc.Number).Msg("documento actualizado")
	return toDocumentResponse(doc, policy), nil
}

// Get devuelve un documento del tenant.
func (uc *DocumentUseCase) Get(ctx context.Context, tenantID, id string) (*dto.DocumentResponse, error) {
	doc, err := uc.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	policy, err := doc.Kind.Policy()
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc, policy), nil
}

// List devuelve una página de documentos según los filtros.
func (uc *DocumentUseCase) List(ctx context.Context, tenantID string, q dto.ListDocumentsQuery) (*dto.DocumentListResponse, error) {
	page := dto.PageRequest{Limit: q.Limit, Offset: q.Offset}
	page.DefaultPage()

	filter := repository.DocumentFilter{
		Status: q.Status,
		Party:  q.Party,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if q.Kind != "" {
		k, err := entity.ParseKind(q.Kind)
		if err != nil {
			return nil, err
		}
		filter.Kind = k
	}
	if q.From != "" {
		from, err := time.Parse(dateLayout, q.From)
		if err != nil {
			return nil, fmt.Errorf("%w: from", domain.ErrInvalidInput)
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := time.Parse(dateLayout, q.To)
		if err != nil {
			return nil, fmt.Errorf("%w: to", domain.ErrInvalidInput)
		}
		filter.To = &to
	}

	docs, total, err := uc.docRepo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("listar documentos: %w", err)
	}
	items := make([]dto.DocumentSummary, 0, len(docs))
	for _, d := range docs {
		items = append(items, toSummary(d))
	}
	return &dto.DocumentListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// Validate pasa un borrador a validado y sella la huella TEIF. Desde ese momento es inmutable.
func (uc *DocumentUseCase) Validate(ctx context.Context, tenantID, id string) (*dto.DocumentResponse, error) {
	doc, err := uc.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsDraft() {
		return nil, domain.ErrDocumentLocked
	}
	policy, err := doc.Kind.Policy()
	if err != nil {
		return nil, err
	}

	company, err := uc.company(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	// Sin ficha de empresa válida no hay TEIF posible: el documento sigue en borrador.
	fp, err := uc.teif.Fingerprint(company, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: huella TEIF: %v", domain.ErrConflict, err)
	}

	at := uc.now()
	if err := uc.docRepo.MarkValidated(ctx, tenantID, id, fp, at); err != nil {
		return nil, err
	}
	doc.Status = entity.StatusValidated
	doc.Fingerprint = fp
	doc.ValidatedAt = &at

	uc.log.Info().Str("tenant_id", tenantID).Str("document_id", id).Str("number", doc.Number).Str("fingerprint", fp).Msg("documento validado")
	return toDocumentResponse(doc, policy), nil
}

// CreateCreditNote emite un avoir que refleja una factura validada con cantidades negadas.
// Conserva remise globale y FODEC; la política del avoir apaga timbre y retenue.
func (uc *DocumentUseCase) CreateCreditNote(ctx context.Context, tenantID, userID, invoiceID string) (*dto.DocumentResponse, error) {
	inv, err := uc.load(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Kind != entity.KindInvoice {
		return nil, fmt.Errorf("%w: solo se emiten avoirs sobre facturas", domain.ErrInvalidInput)
	}
	if inv.Status != entity.StatusValidated {
		return nil, fmt.Errorf("%w: la factura debe estar validada", domain.ErrConflict)
	}
	policy, err := entity.KindCreditNote.Policy()
	if err != nil {
		return nil, err
	}

	now := uc.now()
	note := &entity.Document{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Kind:         entity.KindCreditNote,
		Status:       entity.StatusDraft,
		IssueDate:    dayOf(now),
		PartyName:    inv.PartyName,
		PartyTaxID:   inv.PartyTaxID,
		PartyAddress: inv.PartyAddress,
		Currency:     inv.Currency,
		Notes:        "Avoir sur facture " + inv.Number,
		SourceID:     inv.ID,
		Modifiers:    inv.Modifiers,
		CreatedBy:    userID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	note.Lines = make([]*entity.DocumentLine, len(inv.Lines))
	for i, l := range inv.Lines {
		note.Lines[i] = &entity.DocumentLine{
			ID:          uuid.New().String(),
			DocumentID:  note.ID,
			Position:    i + 1,
			ProductRef:  l.ProductRef,
			Description: l.Description,
			Quantity:    l.Quantity.Neg(),
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
			TaxRatePct:  l.TaxRatePct,
		}
	}
	if err := uc.compute(note, policy); err != nil {
		return nil, err
	}

	number, err := uc.numberer.NextNumber(ctx, tenantID, entity.KindCreditNote)
	if err != nil {
		return nil, err
	}
	note.Number = number

	if err := uc.persist(ctx, note, policy, false); err != nil {
		return nil, err
	}
	uc.log.Info().Str("tenant_id", tenantID).Str("document_id", note.ID).Str("number", number).
		Str("source_number", inv.Number).Msg("avoir creado")
	return toDocumentResponse(note, policy), nil
}

// ComputePreview devuelve los totales que tendría el documento, sin numerar ni persistir.
func (uc *DocumentUseCase) ComputePreview(kind entity.Kind, in dto.PreviewRequest) (*dto.PreviewResponse, error) {
	policy, err := kind.Policy()
	if err != nil {
		return nil, err
	}
	doc := &entity.Document{
		Kind:      kind,
		Modifiers: uc.defaults.modifiers(in.Modifiers),
		Lines:     buildLines("", in.Lines),
	}
	if err := uc.compute(doc, policy); err != nil {
		return nil, err
	}
	lines := toLineResponses(doc.Lines)
	for i := range lines {
		lines[i].ID = ""
	}
	return &dto.PreviewResponse{
		Kind:   kind.String(),
		Totals: toTotalsResponse(doc.Totals, policy),
		Lines:  lines,
	}, nil
}

// fill copia el request al documento. No toca ID, número, tipo ni estado.
func (uc *DocumentUseCase) fill(doc *entity.Document, policy entity.KindPolicy, in dto.DocumentRequest) error {
	issue, err := parseDay(in.IssueDate, uc.now())
	if err != nil {
		return &fiscal.ValidationError{Line: fiscal.DocumentLevel, Field: "issueDate", Value: in.IssueDate, Reason: "fecha inválida"}
	}
	doc.IssueDate = issue
	doc.DueDate = nil
	if in.DueDate != "" {
		due, err := time.Parse(dateLayout, in.DueDate)
		if err != nil || due.Before(issue) {
			return &fiscal.ValidationError{Line: fiscal.DocumentLevel, Field: "dueDate", Value: in.DueDate, Reason: "fecha inválida o anterior a la emisión"}
		}
		doc.DueDate = &due
	}
	if policy.AffectsStock() && in.WarehouseRef == "" {
		return &fiscal.ValidationError{Line: fiscal.DocumentLevel, Field: "warehouseRef", Reason: "obligatorio para documentos con movimiento de stock"}
	}

	doc.PartyName = in.PartyName
	doc.PartyTaxID = in.PartyTaxID
	doc.PartyAddress = in.PartyAddress
	doc.WarehouseRef = in.WarehouseRef
	doc.Notes = in.Notes
	doc.Modifiers = uc.defaults.modifiers(in.Modifiers)
	doc.Lines = buildLines(doc.ID, in.Lines)
	return nil
}

// compute aplica la política del tipo y recalcula todos los totales.
func (uc *DocumentUseCase) compute(doc *entity.Document, policy entity.KindPolicy) error {
	doc.Modifiers = policy.Apply(doc.Modifiers)
	totals, err := fiscal.ComputeTotals(doc.LineItems(), doc.Modifiers)
	if err != nil {
		var ve *fiscal.ValidationError
		if errors.As(err, &ve) {
			uc.metrics.ValidationFailed(ve.Field)
		}
		return err
	}
	uc.metrics.TotalsComputed(doc.Kind.String())
	doc.ApplyTotals(totals)
	return nil
}

func (uc *DocumentUseCase) persist(ctx context.Context, doc *entity.Document, policy entity.KindPolicy, update bool) error {
	return uc.txRunner.RunDocument(ctx, func(docRepo repository.DocumentRepository, stockRepo repository.StockMovementRepository) error {
		if update {
			if err := docRepo.Update(ctx, doc); err != nil {
				return err
			}
		} else if err := docRepo.Create(ctx, doc); err != nil {
			return err
		}
		if !policy.AffectsStock() {
			return nil
		}
		if update {
			if err := stockRepo.DeleteByDocument(ctx, doc.TenantID, doc.ID); err != nil {
				return err
			}
		}
		for _, l := range doc.Lines {
			if err := stockRepo.Create(ctx, stockMovement(doc, l, policy.StockDirection)); err != nil {
				return err
			}
		}
		return nil
	})
}

func stockMovement(doc *entity.Document, l *entity.DocumentLine, direction string) *entity.StockMovement {
	qty := l.Quantity
	if direction == entity.StockOut {
		qty = qty.Neg()
	}
	return &entity.StockMovement{
		ID:           uuid.New().String(),
		TenantID:     doc.TenantID,
		DocumentID:   doc.ID,
		LineID:       l.ID,
		WarehouseRef: doc.WarehouseRef,
		ProductRef:   l.ProductRef,
		Direction:    direction,
		Quantity:     qty,
		CreatedBy:    doc.CreatedBy,
		CreatedAt:    doc.UpdatedAt,
	}
}

func (uc *DocumentUseCase) load(ctx context.Context, tenantID, id string) (*entity.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	doc, err := uc.docRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("obtener documento: %w", err)
	}
	if doc == nil || doc.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// company devuelve la empresa emisora; un tenant sin ficha se representa solo por su ID.
func (uc *DocumentUseCase) company(ctx context.Context, tenantID string) (*entity.Company, error) {
	if uc.companyRepo == nil {
		return &entity.Company{ID: tenantID}, nil
	}
	c, err := uc.companyRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("obtener empresa: %w", err)
	}
	if c == nil {
		return &entity.Company{ID: tenantID}, nil
	}
	return c, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
