package documents_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-tn-api/internal/application/documents"
	"github.com/jhoicas/erp-tn-api/internal/application/dto"
	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/fiscal"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes de los puertos
// ──────────────────────────────────────────────────────────────────────────────

type memDocs struct {
	mu   sync.Mutex
	docs map[string]*entity.Document
	last repository.DocumentFilter
}

func newMemDocs() *memDocs { return &memDocs{docs: map[string]*entity.Document{}} }

func clone(d *entity.Document) *entity.Document {
	cp := *d
	cp.Lines = make([]*entity.DocumentLine, len(d.Lines))
	for i, l := range d.Lines {
		lc := *l
		cp.Lines[i] = &lc
	}
	return &cp
}

func (m *memDocs) Create(_ context.Context, doc *entity.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = clone(doc)
	return nil
}

func (m *memDocs) Update(_ context.Context, doc *entity.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	m.docs[doc.ID] = clone(doc)
	return nil
}

func (m *memDocs) GetByID(_ context.Context, tenantID, id string) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.TenantID != tenantID {
		return nil, nil
	}
	return clone(d), nil
}

func (m *memDocs) List(_ context.Context, tenantID string, f repository.DocumentFilter) ([]*entity.Document, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = f
	var out []*entity.Document
	for _, d := range m.docs {
		if d.TenantID == tenantID && (f.Kind == "" || d.Kind == f.Kind) {
			out = append(out, clone(d))
		}
	}
	return out, len(out), nil
}

func (m *memDocs) MarkValidated(_ context.Context, tenantID, id, fp string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.TenantID != tenantID {
		return domain.ErrNotFound
	}
	if d.Status != entity.StatusDraft {
		return domain.ErrDocumentLocked
	}
	d.Status = entity.StatusValidated
	d.Fingerprint = fp
	d.ValidatedAt = &at
	return nil
}

type memStock struct {
	mu        sync.Mutex
	movements []*entity.StockMovement
}

func (m *memStock) Create(_ context.Context, mv *entity.StockMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = append(m.movements, mv)
	return nil
}

func (m *memStock) ListByDocument(_ context.Context, tenantID, documentID string) ([]*entity.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.StockMovement
	for _, mv := range m.movements {
		if mv.TenantID == tenantID && mv.DocumentID == documentID {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (m *memStock) DeleteByDocument(_ context.Context, tenantID, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.movements[:0]
	for _, mv := range m.movements {
		if mv.TenantID != tenantID || mv.DocumentID != documentID {
			kept = append(kept, mv)
		}
	}
	m.movements = kept
	return nil
}

type fakeTx struct {
	docs  *memDocs
	stock *memStock
	err   error
}

func (f *fakeTx) RunDocument(_ context.Context, fn func(repository.DocumentRepository, repository.StockMovementRepository) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(f.docs, f.stock)
}

type fakeNumberer struct {
	mu    sync.Mutex
	seq   map[entity.Kind]int
	calls int
	err   error
}

func (f *fakeNumberer) NextNumber(_ context.Context, _ string, kind entity.Kind) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.seq == nil {
		f.seq = map[entity.Kind]int{}
	}
	f.seq[kind]++
	return fmt.Sprintf("%s-%05d", kind, f.seq[kind]), nil
}

type fakeTEIF struct{}

func (fakeTEIF) Build(_ *entity.Company, doc *entity.Document) ([]byte, error) {
	return []byte("<TEIF>" + doc.Number + "</TEIF>"), nil
}

func (fakeTEIF) Fingerprint(_ *entity.Company, doc *entity.Document) (string, error) {
	return "fp-" + doc.Number, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const tenant = "4b0c8c1e-6c55-4d8b-9a57-0f2b7e2d9a11"

type harness struct {
	uc       *documents.DocumentUseCase
	docs     *memDocs
	stock    *memStock
	numberer *fakeNumberer
	tx       *fakeTx
}

func newHarness() *harness {
	docs := newMemDocs()
	stock := &memStock{}
	tx := &fakeTx{docs: docs, stock: stock}
	num := &fakeNumberer{}
	uc := documents.NewDocumentUseCase(tx, docs, nil, num, fakeTEIF{}, nil, nil, documents.Defaults{
		Currency:        "TND",
		FiscalStamp:     decimal.RequireFromString("1.000"),
		FodecRate:       decimal.NewFromInt(1),
		WithholdingRate: decimal.NewFromInt(1),
	}).WithClock(func() time.Time { return time.Date(2025, time.May, 20, 11, 0, 0, 0, time.UTC) })
	return &harness{uc: uc, docs: docs, stock: stock, numberer: num, tx: tx}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func invoiceRequest() dto.DocumentRequest {
	return dto.DocumentRequest{
		PartyName:  "Société Méditerranéenne SARL",
		PartyTaxID: "1234567APM000",
		Modifiers: dto.ModifiersRequest{
			SpecialTaxEnabled:  true,
			FiscalStampEnabled: true,
			WithholdingEnabled: true,
		},
		Lines: []dto.DocumentLineRequest{
			{ProductRef: "P-1", Description: "Rouleau inox", Quantity: d("2"), UnitPrice: d("100"), TaxRatePct: d("19")},
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_FacturaCompleta(t *testing.T) {
	h := newHarness()

	resp, err := h.uc.Create(context.Background(), tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.NoError(t, err)

	assert.Equal(t, "invoice-00001", resp.Number)
	assert.Equal(t, entity.StatusDraft, resp.Status)
	assert.Equal(t, "2025-05-20", resp.IssueDate)
	assert.Equal(t, "200.000", resp.Totals.TotalExclTax)
	assert.Equal(t, "2.000", resp.Totals.SpecialTaxAmount)
	assert.Equal(t, "38.380", resp.Totals.TotalTax)
	assert.Equal(t, "1.000", resp.Totals.FiscalStampAmount)
	assert.Equal(t, "241.380", resp.Totals.TotalInclTax)
	assert.Equal(t, "2.000", resp.Totals.WithholdingAmount)
	assert.Equal(t, "239.380", resp.Totals.NetPayable)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "200.000", resp.Lines[0].TotalExclTax)

	stored, _ := h.docs.GetByID(context.Background(), tenant, resp.ID)
	require.NotNil(t, stored)
	assert.True(t, stored.Totals.TotalInclTax.Equal(d("241.380")))
	assert.Equal(t, 1, h.numberer.calls)
	assert.Empty(t, h.stock.movements, "una factura no mueve stock")
}

func TestCreate_ErrorDeValidacionNoConsumeNumero(t *testing.T) {
	h := newHarness()
	req := invoiceRequest()
	req.Lines = append(req.Lines, dto.DocumentLineRequest{Description: "x", Quantity: d("-1"), UnitPrice: d("5")})

	_, err := h.uc.Create(context.Background(), tenant, "user-1", entity.KindInvoice, req)
	require.Error(t, err)

	var ve *fiscal.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, ve.Line)
	assert.Equal(t, "quantity", ve.Field)
	assert.Zero(t, h.numberer.calls)
	assert.Empty(t, h.docs.docs)
}

func TestCreate_ValoresNoRepresentablesNoSePersisten(t *testing.T) {
	tests := []struct {
		name      string
		edit      func(*dto.DocumentRequest)
		wantField string
	}{
		{"precio con 7 decimales", func(r *dto.DocumentRequest) {
			r.Lines[0].Quantity, r.Lines[0].UnitPrice = d("2500"), d("0.0000004")
		}, "unitPrice"},
		{"cantidad con exponente enorme", func(r *dto.DocumentRequest) {
			r.Lines[0].Quantity = d("1e2000000")
		}, "quantity"},
		{"retenue desactivada fuera de rango", func(r *dto.DocumentRequest) {
			rate := d("99999")
			r.Modifiers.WithholdingEnabled = false
			r.Modifiers.WithholdingRatePct = &rate
		}, "withholdingRatePct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			req := invoiceRequest()
			tt.edit(&req)

			_, err := h.uc.Create(context.Background(), tenant, "user-1", entity.KindInvoice, req)
			require.ErrorIs(t, err, domain.ErrInvalidInput)

			var ve *fiscal.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Zero(t, h.numberer.calls)
			assert.Empty(t, h.docs.docs)
		})
	}
}

func TestCreate_FalloDeNumeracion(t *testing.T) {
	h := newHarness()
	h.numberer.err = fmt.Errorf("%w: timeout", domain.ErrSequencePersistence)

	resp, err := h.uc.Create(context.Background(), tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, domain.ErrSequencePersistence))
	assert.Empty(t, h.docs.docs, "sin número no se persiste nada")
}

func TestCreate_FalloDeTransaccionDejaHueco(t *testing.T) {
	h := newHarness()
	h.tx.err = errors.New("commit transaction: conn closed")

	_, err := h.uc.Create(context.Background(), tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.Error(t, err)
	h.tx.err = nil

	resp, err := h.uc.Create(context.Background(), tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.NoError(t, err)
	assert.Equal(t, "invoice-00002", resp.Number, "el número reservado no se reutiliza")
}

func TestCreate_BonDeLivraison(t *testing.T) {
	h := newHarness()
	req := invoiceRequest()
	req.WarehouseRef = "DEP-TUNIS"
	req.Lines = append(req.Lines, dto.DocumentLineRequest{ProductRef: "P-2", Description: "Tube", Quantity: d("5"), UnitPrice: d("3"), TaxRatePct: d("7")})

	resp, err := h.uc.Create(context.Background(), tenant, "user-1", entity.KindDeliveryNote, req)
	require.NoError(t, err)

	assert.False(t, resp.Modifiers.FiscalStampEnabled)
	assert.False(t, resp.Modifiers.WithholdingEnabled)
	assert.Empty(t, resp.Totals.NetPayable, "el BL no tiene net à payer")
	assert.Equal(t, "0.000", resp.Totals.FiscalStampAmount)

	moves, err := h.stock.ListByDocument(context.Background(), tenant, resp.ID)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, entity.StockOut, moves[0].Direction)
	assert.True(t, moves[0].Quantity.Equal(d("-2")))
	assert.True(t, moves[1].Quantity.Equal(d("-5")))
	assert.Equal(t, "DEP-TUNIS", moves[1].WarehouseRef)
}

func TestCreate_StockSinDeposito(t *testing.T) {
	h := newHarness()

	_, err := h.uc.Create(context.Background(), tenant, "user-1", entity.KindGoodsReceipt, invoiceRequest())
	var ve *fiscal.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "warehouseRef", ve.Field)
	assert.Equal(t, fiscal.DocumentLevel, ve.Line)
}

func TestCreate_TipoDesconocido(t *testing.T) {
	h := newHarness()
	_, err := h.uc.Create(context.Background(), tenant, "user-1", entity.Kind("payslip"), invoiceRequest())
	assert.True(t, errors.Is(err, domain.ErrUnknownKind))
}

// ──────────────────────────────────────────────────────────────────────────────
// Update / Validate
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdate_DesactivarFodecRecalculaTodo(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	created, err := h.uc.Create(ctx, tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.NoError(t, err)

	req := invoiceRequest()
	req.Modifiers.SpecialTaxEnabled = false
	req.Modifiers.FiscalStampEnabled = false
	req.Modifiers.WithholdingEnabled = false
	updated, err := h.uc.Update(ctx, tenant, created.ID, req)
	require.NoError(t, err)

	assert.Equal(t, created.Number, updated.Number, "la edición nunca renumera")
	assert.Equal(t, 1, h.numberer.calls)
	assert.Equal(t, "0.000", updated.Totals.SpecialTaxAmount)
	assert.Equal(t, "38.000", updated.Totals.TotalTax)
	assert.Equal(t, "238.000", updated.Totals.TotalInclTax)
	assert.Equal(t, "238.000", updated.Totals.NetPayable)
}

func TestUpdate_BonDeLivraisonReescribeMovimientos(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	req := invoiceRequest()
	req.WarehouseRef = "DEP-1"
	created, err := h.uc.Create(ctx, tenant, "user-1", entity.KindDeliveryNote, req)
	require.NoError(t, err)

	req.Lines[0].Quantity = d("7")
	_, err = h.uc.Update(ctx, tenant, created.ID, req)
	require.NoError(t, err)

	moves, _ := h.stock.ListByDocument(ctx, tenant, created.ID)
	require.Len(t, moves, 1)
	assert.True(t, moves[0].Quantity.Equal(d("-7")))
}

func TestValidate_SellaYBloquea(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	created, err := h.uc.Create(ctx, tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.NoError(t, err)

	v, err := h.uc.Validate(ctx, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusValidated, v.Status)
	assert.Equal(t, "fp-"+created.Number, v.Fingerprint)
	assert.NotEmpty(t, v.ValidatedAt)

	_, err = h.uc.Validate(ctx, tenant, created.ID)
	assert.True(t, errors.Is(err, domain.ErrDocumentLocked))

	_, err = h.uc.Update(ctx, tenant, created.ID, invoiceRequest())
	assert.True(t, errors.Is(err, domain.ErrDocumentLocked))
}

type brokenTEIF struct{ fakeTEIF }

func (brokenTEIF) Fingerprint(*entity.Company, *entity.Document) (string, error) {
	return "", errors.New("teif: matricule fiscal del emisor inválido")
}

func TestValidate_SinFichaDeEmpresaSigueEnBorrador(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	created, err := h.uc.Create(ctx, tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.NoError(t, err)

	uc := documents.NewDocumentUseCase(h.tx, h.docs, nil, h.numberer, brokenTEIF{}, nil, nil, documents.Defaults{})
	_, err = uc.Validate(ctx, tenant, created.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := h.uc.Get(ctx, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, got.Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Avoirs
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateCreditNote_ReflejaFactura(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	inv, err := h.uc.Create(ctx, tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.NoError(t, err)
	_, err = h.uc.Validate(ctx, tenant, inv.ID)
	require.NoError(t, err)

	note, err := h.uc.CreateCreditNote(ctx, tenant, "user-2", inv.ID)
	require.NoError(t, err)

	assert.Equal(t, string(entity.KindCreditNote), note.Kind)
	assert.Equal(t, "credit-note-00001", note.Number)
	assert.Equal(t, inv.ID, note.SourceID)
	assert.Equal(t, "-2", note.Lines[0].Quantity)
	assert.Equal(t, "-200.000", note.Totals.TotalExclTax)
	assert.Equal(t, "-2.000", note.Totals.SpecialTaxAmount)
	assert.Equal(t, "-38.380", note.Totals.TotalTax)
	assert.Equal(t, "-240.380", note.Totals.TotalInclTax, "sin timbre ni retenue")
	assert.False(t, note.Modifiers.WithholdingEnabled)
	assert.Empty(t, note.Totals.NetPayable)
}

func TestCreateCreditNote_FacturaEnBorrador(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	inv, err := h.uc.Create(ctx, tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.NoError(t, err)

	_, err = h.uc.CreateCreditNote(ctx, tenant, "user-1", inv.ID)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestCreateCreditNote_SoloSobreFacturas(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	quote, err := h.uc.Create(ctx, tenant, "user-1", entity.KindQuote, invoiceRequest())
	require.NoError(t, err)

	_, err = h.uc.CreateCreditNote(ctx, tenant, "user-1", quote.ID)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestGet_OtroTenant(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	created, err := h.uc.Create(ctx, tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.NoError(t, err)

	_, err = h.uc.Get(ctx, "otro-tenant", created.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = h.uc.Get(ctx, tenant, "no-es-uuid")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	got, err := h.uc.Get(ctx, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Number, got.Number)
}

func TestList_Filtros(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, err := h.uc.Create(ctx, tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.NoError(t, err)
	_, err = h.uc.Create(ctx, tenant, "user-1", entity.KindQuote, invoiceRequest())
	require.NoError(t, err)

	resp, err := h.uc.List(ctx, tenant, dto.ListDocumentsQuery{Kind: "invoice", From: "2025-01-01", To: "2025-12-31"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "239.380", resp.Items[0].NetPayable)
	assert.Equal(t, 20, resp.Page.Limit)
	assert.Equal(t, entity.KindInvoice, h.docs.last.Kind)
	require.NotNil(t, h.docs.last.From)
	assert.Equal(t, 2025, h.docs.last.From.Year())

	_, err = h.uc.List(ctx, tenant, dto.ListDocumentsQuery{Kind: "payslip"})
	assert.True(t, errors.Is(err, domain.ErrUnknownKind))
}

func TestComputePreview_RemiseGlobale(t *testing.T) {
	h := newHarness()

	resp, err := h.uc.ComputePreview(entity.KindQuote, dto.PreviewRequest{
		Modifiers: dto.ModifiersRequest{GlobalDiscountPct: d("10")},
		Lines:     []dto.DocumentLineRequest{{Description: "x", Quantity: d("2"), UnitPrice: d("100"), TaxRatePct: d("19")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "180.000", resp.Totals.TotalExclTax)
	assert.Equal(t, "34.200", resp.Totals.TotalTax)
	assert.Equal(t, "214.200", resp.Totals.TotalInclTax)
	assert.Zero(t, h.numberer.calls, "la vista previa no numera")
	assert.Empty(t, h.docs.docs)
}
