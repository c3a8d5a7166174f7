package documents_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-tn-api/internal/application/documents"
	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
)

type fakePDF struct{ company *entity.Company }

func (f *fakePDF) Render(_ context.Context, company *entity.Company, doc *entity.Document) ([]byte, error) {
	f.company = company
	return []byte("%PDF " + doc.Number), nil
}

type fakeSigner struct{ err error }

func (f fakeSigner) Sign(xmlBytes []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append(xmlBytes, []byte("<!--firmado-->")...), nil
}

func TestExport_PDFDeBorrador(t *testing.T) {
	h := newHarness()
	created, err := h.uc.Create(context.Background(), tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.NoError(t, err)

	pdf := &fakePDF{}
	export := documents.NewExportUseCase(h.docs, nil, pdf, fakeTEIF{})
	out, name, err := export.DownloadPDF(context.Background(), tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF invoice-00001", string(out))
	assert.Equal(t, "invoice_invoice-00001.pdf", name)
	assert.Equal(t, tenant, pdf.company.ID)
}

func TestExport_TEIFSoloValidados(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	created, err := h.uc.Create(ctx, tenant, "user-1", entity.KindInvoice, invoiceRequest())
	require.NoError(t, err)
	export := documents.NewExportUseCase(h.docs, nil, &fakePDF{}, fakeTEIF{})

	_, _, err = export.DownloadTEIF(ctx, tenant, created.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = h.uc.Validate(ctx, tenant, created.ID)
	require.NoError(t, err)
	out, name, err := export.DownloadTEIF(ctx, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "<TEIF>invoice-00001</TEIF>", string(out))
	assert.Equal(t, "invoice_invoice-00001.xml", name)

	signed, _, err := export.WithSigner(fakeSigner{}).DownloadTEIF(ctx, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "<TEIF>invoice-00001</TEIF><!--firmado-->", string(signed))

	_, _, err = export.WithSigner(fakeSigner{err: errors.New("token caducado")}).DownloadTEIF(ctx, tenant, created.ID)
	assert.Error(t, err)
}

func TestExport_OtroTenant(t *testing.T) {
	h := newHarness()
	created, err := h.uc.Create(context.Background(), tenant, "user-1", entity.KindQuote, invoiceRequest())
	require.NoError(t, err)
	export := documents.NewExportUseCase(h.docs, nil, &fakePDF{}, fakeTEIF{})

	_, _, err = export.DownloadPDF(context.Background(), "otro-tenant", created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
