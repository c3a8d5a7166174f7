// Package pdf genera la representación impresa de los documentos comerciales.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón social + matricule │ Tipo + N° + Fecha        │
//	│  EMISOR: Dirección / Tel / Email                             │
//	│  TERCERO: Nombre + matricule + dirección                     │
//	│  TABLA: Désignation | Qté | P.U. HT | Rem% | TVA% | Total HT │
//	│  TOTALES: HT / FODEC / TVA / Timbre / TTC / RS / Net         │
//	│  FOOTER: huella TEIF + QR (solo validados)                   │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-tn-api/internal/application/documents"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/pkg/money"
)

var _ documents.PDFRenderer = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorDraft   = &props.Color{Red: 200, Green: 40, Blue: 40}
)

var titles = map[entity.Kind]string{
	entity.KindQuote:           "DEVIS",
	entity.KindInvoice:         "FACTURE",
	entity.KindDeliveryNote:    "BON DE LIVRAISON",
	entity.KindCreditNote:      "FACTURE D'AVOIR",
	entity.KindPurchaseInvoice: "FACTURE FOURNISSEUR",
	entity.KindGoodsReceipt:    "BON DE RÉCEPTION",
}

// Title devuelve el título impreso del tipo de documento.
func Title(kind entity.Kind) string {
	if t, ok := titles[kind]; ok {
		return t
	}
	return strings.ToUpper(string(kind))
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa documents.PDFRenderer usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// Render genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) Render(_ context.Context, company *entity.Company, doc *entity.Document) ([]byte, error) {
	if company == nil || doc == nil {
		return nil, fmt.Errorf("pdf: empresa y documento son obligatorios")
	}
	policy, err := doc.Kind.Policy()
	if err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(Title(doc.Kind)+" "+doc.Number, true).
		WithAuthor(company.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc, company))
	if doc.IsDraft() {
		m.AddRows(draftRow())
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(emitterRow(company))
	m.AddRows(partyRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(doc.Lines)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRows(doc, policy)...)

	if doc.Notes != "" {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New(doc.Notes, props.Text{Size: 8, Top: 2, Color: colorGray}),
		)))
	}
	if doc.Fingerprint != "" {
		m.AddRows(line.NewRow(3))
		m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
		m.AddRows(footerRows(doc, company)...)
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(doc *entity.Document, company *entity.Company) core.Row {
	date := doc.IssueDate.Format("02/01/2006")
	number := doc.Number
	if number == "" {
		number = "—"
	}
	right := []core.Component{
		text.New(Title(doc.Kind), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 1,
		}),
		text.New("N° "+number, props.Text{
			Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
		}),
		text.New("Date : "+date, props.Text{
			Size: 8, Align: align.Right, Top: 14, Color: colorGray,
		}),
	}
	if doc.DueDate != nil {
		right = append(right, text.New("Échéance : "+doc.DueDate.Format("02/01/2006"), props.Text{
			Size: 8, Align: align.Right, Top: 18, Color: colorGray,
		}))
	}

	return row.New(22).Add(
		col.New(7).Add(
			text.New(company.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("MF : "+company.Matricule, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(right...),
	)
}

func draftRow() core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New("BROUILLON - document non validé", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Center, Color: colorDraft, Top: 1,
		}),
	))
}

func emitterRow(company *entity.Company) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("ÉMETTEUR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Adresse : %s   |   Tél : %s   |   Email : %s",
				nonEmpty(company.Address, "—"),
				nonEmpty(company.Phone, "—"),
				nonEmpty(company.Email, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func partyRow(doc *entity.Document) core.Row {
	label := "CLIENT"
	if p, err := doc.Kind.Policy(); err == nil && p.PurchaseSide {
		label = "FOURNISSEUR"
	}
	return row.New(16).Add(
		col.New(12).Add(
			text.New(label, props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(doc.PartyName, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("MF : %s   |   Adresse : %s",
				nonEmpty(doc.PartyTaxID, "—"),
				nonEmpty(doc.PartyAddress, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Désignation", 5, align.Left),
		h("Qté", 1, align.Center),
		h("P.U. HT", 2, align.Right),
		h("Rem.%", 1, align.Center),
		h("TVA%", 1, align.Center),
		h("Total HT", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func tableDetailRows(lines []*entity.DocumentLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(5).Add(text.New(
				l.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(1).Add(text.New(
				trimZeros(l.Quantity),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				money.Format(l.UnitPrice),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				trimZeros(l.DiscountPct),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(1).Add(text.New(
				trimZeros(l.TaxRatePct),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				money.Format(l.TotalExclTax),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRows: bloque de totales alineado a la derecha. Solo se imprimen los
// conceptos activos en el documento.
func totalsRows(doc *entity.Document, policy entity.KindPolicy) []core.Row {
	t, mods := doc.Totals, doc.Modifiers

	type entry struct {
		label string
		value decimal.Decimal
		grand bool
	}
	entries := []entry{{label: "Total brut HT", value: t.GrossExclTax}}
	if t.GlobalDiscountAmount.IsPositive() {
		entries = append(entries, entry{label: fmt.Sprintf("Remise %s%%", trimZeros(mods.GlobalDiscountPct)), value: t.GlobalDiscountAmount.Neg()})
	}
	entries = append(entries, entry{label: "Total HT", value: t.TotalExclTax})
	if mods.SpecialTaxEnabled {
		entries = append(entries, entry{label: fmt.Sprintf("FODEC %s%%", trimZeros(mods.SpecialTaxRatePct)), value: t.SpecialTaxAmount})
	}
	for _, b := range t.TaxBreakdown {
		entries = append(entries, entry{label: fmt.Sprintf("TVA %s%% sur %s", trimZeros(b.RatePct), money.Format(b.Base)), value: b.Amount})
	}
	if mods.FiscalStampEnabled {
		entries = append(entries, entry{label: "Timbre fiscal", value: t.FiscalStampAmount})
	}
	entries = append(entries, entry{label: "Total TTC", value: t.TotalInclTax, grand: !policy.TracksNetPayable})
	if policy.TracksNetPayable {
		if mods.WithholdingEnabled {
			entries = append(entries, entry{label: fmt.Sprintf("Retenue à la source %s%%", trimZeros(mods.WithholdingRatePct)), value: t.WithholdingAmount.Neg()})
		}
		entries = append(entries, entry{label: "Net à payer", value: t.NetPayable, grand: true})
	}

	rows := make([]core.Row, 0, len(entries))
	for _, e := range entries {
		p := props.Text{Size: 9, Align: align.Right, Right: 1, Top: 1}
		if e.grand {
			p.Style = fontstyle.Bold
			p.Size = 10
			p.Color = colorPrimary
		}
		labelProps := p
		labelProps.Style = fontstyle.Bold
		labelProps.Right = 2
		rows = append(rows, row.New(6).Add(
			col.New(5),
			col.New(4).Add(text.New(e.label+" :", labelProps)),
			col.New(3).Add(text.New(money.Format(e.value)+" "+nonEmpty(doc.Currency, "TND"), p)),
		))
	}
	return rows
}

// footerRows: huella TEIF partida + QR de verificación.
func footerRows(doc *entity.Document, company *entity.Company) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("EMPREINTE TEIF (SHA-256)", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}
	for _, chunk := range splitEvery(doc.Fingerprint, 80) {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(chunk, props.Text{Size: 6.5, Color: colorGray, Top: 0.5, Left: 2}),
		)))
	}

	rows = append(rows, row.New(40).Add(
		col.New(3).Add(code.NewQr(QRPayload(doc, company), props.Rect{
			Percent: 95,
			Center:  true,
		})),
		col.New(9).Add(
			text.New("Document validé le "+validatedDate(doc), props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
		),
	))
	return rows
}

// QRPayload datos codificados en el QR: emisor, número, fecha, TTC y huella.
func QRPayload(doc *entity.Document, company *entity.Company) string {
	return strings.Join([]string{
		company.Matricule,
		doc.Number,
		doc.IssueDate.Format("2006-01-02"),
		money.Fixed(doc.Totals.TotalInclTax),
		doc.Fingerprint,
	}, "|")
}

// ── helpers ───────────────────────────────────────────────────────────────────

func validatedDate(doc *entity.Document) string {
	if doc.ValidatedAt == nil {
		return "—"
	}
	return doc.ValidatedAt.Format("02/01/2006 15:04")
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// trimZeros imprime cantidades y tasas sin ceros sobrantes ("19", "2.5").
func trimZeros(d decimal.Decimal) string {
	return d.String()
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
