package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/erp-tn-api/internal/application/dto"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/fiscal"
	"github.com/jhoicas/erp-tn-api/pkg/money"
)

const dateLayout = "2006-01-02"

func (d Defaults) modifiers(in dto.ModifiersRequest) fiscal.Modifiers {
	m := fiscal.Modifiers{
		GlobalDiscountPct:  in.GlobalDiscountPct,
		SpecialTaxEnabled:  in.SpecialTaxEnabled,
		SpecialTaxRatePct:  d.FodecRate,
		FiscalStampEnabled: in.FiscalStampEnabled,
		FiscalStampAmount:  d.FiscalStamp,
		WithholdingEnabled: in.WithholdingEnabled,
		WithholdingRatePct: d.WithholdingRate,
	}
	if in.SpecialTaxRatePct != nil {
		m.SpecialTaxRatePct = *in.SpecialTaxRatePct
	}
	if in.FiscalStampAmount != nil {
		m.FiscalStampAmount = *in.FiscalStampAmount
	}
	if in.WithholdingRatePct != nil {
		m.WithholdingRatePct = *in.WithholdingRatePct
	}
	return m
}

func buildLines(docID string, in []dto.DocumentLineRequest) []*entity.DocumentLine {
	lines := make([]*entity.DocumentLine, len(in))
	for i, l := range in {
		lines[i] = &entity.DocumentLine{
			ID:          uuid.New().String(),
			DocumentID:  docID,
			Position:    i + 1,
			ProductRef:  l.ProductRef,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
			TaxRatePct:  l.TaxRatePct,
		}
	}
	return lines
}

// parseDay interpreta YYYY-MM-DD; vacío devuelve el día de def.
func parseDay(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return dayOf(def), nil
	}
	return time.Parse(dateLayout, s)
}

func toTotalsResponse(t fiscal.Totals, p entity.KindPolicy) dto.TotalsResponse {
	out := dto.TotalsResponse{
		GrossExclTax:         money.Fixed(t.GrossExclTax),
		GlobalDiscountAmount: money.Fixed(t.GlobalDiscountAmount),
		TotalExclTax:         money.Fixed(t.TotalExclTax),
		SpecialTaxAmount:     money.Fixed(t.SpecialTaxAmount),
		TotalTax:             money.Fixed(t.TotalTax),
		FiscalStampAmount:    money.Fixed(t.FiscalStampAmount),
		TotalInclTax:         money.Fixed(t.TotalInclTax),
		TaxBreakdown:         make([]dto.TaxBucketResponse, 0, len(t.TaxBreakdown)),
	}
	if p.TracksNetPayable {
		out.WithholdingAmount = money.Fixed(t.WithholdingAmount)
		out.NetPayable = money.Fixed(t.NetPayable)
	}
	for _, b := range t.TaxBreakdown {
		out.TaxBreakdown = append(out.TaxBreakdown, dto.TaxBucketResponse{
			RatePct: b.RatePct.String(),
			Base:    money.Fixed(b.Base),
			Amount:  money.Fixed(b.Amount),
		})
	}
	return out
}

func toModifiersResponse(m fiscal.Modifiers) dto.ModifiersResponse {
	return dto.ModifiersResponse{
		GlobalDiscountPct:  m.GlobalDiscountPct.String(),
		SpecialTaxEnabled:  m.SpecialTaxEnabled,
		SpecialTaxRatePct:  m.SpecialTaxRatePct.String(),
		FiscalStampEnabled: m.FiscalStampEnabled,
		FiscalStampAmount:  money.Fixed(m.FiscalStampAmount),
		WithholdingEnabled: m.WithholdingEnabled,
		WithholdingRatePct: m.WithholdingRatePct.String(),
	}
}

func toLineResponses(lines []*entity.DocumentLine) []dto.DocumentLineResponse {
	out := make([]dto.DocumentLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, dto.DocumentLineResponse{
			ID:           l.ID,
			Position:     l.Position,
			ProductRef:   l.ProductRef,
			Description:  l.Description,
			Quantity:     l.Quantity.String(),
			UnitPrice:    money.Fixed(l.UnitPrice),
			DiscountPct:  l.DiscountPct.String(),
			TaxRatePct:   l.TaxRatePct.String(),
			TotalExclTax: money.Fixed(l.TotalExclTax),
			TaxAmount:    money.Fixed(l.TaxAmount),
		})
	}
	return out
}

func toDocumentResponse(doc *entity.Document, p entity.KindPolicy) *dto.DocumentResponse {
	resp := &dto.DocumentResponse{
		ID:           doc.ID,
		Kind:         doc.Kind.String(),
		Number:       doc.Number,
		Status:       doc.Status,
		IssueDate:    doc.IssueDate.Format(dateLayout),
		PartyName:    doc.PartyName,
		PartyTaxID:   doc.PartyTaxID,
		PartyAddress: doc.PartyAddress,
		WarehouseRef: doc.WarehouseRef,
		Currency:     doc.Currency,
		Notes:        doc.Notes,
		SourceID:     doc.SourceID,
		Fingerprint:  doc.Fingerprint,
		Modifiers:    toModifiersResponse(doc.Modifiers),
		Totals:       toTotalsResponse(doc.Totals, p),
		Lines:        toLineResponses(doc.Lines),
		CreatedAt:    doc.CreatedAt.Format(time.RFC3339),
	}
	if doc.DueDate != nil {
		resp.DueDate = doc.DueDate.Format(dateLayout)
	}
	if doc.ValidatedAt != nil {
		resp.ValidatedAt = doc.ValidatedAt.Format(time.RFC3339)
	}
	return resp
}

func toSummary(doc *entity.Document) dto.DocumentSummary {
	s := dto.DocumentSummary{
		ID:           doc.ID,
		Kind:         doc.Kind.String(),
		Number:       doc.Number,
		Status:       doc.Status,
		IssueDate:    doc.IssueDate.Format(dateLayout),
		PartyName:    doc.PartyName,
		TotalInclTax: money.Fixed(doc.Totals.TotalInclTax),
	}
	if p, err := doc.Kind.Policy(); err == nil && p.TracksNetPayable {
		s.NetPayable = money.Fixed(doc.Totals.NetPayable)
	}
	return s
}
