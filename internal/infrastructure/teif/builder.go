// Package teif construye el XML TEIF (factura electrónica tunecina, plataforma TTN)
// de un documento y su huella canónica.
package teif

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/erp-tn-api/internal/application/documents"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/pkg/money"
	"github.com/jhoicas/erp-tn-api/pkg/tn"
)

const (
	Version          = "1.8.8"
	ControllingAgent = "TTN"
	currencyCodeList = "ISO_4217"
)

var _ documents.TEIFBuilder = (*Builder)(nil)

var docTypes = map[entity.Kind]struct{ code, label string }{
	entity.KindInvoice:         {tn.DocTypeInvoice, "Facture"},
	entity.KindCreditNote:      {tn.DocTypeCreditNote, "Facture d'avoir"},
	entity.KindQuote:           {tn.DocTypeQuote, "Devis"},
	entity.KindDeliveryNote:    {tn.DocTypeDelivery, "Bon de livraison"},
	entity.KindPurchaseInvoice: {tn.DocTypePurchase, "Facture fournisseur"},
	entity.KindGoodsReceipt:    {tn.DocTypeReceipt, "Bon de réception"},
}

// Builder genera el XML TEIF sin firma.
type Builder struct{}

// NewBuilder crea el builder.
func NewBuilder() *Builder { return &Builder{} }

// Build devuelve el XML indentado. El resultado es determinista para un mismo documento.
func (b *Builder) Build(company *entity.Company, doc *entity.Document) ([]byte, error) {
	x, err := b.document(company, doc)
	if err != nil {
		return nil, err
	}
	x.Indent(2)
	out, err := x.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("teif: serializar: %w", err)
	}
	return out, nil
}

// Fingerprint devuelve el SHA-256 (hex) del XML canónico (C14N 1.0).
func (b *Builder) Fingerprint(company *entity.Company, doc *entity.Document) (string, error) {
	out, err := b.Build(company, doc)
	if err != nil {
		return "", err
	}
	return Digest(out)
}

// Digest canonicaliza un XML TEIF y devuelve su SHA-256 en hex.
// El orden de atributos y las etiquetas vacías autocerradas no alteran el resultado.
func Digest(xmlBytes []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	dec.Entity = map[string]string{}
	canonical, err := c14n.Canonicalize(dec)
	if err != nil {
		return "", fmt.Errorf("teif: canonicalizar: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func (b *Builder) document(company *entity.Company, doc *entity.Document) (*etree.Document, error) {
	if company == nil || doc == nil {
		return nil, fmt.Errorf("teif: empresa y documento son obligatorios")
	}
	dt, ok := docTypes[doc.Kind]
	if !ok {
		return nil, fmt.Errorf("teif: tipo de documento %q sin código TEIF", doc.Kind)
	}
	seller, err := tn.ParseMatricule(company.Matricule)
	if err != nil {
		return nil, fmt.Errorf("teif: matricule del emisor: %w", err)
	}
	currency := doc.Currency
	if currency == "" {
		currency = "TND"
	}

	x := etree.NewDocument()
	x.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := x.CreateElement("TEIF")
	root.CreateAttr("controlingAgency", ControllingAgent)
	root.CreateAttr("version", Version)

	header := root.CreateElement("InvoiceHeader")
	sender := header.CreateElement("MessageSenderIdentifier")
	sender.CreateAttr("type", tn.IdentifierMatricule)
	sender.SetText(seller.String())
	receiver := header.CreateElement("MessageRecieverIdentifier")
	receiverType, receiverID := partyIdentifier(doc.PartyTaxID)
	receiver.CreateAttr("type", receiverType)
	receiver.SetText(receiverID)

	body := root.CreateElement("InvoiceBody")

	bgm := body.CreateElement("Bgm")
	bgm.CreateElement("DocumentIdentifier").SetText(doc.Number)
	docType := bgm.CreateElement("DocumentType")
	docType.CreateAttr("code", dt.code)
	docType.SetText(dt.label)

	dtm := body.CreateElement("Dtm")
	addDate(dtm, tn.DateIssue, doc.IssueDate.Format("020106"))
	if doc.DueDate != nil {
		addDate(dtm, tn.DateDue, doc.DueDate.Format("020106"))
	}

	partners := body.CreateElement("PartnerSection")
	addPartner(partners, tn.PartnerSeller, tn.IdentifierMatricule, seller.String(), company.Name, company.Address)
	addPartner(partners, tn.PartnerBuyer, receiverType, receiverID, doc.PartyName, doc.PartyAddress)

	lines := body.CreateElement("LinSection")
	for _, l := range doc.Lines {
		addLine(lines, l, currency)
	}

	t := doc.Totals
	invoiceMoa := body.CreateElement("InvoiceMoa")
	addMoa(invoiceMoa, tn.AmountTotalExclTax, t.TotalExclTax, currency)
	if t.GlobalDiscountAmount.IsPositive() {
		addMoa(invoiceMoa, tn.AmountTotalDiscount, t.GlobalDiscountAmount, currency)
	}
	addMoa(invoiceMoa, tn.AmountTotalTax, t.SpecialTaxAmount.Add(t.TotalTax).Add(t.FiscalStampAmount), currency)
	addMoa(invoiceMoa, tn.AmountTotalInclTax, t.TotalInclTax, currency)
	if p, err := doc.Kind.Policy(); err == nil && p.TracksNetPayable {
		addMoa(invoiceMoa, tn.AmountNetPayable, t.NetPayable, currency)
	}

	invoiceTax := body.CreateElement("InvoiceTax")
	m := doc.Modifiers
	if m.FiscalStampEnabled {
		addTax(invoiceTax, tn.TaxTypeStamp, "Droit de timbre", decimal.Zero, decimal.Zero, t.FiscalStampAmount, currency, false)
	}
	if m.SpecialTaxEnabled {
		addTax(invoiceTax, tn.TaxTypeFodec, "FODEC", m.SpecialTaxRatePct, t.TotalExclTax, t.SpecialTaxAmount, currency, true)
	}
	for _, bucket := range t.TaxBreakdown {
		addTax(invoiceTax, tn.TaxTypeVAT, "TVA", bucket.RatePct, bucket.Base, bucket.Amount, currency, true)
	}
	if m.WithholdingEnabled && t.WithholdingAmount.IsPositive() {
		addTax(invoiceTax, tn.TaxTypeWithholding, "Retenue à la source", m.WithholdingRatePct, t.TotalExclTax, t.WithholdingAmount, currency, true)
	}

	return x, nil
}

// partyIdentifier usa el matricule normalizado si es válido; si no, el identificador tal cual.
func partyIdentifier(taxID string) (string, string) {
	if m, err := tn.ParseMatricule(taxID); err == nil {
		return tn.IdentifierMatricule, m.String()
	}
	return tn.IdentifierOther, taxID
}

func addDate(parent *etree.Element, functionCode, value string) {
	d := parent.CreateElement("DateText")
	d.CreateAttr("format", tn.DateFormatDDMMYY)
	d.CreateAttr("functionCode", functionCode)
	d.SetText(value)
}

func addPartner(parent *etree.Element, functionCode, idType, id, name, address string) {
	details := parent.CreateElement("PartnerDetails")
	details.CreateAttr("functionCode", functionCode)
	nad := details.CreateElement("Nad")
	pid := nad.CreateElement("PartnerIdentifier")
	pid.CreateAttr("type", idType)
	pid.SetText(id)
	pname := nad.CreateElement("PartnerName")
	pname.CreateAttr("nameType", "Qualification")
	pname.SetText(name)
	if address != "" {
		addr := nad.CreateElement("PartnerAdresses")
		addr.CreateAttr("lang", "fr")
		addr.CreateElement("AdressDescription").SetText(address)
	}
}

func addLine(parent *etree.Element, l *entity.DocumentLine, currency string) {
	lin := parent.CreateElement("Lin")
	lin.CreateElement("ItemIdentifier").SetText(strconv.Itoa(l.Position))

	imd := lin.CreateElement("LinImd")
	imd.CreateAttr("lang", "fr")
	if l.ProductRef != "" {
		imd.CreateElement("ItemCode").SetText(l.ProductRef)
	}
	imd.CreateElement("ItemDescription").SetText(l.Description)

	qty := lin.CreateElement("LinQty").CreateElement("Quantity")
	qty.CreateAttr("measurementUnit", "UNIT")
	qty.SetText(l.Quantity.String())

	tax := lin.CreateElement("LinTax")
	name := tax.CreateElement("TaxTypeName")
	name.CreateAttr("code", tn.TaxTypeVAT)
	name.SetText("TVA")
	tax.CreateElement("TaxDetails").CreateElement("TaxRate").SetText(l.TaxRatePct.String())

	moa := lin.CreateElement("LinMoa")
	addMoa(moa, tn.AmountLineExclTax, l.TotalExclTax, currency)
}

func addMoa(parent *etree.Element, code string, amount decimal.Decimal, currency string) {
	details := parent.CreateElement("AmountDetails")
	moa := details.CreateElement("Moa")
	moa.CreateAttr("amountTypeCode", code)
	moa.CreateAttr("currencyCodeList", currencyCodeList)
	a := moa.CreateElement("Amount")
	a.CreateAttr("currencyIdentifier", currency)
	a.SetText(money.Fixed(amount))
}

func addTax(parent *etree.Element, code, label string, rate, base, amount decimal.Decimal, currency string, withRate bool) {
	details := parent.CreateElement("InvoiceTaxDetails")
	tax := details.CreateElement("Tax")
	name := tax.CreateElement("TaxTypeName")
	name.CreateAttr("code", code)
	name.SetText(label)
	if withRate {
		tax.CreateElement("TaxDetails").CreateElement("TaxRate").SetText(rate.String())
		addMoa(details, tn.AmountTaxBase, base, currency)
	}
	addMoa(details, tn.AmountTaxAmount, amount, currency)
}
