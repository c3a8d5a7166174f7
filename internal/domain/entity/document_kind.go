package entity

import (
	"fmt"

	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/fiscal"
)

// Kind es el tipo de documento comercial.
type Kind string

const (
	KindQuote           Kind = "quote"            // devis
	KindInvoice         Kind = "invoice"          // facture
	KindDeliveryNote    Kind = "delivery-note"    // bon de livraison
	KindCreditNote      Kind = "credit-note"      // avoir
	KindPurchaseInvoice Kind = "purchase-invoice" // facture fournisseur
	KindGoodsReceipt    Kind = "goods-receipt"    // bon de réception
)

// Kinds lista los tipos soportados en orden estable.
var Kinds = []Kind{
	KindQuote, KindInvoice, KindDeliveryNote, KindCreditNote, KindPurchaseInvoice, KindGoodsReceipt,
}

// Sentido del movimiento de stock que genera un documento.
const (
	StockNone = ""
	StockIn   = "IN"
	StockOut  = "OUT"
)

// KindPolicy declara qué modificadores acepta cada tipo y sus efectos colaterales.
type KindPolicy struct {
	Kind               Kind
	FiscalStamp        bool
	Withholding        bool
	NegativeQuantities bool
	TracksNetPayable   bool
	StockDirection     string
	PurchaseSide       bool // el tercero es un proveedor
}

var policies = map[Kind]KindPolicy{
	KindQuote:           {Kind: KindQuote, FiscalStamp: true},
	KindInvoice:         {Kind: KindInvoice, FiscalStamp: true, Withholding: true, TracksNetPayable: true},
	KindDeliveryNote:    {Kind: KindDeliveryNote, StockDirection: StockOut},
	KindCreditNote:      {Kind: KindCreditNote, NegativeQuantities: true}, // el timbre no se restituye
	KindPurchaseInvoice: {Kind: KindPurchaseInvoice, FiscalStamp: true, Withholding: true, TracksNetPayable: true, PurchaseSide: true},
	KindGoodsReceipt:    {Kind: KindGoodsReceipt, StockDirection: StockIn, PurchaseSide: true},
}

// ParseKind valida el tipo recibido (ruta o payload).
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := policies[k]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownKind, s)
	}
	return k, nil
}

// Policy devuelve la política del tipo. Un tipo desconocido devuelve ErrUnknownKind.
func (k Kind) Policy() (KindPolicy, error) {
	p, ok := policies[k]
	if !ok {
		return KindPolicy{}, fmt.Errorf("%w: %q", domain.ErrUnknownKind, string(k))
	}
	return p, nil
}

func (k Kind) String() string { return string(k) }

// Apply fuerza a cero los modificadores que el tipo no admite.
// El resultado es lo que se pasa a fiscal.ComputeTotals.
func (p KindPolicy) Apply(m fiscal.Modifiers) fiscal.Modifiers {
	if !p.FiscalStamp {
		m.FiscalStampEnabled = false
	}
	if !p.Withholding {
		m.WithholdingEnabled = false
	}
	m.AllowNegativeQuantities = p.NegativeQuantities
	return m
}

// AffectsStock indica si el documento genera movimientos de inventario.
func (p KindPolicy) AffectsStock() bool {
	return p.StockDirection != StockNone
}
