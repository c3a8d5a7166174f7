package numbering_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/numbering"
)

var issued = time.Date(2025, time.March, 9, 10, 30, 0, 0, time.UTC)

func TestFormat_Tokens(t *testing.T) {
	tests := []struct {
		template string
		seq      int64
		want     string
	}{
		{"INV-{{YYYY}}-{{SEQ:5}}", 7, "INV-2025-00007"},
		{"FAC/{{YY}}{{MM}}{{DD}}/{{SEQ}}", 42, "FAC/250309/42"},
		{"{{SEQ:3}}", 12345, "12345"}, // el relleno nunca trunca
		{"BL-{{SEQ:1}}", 9, "BL-9"},
		{"AV-{{YYYY}}-{{SEQ:12}}", 1, "AV-2025-000000000001"},
		{"X-{{SEQ}}-{{SEQ:4}}", 3, "X-3-0003"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			got, err := numbering.Format(tt.template, issued, tt.seq)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Errores(t *testing.T) {
	tests := []struct {
		name     string
		template string
		seq      int64
	}{
		{"plantilla vacía", "   ", 1},
		{"secuencia cero", "F-{{SEQ}}", 0},
		{"token desconocido", "F-{{HH}}-{{SEQ}}", 1},
		{"ancho cero", "F-{{SEQ:0}}", 1},
		{"ancho excesivo", "F-{{SEQ:13}}", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := numbering.Format(tt.template, issued, tt.seq)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

func TestDefaultTemplate_TodosLosTipos(t *testing.T) {
	prefixes := map[entity.Kind]string{
		entity.KindQuote:           "DEV-2025-00001",
		entity.KindInvoice:         "FAC-2025-00001",
		entity.KindDeliveryNote:    "BL-2025-00001",
		entity.KindCreditNote:      "AV-2025-00001",
		entity.KindPurchaseInvoice: "FAF-2025-00001",
		entity.KindGoodsReceipt:    "BR-2025-00001",
	}
	for _, k := range entity.Kinds {
		tpl, err := numbering.DefaultTemplate(k)
		require.NoError(t, err, k)
		got, err := numbering.Format(tpl, issued, 1)
		require.NoError(t, err)
		assert.Equal(t, prefixes[k], got)
	}

	_, err := numbering.DefaultTemplate("payslip")
	assert.True(t, errors.Is(err, domain.ErrUnknownKind))
}

func TestValidateTemplate(t *testing.T) {
	assert.NoError(t, numbering.ValidateTemplate("FAC-{{YYYY}}-{{SEQ:6}}"))
	assert.NoError(t, numbering.ValidateTemplate("{{SEQ}}"))
	assert.Error(t, numbering.ValidateTemplate("FAC-{{YYYY}}"), "sin secuencia")
	assert.Error(t, numbering.ValidateTemplate("FAC-{{SEQ}}-{{FOO}}"))
}
