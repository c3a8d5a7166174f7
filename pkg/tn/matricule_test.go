package tn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-tn-api/pkg/tn"
)

func TestParseMatricule_Formatos(t *testing.T) {
	for _, in := range []string{"1234567A/A/M/000", "1234567 a a m 000", "1234567AAM000", "1234567-A-A-M-000"} {
		m, err := tn.ParseMatricule(in)
		require.NoError(t, err, in)
		assert.Equal(t, "1234567A/A/M/000", m.String())
		assert.Equal(t, "1234567", m.Identifier)
		assert.Equal(t, byte('M'), m.Category)
		assert.Equal(t, "000", m.Establishment)
	}
}

func TestParseMatricule_Invalidos(t *testing.T) {
	tests := map[string]string{
		"corto":              "1234567A/A/M",
		"identificador":      "12345X7A/A/M/000",
		"letra de control I": "1234567I/A/M/000",
		"código TVA":         "1234567A/Z/M/000",
		"categoría":          "1234567A/A/X/000",
		"establecimiento":    "1234567A/A/M/0A0",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tn.ParseMatricule(in)
			assert.Error(t, err)
			assert.False(t, tn.IsValidMatricule(in))
		})
	}
}
