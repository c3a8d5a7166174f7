// Package tn contiene catálogos y validaciones del régimen fiscal tunecino
// (matricule fiscal, códigos TEIF de la factura electrónica TTN).
package tn

import (
	"fmt"
	"strings"
	"unicode"
)

// Matricule es un matricule fiscal descompuesto: 1234567A/A/M/000.
type Matricule struct {
	Identifier    string // 7 dígitos
	Key           byte   // letra de control (sin I, O, U)
	VATCode       byte   // código TVA: A, P, B, D, N
	Category      byte   // código categoría: M, P, C, N, E
	Establishment string // 3 dígitos, "000" = sede principal
}

// String devuelve el formato canónico con barras.
func (m Matricule) String() string {
	return fmt.Sprintf("%s%c/%c/%c/%s", m.Identifier, m.Key, m.VATCode, m.Category, m.Establishment)
}

// ParseMatricule acepta "1234567A/A/M/000", "1234567 A A M 000" o "1234567AAM000".
func ParseMatricule(s string) (Matricule, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r == '/' || r == ' ' || r == '-' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	c := b.String()
	if len(c) != 13 {
		return Matricule{}, fmt.Errorf("tn: matricule fiscal debe tener 13 caracteres significativos, se encontraron %d", len(c))
	}
	for i := 0; i < 7; i++ {
		if !unicode.IsDigit(rune(c[i])) {
			return Matricule{}, fmt.Errorf("tn: identificador del matricule fiscal debe ser numérico")
		}
	}
	key := c[7]
	if key < 'A' || key > 'Z' || key == 'I' || key == 'O' || key == 'U' {
		return Matricule{}, fmt.Errorf("tn: letra de control inválida %q", key)
	}
	if !strings.ContainsRune("APBDN", rune(c[8])) {
		return Matricule{}, fmt.Errorf("tn: código TVA inválido %q", c[8])
	}
	if !strings.ContainsRune("MPCNE", rune(c[9])) {
		return Matricule{}, fmt.Errorf("tn: código categoría inválido %q", c[9])
	}
	for i := 10; i < 13; i++ {
		if !unicode.IsDigit(rune(c[i])) {
			return Matricule{}, fmt.Errorf("tn: número de establecimiento debe ser numérico")
		}
	}
	return Matricule{
		Identifier:    c[:7],
		Key:           key,
		VATCode:       c[8],
		Category:      c[9],
		Establishment: c[10:],
	}, nil
}

// IsValidMatricule indica si s es un matricule fiscal bien formado.
func IsValidMatricule(s string) bool {
	_, err := ParseMatricule(s)
	return err == nil
}
