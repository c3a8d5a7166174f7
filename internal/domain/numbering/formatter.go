// Package numbering formatea los números de documento a partir de una plantilla
// por tenant y tipo. El contador atómico vive fuera de este paquete.
package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
)

// MaxSeqWidth es el ancho máximo admitido en {{SEQ:n}}.
const MaxSeqWidth = 12

var (
	seqPadRe     = regexp.MustCompile(`\{\{SEQ:(\d+)\}\}`)
	unresolvedRe = regexp.MustCompile(`\{\{[^}]*\}\}`)
)

var defaultTemplates = map[entity.Kind]string{
	entity.KindQuote:           "DEV-{{YYYY}}-{{SEQ:5}}",
	entity.KindInvoice:         "FAC-{{YYYY}}-{{SEQ:5}}",
	entity.KindDeliveryNote:    "BL-{{YYYY}}-{{SEQ:5}}",
	entity.KindCreditNote:      "AV-{{YYYY}}-{{SEQ:5}}",
	entity.KindPurchaseInvoice: "FAF-{{YYYY}}-{{SEQ:5}}",
	entity.KindGoodsReceipt:    "BR-{{YYYY}}-{{SEQ:5}}",
}

// DefaultTemplate devuelve la plantilla integrada del tipo.
func DefaultTemplate(kind entity.Kind) (string, error) {
	t, ok := defaultTemplates[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownKind, string(kind))
	}
	return t, nil
}

// Format sustituye los tokens de la plantilla. Es pura: misma entrada, misma salida.
//
//	{{YYYY}} {{YY}} {{MM}} {{DD}}  fecha de emisión
//	{{SEQ}}                        secuencia sin relleno
//	{{SEQ:n}}                      secuencia rellena con ceros a n dígitos (1..12)
//
// Un token no resuelto es un error de configuración.
func Format(template string, issuedAt time.Time, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("%w: plantilla de numeración vacía", domain.ErrInvalidInput)
	}
	if seq <= 0 {
		return "", fmt.Errorf("%w: secuencia inválida %d", domain.ErrInvalidInput, seq)
	}

	out := template
	out = strings.ReplaceAll(out, "{{YYYY}}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{{YY}}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{{MM}}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{{DD}}", issuedAt.Format("02"))
	out = strings.ReplaceAll(out, "{{SEQ}}", strconv.FormatInt(seq, 10))

	var widthErr error
	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width < 1 || width > MaxSeqWidth {
			widthErr = fmt.Errorf("%w: ancho de secuencia fuera de rango en %s", domain.ErrInvalidInput, m)
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})
	if widthErr != nil {
		return "", widthErr
	}

	if tok := unresolvedRe.FindString(out); tok != "" {
		return "", fmt.Errorf("%w: token no resuelto %s en %q", domain.ErrInvalidInput, tok, template)
	}
	return out, nil
}

// ValidateTemplate comprueba la plantilla formateando un valor de prueba.
// Exige {{SEQ}} o {{SEQ:n}}: sin secuencia dos documentos compartirían número.
func ValidateTemplate(template string) error {
	if !strings.Contains(template, "{{SEQ}}") && !seqPadRe.MatchString(template) {
		return fmt.Errorf("%w: la plantilla debe contener {{SEQ}} o {{SEQ:n}}", domain.ErrInvalidInput)
	}
	_, err := Format(template, time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), 1)
	return err
}
