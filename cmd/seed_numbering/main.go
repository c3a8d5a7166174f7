// seed_numbering genera una migración SQL con las plantillas de numeración y los
// contadores de cada tenant a partir del export CSV del sistema anterior
// (Windows-1252, separador ';').
//
// Columnas: tenant_id;tipo;plantilla;ultimo_numero
//
// Uso: go run ./cmd/seed_numbering [ruta/numerotation.csv]
// Escribe: internal/infrastructure/postgres/migrations/000002_seed_numbering.{up,down}.sql
package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/numbering"
)

// Nombres usados en el export anterior.
var legacyKinds = map[string]entity.Kind{
	"devis":               entity.KindQuote,
	"facture":             entity.KindInvoice,
	"bon de livraison":    entity.KindDeliveryNote,
	"bl":                  entity.KindDeliveryNote,
	"avoir":               entity.KindCreditNote,
	"facture fournisseur": entity.KindPurchaseInvoice,
	"ff":                  entity.KindPurchaseInvoice,
	"bon de réception":    entity.KindGoodsReceipt,
	"br":                  entity.KindGoodsReceipt,
}

type seedRow struct {
	tenantID  string
	kind      entity.Kind
	template  string
	lastValue int64
}

func main() {
	csvPath := "numerotation.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := readRows(transform.NewReader(f, charmap.Windows1252.NewDecoder()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	dir := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "migrations")
	if err := writeFile(filepath.Join(dir, "000002_seed_numbering.up.sql"), func(w io.Writer) error { return writeUp(w, rows) }); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir migración: %v\n", err)
		os.Exit(1)
	}
	if err := writeFile(filepath.Join(dir, "000002_seed_numbering.down.sql"), func(w io.Writer) error { return writeDown(w, rows) }); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir migración: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generada migración de numeración: %d plantillas\n", len(rows))
}

// readRows interpreta el CSV ya decodificado a UTF-8. La primera fila es cabecera.
func readRows(r io.Reader) ([]seedRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	var rows []seedRow
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 {
			continue
		}
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(rec []string) (seedRow, error) {
	tenantID := strings.TrimSpace(rec[0])
	if tenantID == "" {
		return seedRow{}, fmt.Errorf("tenant vacío")
	}
	kind, err := parseLegacyKind(rec[1])
	if err != nil {
		return seedRow{}, err
	}
	tpl := strings.TrimSpace(rec[2])
	if err := numbering.ValidateTemplate(tpl); err != nil {
		return seedRow{}, err
	}
	last := int64(0)
	if s := strings.TrimSpace(rec[3]); s != "" {
		if last, err = strconv.ParseInt(s, 10, 64); err != nil || last < 0 {
			return seedRow{}, fmt.Errorf("último número inválido %q", s)
		}
	}
	return seedRow{tenantID: tenantID, kind: kind, template: tpl, lastValue: last}, nil
}

func parseLegacyKind(s string) (entity.Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if k, ok := legacyKinds[s]; ok {
		return k, nil
	}
	return entity.ParseKind(s)
}

func writeUp(w io.Writer, rows []seedRow) error {
	var b strings.Builder
	b.WriteString("-- Plantillas y contadores migrados del sistema anterior\n")
	b.WriteString("-- Generado por cmd/seed_numbering\n\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "INSERT INTO numbering_templates (tenant_id, kind, template) VALUES ('%s', '%s', '%s')\n",
			escapeSQL(r.tenantID), r.kind, escapeSQL(r.template))
		b.WriteString("ON CONFLICT (tenant_id, kind) DO UPDATE SET template = EXCLUDED.template, updated_at = now();\n")
		// El contador continúa donde quedó; GREATEST evita retroceder uno ya más avanzado.
		fmt.Fprintf(&b, "INSERT INTO sequence_counters (tenant_id, kind, value, base) VALUES ('%s', '%s', %d, 1)\n",
			escapeSQL(r.tenantID), r.kind, r.lastValue)
		b.WriteString("ON CONFLICT (tenant_id, kind) DO UPDATE SET value = GREATEST(sequence_counters.value, EXCLUDED.value), updated_at = now();\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeDown borra solo las plantillas: los contadores no se retroceden nunca.
func writeDown(w io.Writer, rows []seedRow) error {
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "DELETE FROM numbering_templates WHERE tenant_id = '%s' AND kind = '%s';\n",
			escapeSQL(r.tenantID), r.kind)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeFile(path string, fn func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
