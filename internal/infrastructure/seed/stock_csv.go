// Package seed lee el inventario inicial de depósitos desde CSV (exportado de planilla)
// para cargarlo en el almacén en memoria o generar un script SQL de carga.
//
// Columnas: depot_id;depot_name;variant_id;product_id;variant_name;closing_qty
// Separador ';' (el de las planillas en español). Se aceptan archivos UTF-8 o ISO-8859-1.
// closing_qty admite coma decimal; si hay coma, los puntos son separadores de miles (1.234,5).
package seed

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

// StockFile contenido del CSV agrupado: depósitos únicos y sus variantes.
type StockFile struct {
	Depots   []entity.Depot
	Variants []entity.DepotVariant
}

// Charset codificación del archivo de entrada.
type Charset string

const (
	UTF8   Charset = "utf-8"
	Latin1 Charset = "iso-8859-1"
)

var header = []string{"depot_id", "depot_name", "variant_id", "product_id", "variant_name", "closing_qty"}

// ReadStockCSV parsea el CSV. La primera línea debe ser el encabezado.
func ReadStockCSV(r io.Reader, charset Charset) (*StockFile, error) {
	if strings.EqualFold(string(charset), string(Latin1)) || strings.EqualFold(string(charset), "ISO8859-1") {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("seed: leer csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("seed: archivo vacío")
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, err
	}

	depots := map[string]entity.Depot{}
	seen := map[string]bool{}
	out := &StockFile{}
	for i, rec := range rows[1:] {
		line := i + 2
		for j := range rec {
			rec[j] = strings.TrimSpace(rec[j])
		}
		depotID, depotName, variantID, productID, name, qtyRaw := rec[0], rec[1], rec[2], rec[3], rec[4], rec[5]
		if depotID == "" || variantID == "" || productID == "" {
			return nil, fmt.Errorf("seed: línea %d: depot_id, variant_id y product_id son obligatorios", line)
		}
		qty, err := parseQuantity(qtyRaw)
		if err != nil {
			return nil, fmt.Errorf("seed: línea %d: closing_qty inválido %q", line, qtyRaw)
		}
		if qty.IsNegative() {
			return nil, fmt.Errorf("seed: línea %d: closing_qty negativo", line)
		}
		key := depotID + "/" + variantID
		if seen[key] {
			return nil, fmt.Errorf("seed: línea %d: variante %s repetida en el depósito %s", line, variantID, depotID)
		}
		seen[key] = true
		if _, ok := depots[depotID]; !ok {
			depots[depotID] = entity.Depot{ID: depotID, Name: nonEmpty(depotName, depotID)}
		}
		out.Variants = append(out.Variants, entity.DepotVariant{
			DepotID:    depotID,
			VariantID:  variantID,
			ProductID:  productID,
			Name:       nonEmpty(name, variantID),
			ClosingQty: qty,
			Version:    1,
		})
	}

	ids := make([]string, 0, len(depots))
	for id := range depots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out.Depots = append(out.Depots, depots[id])
	}
	return out, nil
}

func checkHeader(got []string) error {
	if len(got) != len(header) {
		return fmt.Errorf("seed: encabezado con %d columnas, se esperan %d", len(got), len(header))
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(got[i], "\ufeff")), h) {
			return fmt.Errorf("seed: columna %d es %q, se esperaba %q", i+1, got[i], h)
		}
	}
	return nil
}

// parseQuantity acepta "1234.5", "1234,5" y "1.234,5".
func parseQuantity(raw string) (decimal.Decimal, error) {
	if strings.Contains(raw, ",") {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	}
	return decimal.NewFromString(raw)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
