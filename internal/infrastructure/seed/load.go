package seed

import (
	"fmt"
	"io"
	"strings"

	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

// MemoryTarget lo que se necesita para cargar el archivo en el almacén en memoria.
type MemoryTarget interface {
	PutDepot(d entity.Depot)
	PutVariant(v entity.DepotVariant)
}

// LoadInto carga depósitos y variantes en el destino.
func (f *StockFile) LoadInto(t MemoryTarget) {
	for _, d := range f.Depots {
		t.PutDepot(d)
	}
	for _, v := range f.Variants {
		t.PutVariant(v)
	}
}

// WriteSQL escribe un script idempotente de carga inicial (ON CONFLICT DO UPDATE).
// Reinicia version a 1: usar solo sobre depósitos sin conversiones en curso.
func (f *StockFile) WriteSQL(w io.Writer) error {
	var b strings.Builder
	b.WriteString("-- Inventario inicial de depósitos\n")
	b.WriteString("-- Generado por cmd/seed_stock\n\n")

	if len(f.Depots) > 0 {
		b.WriteString("INSERT INTO depots (id, name) VALUES\n")
		for i, d := range f.Depots {
			fmt.Fprintf(&b, "  ('%s', '%s')%s\n", escapeSQL(d.ID), escapeSQL(d.Name), sep(i, len(f.Depots)))
		}
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = now();\n\n")
	}

	if len(f.Variants) > 0 {
		b.WriteString("INSERT INTO depot_variants (depot_id, variant_id, product_id, name, closing_qty, version) VALUES\n")
		for i, v := range f.Variants {
			fmt.Fprintf(&b, "  ('%s', '%s', '%s', '%s', %s, 1)%s\n",
				escapeSQL(v.DepotID), escapeSQL(v.VariantID), escapeSQL(v.ProductID), escapeSQL(v.Name),
				v.ClosingQty.StringFixed(6), sep(i, len(f.Variants)))
		}
		b.WriteString("ON CONFLICT (depot_id, variant_id) DO UPDATE SET\n")
		b.WriteString("  product_id = EXCLUDED.product_id, name = EXCLUDED.name,\n")
		b.WriteString("  closing_qty = EXCLUDED.closing_qty, version = 1, updated_at = now();\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sep(i, n int) string {
	if i < n-1 {
		return ","
	}
	return ""
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
