// Package pdf genera el comprobante de un lote de conversión de stock.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Depósito + dirección │  N° Lote + Fecha            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ORIGEN: variante + total consumido                         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: # | Variante destino | Consumido | Producido        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  PIE: operador + notas + firma                              │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	appconversion "github.com/jhoicas/depot-stock-api/internal/application/conversion"
	"github.com/jhoicas/depot-stock-api/internal/domain"
	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

var _ appconversion.BatchVoucherGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa BatchVoucherGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	printer *message.Printer
}

// NewMarotoPDFGenerator construye el generador. Las cantidades se formatean según lang (ej. language.Spanish).
func NewMarotoPDFGenerator(lang language.Tag) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{printer: message.NewPrinter(lang)}
}

// GenerateBatchVoucher genera el PDF del lote y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateBatchVoucher(_ context.Context, depot *entity.Depot, records []*entity.ConversionRecord) ([]byte, error) {
	if depot == nil || len(records) == 0 {
		return nil, domain.ErrInvalidInput
	}
	first := records[0]

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante de conversión "+first.BatchID, true).
		WithAuthor(depot.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(depot, first))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(g.sourceRow(records))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(g.tableDetailRows(records)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(first)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(depot *entity.Depot, first *entity.ConversionRecord) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(depot.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(depot.Address, "-"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("COMPROBANTE DE CONVERSIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("Lote "+shortID(first.BatchID), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+first.PerformedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func (g *MarotoPDFGenerator) sourceRow(records []*entity.ConversionRecord) core.Row {
	first := records[0]
	return row.New(14).Add(
		col.New(12).Add(
			text.New("VARIANTE ORIGEN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(first.SourceVariantName, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New("Total consumido: "+g.quantity(totalConsumed(records)), props.Text{
				Size: 8, Top: 12, Color: colorGray,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("#", 1, align.Center),
		h("Variante destino", 5, align.Left),
		h("Consumido", 3, align.Right),
		h("Producido", 3, align.Right),
	)
}

func (g *MarotoPDFGenerator) tableDetailRows(records []*entity.ConversionRecord) []core.Row {
	result := make([]core.Row, 0, len(records))
	for i, r := range records {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(strconv.Itoa(i+1), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(5).Add(text.New(r.TargetVariantName, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(3).Add(text.New(g.quantity(r.SourceQuantityConsumed), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(g.quantity(r.TargetQuantityProduced), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func footerRows(first *entity.ConversionRecord) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("Realizado por: "+first.PerformedBy, props.Text{Size: 8, Top: 1}),
		)),
	}
	if first.Notes != "" {
		rows = append(rows, row.New(6).Add(col.New(12).Add(
			text.New("Notas: "+first.Notes, props.Text{Size: 8, Top: 1, Color: colorGray}),
		)))
	}
	rows = append(rows,
		row.New(14),
		row.New(6).Add(
			col.New(6).Add(text.New("______________________________", props.Text{Size: 8, Align: align.Center})),
			col.New(6).Add(text.New("______________________________", props.Text{Size: 8, Align: align.Center})),
		),
		row.New(6).Add(
			col.New(6).Add(text.New("Operador", props.Text{Size: 7, Align: align.Center, Color: colorGray})),
			col.New(6).Add(text.New("Supervisor de depósito", props.Text{Size: 7, Align: align.Center, Color: colorGray})),
		),
		row.New(8).Add(col.New(12).Add(
			text.New("Lote completo: "+first.BatchID, props.Text{Size: 6.5, Color: colorGray, Top: 3}),
		)),
	)
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

// quantity formatea con separadores del idioma, sin ceros decimales de sobra.
// Ej. (en): 1234.5 → "1,234.5".
func (g *MarotoPDFGenerator) quantity(d decimal.Decimal) string {
	s := d.String()
	scale := 0
	if i := strings.IndexByte(s, '.'); i >= 0 {
		scale = len(s) - i - 1
	}
	f, _ := d.Float64()
	return g.printer.Sprint(number.Decimal(f, number.Scale(scale)))
}

func totalConsumed(records []*entity.ConversionRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.SourceQuantityConsumed)
	}
	return total
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
