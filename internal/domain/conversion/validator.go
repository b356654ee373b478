// Package conversion contiene las reglas puras del motor de conversión de stock:
// validación de solicitudes, regla de reparto del origen y agregación de sugerencias.
// No tiene efectos secundarios; es seguro invocarlo en cada tecla del formulario.
package conversion

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

// Códigos de issue (atribuibles a campo/fila para que la UI resalte la fila exacta).
const (
	CodeUnknownVariant    = "UNKNOWN_VARIANT"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeEmptyTargetSet    = "EMPTY_TARGET_SET"
	CodeInvalidTarget     = "INVALID_TARGET"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeDuplicateTarget   = "DUPLICATE_TARGET"
)

// MaxQuantity tope exclusivo de cualquier cantidad y de cualquier saldo resultante.
// Junto con QuantityScale corresponde a las columnas NUMERIC(18,6).
var MaxQuantity = decimal.New(1, 12)

// RequestRow fila usada para issues a nivel de solicitud (no de una fila destino).
const RequestRow = -1

// Issue error o advertencia de validación.
type Issue struct {
	Code      string
	Field     string
	Row       int
	Message   string
	Requested *decimal.Decimal
	Available *decimal.Decimal
}

// Result resultado de Validate. Warnings nunca bloquean la ejecución.
type Result struct {
	Errors   []Issue
	Warnings []Issue
}

// Valid indica si no hay errores bloqueantes.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// HasCode indica si algún error tiene el código dado.
func (r Result) HasCode(code string) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

func (r *Result) fail(i Issue) { r.Errors = append(r.Errors, i) }
func (r *Result) warn(i Issue) { r.Warnings = append(r.Warnings, i) }

// Snapshot vista inmutable del ledger de un depósito, indexada por variante.
type Snapshot struct {
	DepotID  string
	variants map[string]*entity.DepotVariant
}

// NewSnapshot construye el snapshot descartando variantes de otros depósitos.
func NewSnapshot(depotID string, variants []*entity.DepotVariant) Snapshot {
	m := make(map[string]*entity.DepotVariant, len(variants))
	for _, v := range variants {
		if v == nil || v.DepotID != depotID {
			continue
		}
		cp := *v
		m[v.VariantID] = &cp
	}
	return Snapshot{DepotID: depotID, variants: m}
}

// Variant devuelve la variante del snapshot, si existe.
func (s Snapshot) Variant(variantID string) (*entity.DepotVariant, bool) {
	v, ok := s.variants[variantID]
	return v, ok
}

func targetField(i int, name string) string {
	return fmt.Sprintf("targets[%d].%s", i, name)
}

// Validate revisa la solicitud contra el snapshot, en este orden:
// depósito y origen conocidos, cantidad origen, filas destino presentes, cada fila destino,
// stock suficiente y, por último, destinos repetidos (solo advertencia).
func Validate(req entity.ConversionRequest, snap Snapshot) Result {
	var res Result

	var source *entity.DepotVariant
	switch {
	case strings.TrimSpace(req.DepotID) == "":
		res.fail(Issue{Code: CodeUnknownVariant, Field: "depot_id", Row: RequestRow, Message: "depot_id es requerido"})
	case req.DepotID != snap.DepotID:
		res.fail(Issue{Code: CodeUnknownVariant, Field: "depot_id", Row: RequestRow, Message: "el depósito no coincide con el stock consultado"})
	default:
		if v, ok := snap.Variant(req.SourceVariantID); ok {
			source = v
		} else {
			res.fail(Issue{Code: CodeUnknownVariant, Field: "source_variant_id", Row: RequestRow, Message: "variante origen no existe en el depósito"})
		}
	}

	sourceQtyOK := true
	if msg := quantityProblem(req.SourceQuantity); msg != "" {
		sourceQtyOK = false
		res.fail(Issue{Code: CodeInvalidQuantity, Field: "source_quantity", Row: RequestRow, Message: "la cantidad origen " + msg})
	}

	if len(req.Targets) == 0 {
		res.fail(Issue{Code: CodeEmptyTargetSet, Field: "targets", Row: RequestRow, Message: "se requiere al menos una variante destino"})
	}

	credited := make(map[string]decimal.Decimal, len(req.Targets))
	for i, t := range req.Targets {
		validateTarget(&res, i, t, req, snap, source, credited)
	}

	if source != nil && sourceQtyOK && req.SourceQuantity.GreaterThan(source.ClosingQty) {
		requested, available := req.SourceQuantity, source.ClosingQty
		res.fail(Issue{
			Code:      CodeInsufficientStock,
			Field:     "source_quantity",
			Row:       RequestRow,
			Message:   fmt.Sprintf("stock insuficiente: solicitado %s, disponible %s", requested.String(), available.String()),
			Requested: &requested,
			Available: &available,
		})
	}

	seen := make(map[string]int, len(req.Targets))
	for i, t := range req.Targets {
		if t.TargetVariantID == "" {
			continue
		}
		if first, ok := seen[t.TargetVariantID]; ok {
			res.warn(Issue{
				Code:    CodeDuplicateTarget,
				Field:   targetField(i, "target_variant_id"),
				Row:     i,
				Message: fmt.Sprintf("la variante destino ya aparece en la fila %d; se sumarán las cantidades", first),
			})
			continue
		}
		seen[t.TargetVariantID] = i
	}

	return res
}

func validateTarget(res *Result, i int, t entity.TargetAllocation, req entity.ConversionRequest, snap Snapshot, source *entity.DepotVariant, credited map[string]decimal.Decimal) {
	field := targetField(i, "target_variant_id")
	var target *entity.DepotVariant
	switch {
	case t.TargetVariantID == "":
		res.fail(Issue{Code: CodeInvalidTarget, Field: field, Row: i, Message: "variante destino requerida"})
	case t.TargetVariantID == req.SourceVariantID:
		res.fail(Issue{Code: CodeInvalidTarget, Field: field, Row: i, Message: "la variante destino no puede ser la misma que el origen"})
	default:
		v, ok := snap.Variant(t.TargetVariantID)
		if !ok {
			res.fail(Issue{Code: CodeInvalidTarget, Field: field, Row: i, Message: "variante destino no existe en el depósito"})
		} else if source != nil && v.ProductID != source.ProductID {
			res.fail(Issue{Code: CodeInvalidTarget, Field: field, Row: i, Message: "la variante destino pertenece a otro producto"})
		} else {
			target = v
		}
	}

	qtyField := targetField(i, "target_quantity")
	if msg := quantityProblem(t.TargetQuantity); msg != "" {
		res.fail(Issue{Code: CodeInvalidQuantity, Field: qtyField, Row: i, Message: "la cantidad destino " + msg})
		return
	}
	if target == nil {
		return
	}
	// Filas repetidas se acumulan sobre el mismo saldo.
	sum := credited[t.TargetVariantID].Add(t.TargetQuantity)
	credited[t.TargetVariantID] = sum
	if target.ClosingQty.Add(sum).GreaterThanOrEqual(MaxQuantity) {
		res.fail(Issue{Code: CodeInvalidQuantity, Field: qtyField, Row: i, Message: "el saldo resultante de la variante destino excede el máximo admitido"})
	}
}

// quantityProblem describe por qué q no es una cantidad admisible, o "" si lo es.
func quantityProblem(q decimal.Decimal) string {
	switch {
	case !q.IsPositive():
		return "debe ser mayor que cero"
	case !q.Equal(q.Truncate(QuantityScale)):
		return fmt.Sprintf("admite como máximo %d decimales", QuantityScale)
	case q.GreaterThanOrEqual(MaxQuantity):
		return "excede el máximo admitido"
	}
	return ""
}
