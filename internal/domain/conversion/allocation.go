package conversion

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/depot-stock-api/internal/domain"
	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

// QuantityScale decimales con los que se redondean las porciones repartidas.
const QuantityScale int32 = 6

// Allocate reparte sourceQuantity entre las filas en proporción a su cantidad destino:
//
//	consumido_i = origen * destino_i / Σ destino
//
// Las filas previas se truncan a QuantityScale y la última absorbe el remanente,
// de modo que la suma reconstruye exactamente sourceQuantity.
func Allocate(sourceQuantity decimal.Decimal, targets []entity.TargetAllocation) ([]decimal.Decimal, error) {
	if len(targets) == 0 || !sourceQuantity.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	total := decimal.Zero
	for _, t := range targets {
		if !t.TargetQuantity.IsPositive() {
			return nil, domain.ErrInvalidInput
		}
		total = total.Add(t.TargetQuantity)
	}

	shares := make([]decimal.Decimal, len(targets))
	assigned := decimal.Zero
	last := len(targets) - 1
	for i := 0; i < last; i++ {
		share := sourceQuantity.Mul(targets[i].TargetQuantity).Div(total).Truncate(QuantityScale)
		shares[i] = share
		assigned = assigned.Add(share)
	}
	shares[last] = sourceQuantity.Sub(assigned)
	return shares, nil
}

// Delta movimiento neto de una variante dentro de una conversión.
type Delta struct {
	VariantID string
	Amount    decimal.Decimal
}

// NetDeltas calcula el delta neto por variante (origen negativo, destinos repetidos sumados)
// ordenado por VariantID, que es el orden en que se bloquean y aplican.
func NetDeltas(req entity.ConversionRequest) []Delta {
	net := map[string]decimal.Decimal{req.SourceVariantID: req.SourceQuantity.Neg()}
	for _, t := range req.Targets {
		net[t.TargetVariantID] = net[t.TargetVariantID].Add(t.TargetQuantity)
	}
	deltas := make([]Delta, 0, len(net))
	for id, amount := range net {
		deltas = append(deltas, Delta{VariantID: id, Amount: amount})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].VariantID < deltas[j].VariantID })
	return deltas
}
