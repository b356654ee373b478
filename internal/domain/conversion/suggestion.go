package conversion

import (
	"fmt"
	"sort"

	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

// DefaultSuggestionLimit máximo de sugerencias devueltas si no se configura otro.
const DefaultSuggestionLimit = 5

// Suggest convierte los totales históricos por destino en sugerencias.
// El ratio es Σ producido / Σ consumido (promedio ponderado por cantidad), no el promedio
// simple de ratios por registro. Orden: más muestras primero, luego mayor volumen consumido.
func Suggest(aggregates []entity.ConversionAggregate, limit int) []entity.ConversionSuggestion {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	usable := make([]entity.ConversionAggregate, 0, len(aggregates))
	for _, a := range aggregates {
		if a.SampleCount <= 0 || !a.TotalConsumed.IsPositive() {
			continue
		}
		usable = append(usable, a)
	}
	sort.SliceStable(usable, func(i, j int) bool {
		a, b := usable[i], usable[j]
		if a.SampleCount != b.SampleCount {
			return a.SampleCount > b.SampleCount
		}
		if !a.TotalConsumed.Equal(b.TotalConsumed) {
			return a.TotalConsumed.GreaterThan(b.TotalConsumed)
		}
		return a.TargetVariantID < b.TargetVariantID
	})
	if len(usable) > limit {
		usable = usable[:limit]
	}

	out := make([]entity.ConversionSuggestion, 0, len(usable))
	for _, a := range usable {
		ratio := a.TotalProduced.DivRound(a.TotalConsumed, QuantityScale)
		name := a.TargetVariantName
		if name == "" {
			name = a.TargetVariantID
		}
		out = append(out, entity.ConversionSuggestion{
			TargetVariantID:   a.TargetVariantID,
			TargetVariantName: a.TargetVariantName,
			SuggestedRatio:    ratio,
			Description:       fmt.Sprintf("1 unidad origen ≈ %s de %s (%d conversiones)", ratio.String(), name, a.SampleCount),
			SampleCount:       a.SampleCount,
		})
	}
	return out
}

// Aggregate agrupa registros del historial por variante destino.
// Lo usan los almacenes que no pueden agrupar en la consulta (memoria).
func Aggregate(records []*entity.ConversionRecord) []entity.ConversionAggregate {
	index := make(map[string]int)
	var out []entity.ConversionAggregate
	for _, r := range records {
		i, ok := index[r.TargetVariantID]
		if !ok {
			i = len(out)
			index[r.TargetVariantID] = i
			out = append(out, entity.ConversionAggregate{
				TargetVariantID:   r.TargetVariantID,
				TargetVariantName: r.TargetVariantName,
			})
		}
		out[i].TotalConsumed = out[i].TotalConsumed.Add(r.SourceQuantityConsumed)
		out[i].TotalProduced = out[i].TotalProduced.Add(r.TargetQuantityProduced)
		out[i].SampleCount++
	}
	return out
}
