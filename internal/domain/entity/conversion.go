package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TargetAllocation una fila destino de la conversión: cuánto se produce de la variante destino.
type TargetAllocation struct {
	TargetVariantID string
	TargetQuantity  decimal.Decimal
}

// ConversionRequest solicitud efímera de conversión; nunca se persiste tal cual.
// SourceQuantity es el total de stock origen a consumir; se reparte entre Targets
// en proporción a TargetQuantity.
type ConversionRequest struct {
	DepotID         string
	SourceVariantID string
	SourceQuantity  decimal.Decimal
	Targets         []TargetAllocation
	Notes           string
}

// ConversionRecord entrada inmutable del historial, una por fila destino ejecutada.
// Los nombres se desnormalizan para sobrevivir a renombres posteriores.
type ConversionRecord struct {
	ID                     string
	BatchID                string
	DepotID                string
	SourceVariantID        string
	SourceVariantName      string
	SourceQuantityConsumed decimal.Decimal
	TargetVariantID        string
	TargetVariantName      string
	TargetQuantityProduced decimal.Decimal
	PerformedBy            string
	PerformedAt            time.Time
	Notes                  string
	CreatedAt              time.Time
}

// ConversionAggregate totales históricos de un par origen→destino.
type ConversionAggregate struct {
	TargetVariantID   string
	TargetVariantName string
	TotalConsumed     decimal.Decimal
	TotalProduced     decimal.Decimal
	SampleCount       int
}

// ConversionSuggestion sugerencia derivada del historial (no se persiste).
// SuggestedRatio = unidades destino por cada unidad origen.
type ConversionSuggestion struct {
	TargetVariantID   string
	TargetVariantName string
	SuggestedRatio    decimal.Decimal
	Description       string
	SampleCount       int
}
