package repository

import (
	"context"
	"time"

	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

// HistoryFilter filtros de consulta del historial. VariantID coincide con origen o destino.
type HistoryFilter struct {
	DepotID   string
	VariantID string
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

// ConversionHistoryRepository historial append-only de conversiones: no expone update ni delete.
type ConversionHistoryRepository interface {
	// Append solo lo invoca el ejecutor, dentro de la misma transacción que los deltas del ledger.
	Append(ctx context.Context, records []*entity.ConversionRecord) error
	Query(ctx context.Context, filter HistoryFilter) ([]*entity.ConversionRecord, int, error)
	ListByBatch(ctx context.Context, depotID, batchID string) ([]*entity.ConversionRecord, error)
	SummarizeBySource(ctx context.Context, sourceVariantID string) ([]entity.ConversionAggregate, error)
}
