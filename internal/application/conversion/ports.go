package conversion

import (
	"context"

	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
	"github.com/jhoicas/depot-stock-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando el ledger y el historial atados a ella.
// Si fn devuelve error no queda ningún delta ni registro visible para otros lectores.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		ledger repository.StockLedger,
		history repository.ConversionHistoryRepository,
	) error) error
}

// SuggestionCache caché de lectura de sugerencias por variante origen.
// Sus fallos nunca afectan la corrección de la conversión.
type SuggestionCache interface {
	Get(ctx context.Context, sourceVariantID string) ([]entity.ConversionSuggestion, bool, error)
	Set(ctx context.Context, sourceVariantID string, suggestions []entity.ConversionSuggestion) error
	Invalidate(ctx context.Context, sourceVariantIDs ...string) error
}

// BatchVoucherGenerator genera el comprobante (PDF) de un lote de conversión.
type BatchVoucherGenerator interface {
	GenerateBatchVoucher(ctx context.Context, depot *entity.Depot, records []*entity.ConversionRecord) ([]byte, error)
}
