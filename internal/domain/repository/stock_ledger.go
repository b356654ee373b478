package repository

import (
	"context"

	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockLedger es el único punto por el que cambia closing_qty de una variante en un depósito.
// No conoce la semántica de conversión: aplica deltas con signo, verificando versión y no-negatividad.
type StockLedger interface {
	GetQuantity(ctx context.Context, depotID, variantID string) (decimal.Decimal, int64, error)
	// ApplyDelta falla con domain.ErrStaleVersion si la versión cambió, domain.ErrInsufficientStock
	// si el resultado sería negativo y domain.ErrUnknownVariant si la fila no existe.
	ApplyDelta(ctx context.Context, depotID, variantID string, delta decimal.Decimal, expectedVersion int64) (int64, error)
	// LockVariants bloquea las filas en el orden recibido (el llamador las ordena).
	LockVariants(ctx context.Context, depotID string, variantIDs []string) error
	// Snapshot devuelve todas las variantes del depósito con cantidad y versión vigentes.
	Snapshot(ctx context.Context, depotID string) ([]*entity.DepotVariant, error)
}
