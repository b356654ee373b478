package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appconversion "github.com/jhoicas/depot-stock-api/internal/application/conversion"
	"github.com/jhoicas/depot-stock-api/internal/domain"
	"github.com/jhoicas/depot-stock-api/internal/domain/repository"
)

var _ appconversion.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (READ COMMITTED).
// El bloqueo ordenado (SELECT ... FOR UPDATE) y el UPDATE condicionado por versión dan el aislamiento necesario.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con ledger e historial atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	ledger repository.StockLedger,
	history repository.ConversionHistoryRepository,
) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewStockLedgerRepository(tx), NewConversionHistoryRepository(tx)); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %w", domain.ErrConflict, err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %w", domain.ErrConflict, err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
