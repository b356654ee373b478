package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/depot-stock-api/internal/domain"
	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
	"github.com/jhoicas/depot-stock-api/internal/domain/repository"
)

var (
	_ repository.StockLedger    = (*StockLedgerRepo)(nil)
	_ repository.VariantCatalog = (*StockLedgerRepo)(nil)
)

// StockLedgerRepo ledger de depot_variants sobre PostgreSQL (usable con pool o tx).
type StockLedgerRepo struct {
	q Querier
}

// NewStockLedgerRepository construye el adaptador del ledger. Pasar pool o tx (Querier).
func NewStockLedgerRepository(q Querier) *StockLedgerRepo {
	return &StockLedgerRepo{q: q}
}

const depotVariantColumns = `depot_id, variant_id, product_id, name, closing_qty, version, updated_at`

func scanDepotVariant(row pgx.Row) (*entity.DepotVariant, error) {
	var v entity.DepotVariant
	err := row.Scan(&v.DepotID, &v.VariantID, &v.ProductID, &v.Name, &v.ClosingQty, &v.Version, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetQuantity cantidad y versión vigentes de una variante.
func (r *StockLedgerRepo) GetQuantity(ctx context.Context, depotID, variantID string) (decimal.Decimal, int64, error) {
	query := `SELECT closing_qty, version FROM depot_variants WHERE depot_id = $1 AND variant_id = $2`
	var qty decimal.Decimal
	var version int64
	err := r.q.QueryRow(ctx, query, depotID, variantID).Scan(&qty, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, 0, domain.ErrUnknownVariant
		}
		return decimal.Zero, 0, fmt.Errorf("get quantity: %w", err)
	}
	return qty, version, nil
}

// ApplyDelta suma delta a closing_qty solo si la versión coincide y el resultado no es negativo.
// Si no se actualiza ninguna fila se relee para clasificar el motivo.
func (r *StockLedgerRepo) ApplyDelta(ctx context.Context, depotID, variantID string, delta decimal.Decimal, expectedVersion int64) (int64, error) {
	query := `
		UPDATE depot_variants
		SET closing_qty = closing_qty + $3, version = version + 1, updated_at = now()
		WHERE depot_id = $1 AND variant_id = $2 AND version = $4 AND closing_qty + $3 >= 0
		RETURNING version`
	var version int64
	err := r.q.QueryRow(ctx, query, depotID, variantID, delta, expectedVersion).Scan(&version)
	if err == nil {
		return version, nil
	}
	if isCheckViolation(err) {
		return 0, domain.ErrInsufficientStock
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("apply delta: %w", err)
	}

	current, currentVersion, err := r.GetQuantity(ctx, depotID, variantID)
	if err != nil {
		return 0, err
	}
	if currentVersion != expectedVersion {
		return 0, domain.ErrStaleVersion
	}
	if current.Add(delta).IsNegative() {
		return 0, domain.ErrInsufficientStock
	}
	return 0, domain.ErrStaleVersion
}

// LockVariants bloquea las filas (SELECT ... FOR UPDATE) en el orden de variantIDs.
// Se bloquea fila por fila para respetar el orden recibido y evitar deadlocks entre conversiones.
func (r *StockLedgerRepo) LockVariants(ctx context.Context, depotID string, variantIDs []string) error {
	query := `SELECT version FROM depot_variants WHERE depot_id = $1 AND variant_id = $2 FOR UPDATE`
	batch := &pgx.Batch{}
	for _, id := range variantIDs {
		batch.Queue(query, depotID, id)
	}
	results := r.q.SendBatch(ctx, batch)
	defer results.Close()

	for range variantIDs {
		var version int64
		if err := results.QueryRow().Scan(&version); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrUnknownVariant
			}
			return fmt.Errorf("lock variants: %w", err)
		}
	}
	return nil
}

// Snapshot todas las variantes del depósito ordenadas por variant_id.
func (r *StockLedgerRepo) Snapshot(ctx context.Context, depotID string) ([]*entity.DepotVariant, error) {
	query := `SELECT ` + depotVariantColumns + ` FROM depot_variants WHERE depot_id = $1 ORDER BY variant_id`
	return r.list(ctx, query, depotID)
}

// ListVariants catálogo del depósito, opcionalmente filtrado por producto, ordenado por nombre.
func (r *StockLedgerRepo) ListVariants(ctx context.Context, depotID, productID string) ([]*entity.DepotVariant, error) {
	query := `SELECT ` + depotVariantColumns + ` FROM depot_variants
		WHERE depot_id = $1 AND ($2::text = '' OR product_id = $2::text)
		ORDER BY name, variant_id`
	return r.list(ctx, query, depotID, productID)
}

func (r *StockLedgerRepo) list(ctx context.Context, query string, args ...any) ([]*entity.DepotVariant, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list depot variants: %w", err)
	}
	defer rows.Close()

	out := make([]*entity.DepotVariant, 0)
	for rows.Next() {
		v, err := scanDepotVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan depot variant: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
