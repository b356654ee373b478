package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/depot-stock-api/internal/domain"
	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
	"github.com/jhoicas/depot-stock-api/internal/domain/repository"
)

var _ repository.ConversionHistoryRepository = (*ConversionHistoryRepo)(nil)

// ConversionHistoryRepo historial append-only en conversion_records (usable con pool o tx).
type ConversionHistoryRepo struct {
	q Querier
}

// NewConversionHistoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewConversionHistoryRepository(q Querier) *ConversionHistoryRepo {
	return &ConversionHistoryRepo{q: q}
}

const conversionRecordColumns = `id, batch_id, depot_id, source_variant_id, source_variant_name,
	source_quantity_consumed, target_variant_id, target_variant_name, target_quantity_produced,
	performed_by, performed_at, notes, created_at`

func scanConversionRecord(row pgx.Row) (*entity.ConversionRecord, error) {
	var r entity.ConversionRecord
	err := row.Scan(
		&r.ID, &r.BatchID, &r.DepotID, &r.SourceVariantID, &r.SourceVariantName,
		&r.SourceQuantityConsumed, &r.TargetVariantID, &r.TargetVariantName, &r.TargetQuantityProduced,
		&r.PerformedBy, &r.PerformedAt, &r.Notes, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Append inserta los registros en el orden recibido (seq conserva el orden de filas del lote).
func (r *ConversionHistoryRepo) Append(ctx context.Context, records []*entity.ConversionRecord) error {
	if len(records) == 0 {
		return nil
	}
	query := `
		INSERT INTO conversion_records (` + conversionRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec == nil {
			return domain.ErrInvalidInput
		}
		batch.Queue(query,
			rec.ID, rec.BatchID, rec.DepotID, rec.SourceVariantID, rec.SourceVariantName,
			rec.SourceQuantityConsumed, rec.TargetVariantID, rec.TargetVariantName, rec.TargetQuantityProduced,
			rec.PerformedBy, rec.PerformedAt, rec.Notes, rec.CreatedAt,
		)
	}
	results := r.q.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("append conversion record duplicado: %w", err)
			}
			return fmt.Errorf("append conversion record: %w", err)
		}
	}
	return nil
}

// Query página del historial, más recientes primero, y el total de coincidencias.
func (r *ConversionHistoryRepo) Query(ctx context.Context, f repository.HistoryFilter) ([]*entity.ConversionRecord, int, error) {
	where := []string{"1=1"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.DepotID != "" {
		add("depot_id = $%d", f.DepotID)
	}
	if f.VariantID != "" {
		args = append(args, f.VariantID)
		n := len(args)
		where = append(where, fmt.Sprintf("(source_variant_id = $%d OR target_variant_id = $%d)", n, n))
	}
	if f.From != nil {
		add("performed_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("performed_at <= $%d", *f.To)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM conversion_records WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversion records: %w", err)
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s FROM conversion_records WHERE %s
		ORDER BY performed_at DESC, seq DESC LIMIT $%d OFFSET $%d`,
		conversionRecordColumns, cond, len(args)-1, len(args))

	out, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByBatch registros del lote en el orden de sus filas destino.
func (r *ConversionHistoryRepo) ListByBatch(ctx context.Context, depotID, batchID string) ([]*entity.ConversionRecord, error) {
	query := `SELECT ` + conversionRecordColumns + ` FROM conversion_records
		WHERE depot_id = $1 AND batch_id = $2 ORDER BY seq`
	return r.list(ctx, query, depotID, batchID)
}

// SummarizeBySource agrupa en la consulta los totales por variante destino.
// El nombre devuelto es el del registro más reciente de cada destino.
func (r *ConversionHistoryRepo) SummarizeBySource(ctx context.Context, sourceVariantID string) ([]entity.ConversionAggregate, error) {
	query := `
		SELECT target_variant_id,
		       (ARRAY_AGG(target_variant_name ORDER BY seq DESC))[1],
		       SUM(source_quantity_consumed),
		       SUM(target_quantity_produced),
		       COUNT(*)
		FROM conversion_records
		WHERE source_variant_id = $1
		GROUP BY target_variant_id`
	rows, err := r.q.Query(ctx, query, sourceVariantID)
	if err != nil {
		return nil, fmt.Errorf("summarize conversions: %w", err)
	}
	defer rows.Close()

	out := make([]entity.ConversionAggregate, 0)
	for rows.Next() {
		var a entity.ConversionAggregate
		if err := rows.Scan(&a.TargetVariantID, &a.TargetVariantName, &a.TotalConsumed, &a.TotalProduced, &a.SampleCount); err != nil {
			return nil, fmt.Errorf("scan conversion aggregate: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ConversionHistoryRepo) list(ctx context.Context, query string, args ...any) ([]*entity.ConversionRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversion records: %w", err)
	}
	defer rows.Close()

	out := make([]*entity.ConversionRecord, 0)
	for rows.Next() {
		rec, err := scanConversionRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
