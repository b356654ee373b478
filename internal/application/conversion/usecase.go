package conversion

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/depot-stock-api/internal/domain"
	domconversion "github.com/jhoicas/depot-stock-api/internal/domain/conversion"
	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
	"github.com/jhoicas/depot-stock-api/internal/domain/repository"
	"github.com/jhoicas/depot-stock-api/pkg/logger"
)

// Config parámetros del motor de conversión.
type Config struct {
	SuggestionLimit int // máximo de sugerencias por variante origen
	HistoryMaxLimit int // tope de registros por página del historial
}

// Deps colaboradores del caso de uso. Cache y Voucher son opcionales.
type Deps struct {
	TxRunner TxRunner
	Ledger   repository.StockLedger
	Catalog  repository.VariantCatalog
	History  repository.ConversionHistoryRepository
	Depots   repository.DepotRepository
	Cache    SuggestionCache
	Voucher  BatchVoucherGenerator
	Log      *logger.Logger
}

// ConversionUseCase motor de conversión de stock entre variantes de un mismo depósito:
// validación, ejecución atómica multi-destino, historial y sugerencias.
type ConversionUseCase struct {
	txRunner TxRunner
	ledger   repository.StockLedger
	catalog  repository.VariantCatalog
	history  repository.ConversionHistoryRepository
	depots   repository.DepotRepository
	cache    SuggestionCache
	voucher  BatchVoucherGenerator
	log      *logger.Logger
	cfg      Config

	// invalidations cuenta las invalidaciones de caché; Suggest no guarda si cambió durante la lectura.
	invalidations atomic.Uint64

	now   func() time.Time
	newID func() string
}

// NewConversionUseCase construye el caso de uso.
func NewConversionUseCase(deps Deps, cfg Config) *ConversionUseCase {
	if cfg.SuggestionLimit <= 0 {
		cfg.SuggestionLimit = domconversion.DefaultSuggestionLimit
	}
	if cfg.HistoryMaxLimit <= 0 {
		cfg.HistoryMaxLimit = 100
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &ConversionUseCase{
		txRunner: deps.TxRunner,
		ledger:   deps.Ledger,
		catalog:  deps.Catalog,
		history:  deps.History,
		depots:   deps.Depots,
		cache:    deps.Cache,
		voucher:  deps.Voucher,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// ExecuteResult resultado de una conversión confirmada.
type ExecuteResult struct {
	BatchID  string
	Records  []*entity.ConversionRecord
	Warnings []domconversion.Issue
}

// ListVariants lista las variantes del depósito (opcionalmente de un producto) con su stock actual.
func (uc *ConversionUseCase) ListVariants(ctx context.Context, depotID, productID string) ([]*entity.DepotVariant, error) {
	if depotID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.ensureDepot(ctx, depotID); err != nil {
		return nil, err
	}
	return uc.catalog.ListVariants(ctx, depotID, productID)
}

// Validate revisa la solicitud contra el stock vigente sin modificar nada.
func (uc *ConversionUseCase) Validate(ctx context.Context, req entity.ConversionRequest) (domconversion.Result, error) {
	snap, err := uc.snapshot(ctx, req.DepotID)
	if err != nil {
		return domconversion.Result{}, err
	}
	return domconversion.Validate(req, snap), nil
}

// Execute aplica la conversión como una sola unidad atómica:
//  1. revalida contra un snapshot recién leído;
//  2. con errores devuelve *ValidationFailedError sin tocar el ledger;
//  3. dentro de la transacción bloquea las variantes en orden de ID y aplica cada delta
//     con la versión del snapshot;
//  4. cualquier fallo del ledger (versión vieja, stock insuficiente) revierte todo y
//     se reporta como domain.ErrConflict;
//  5. agrega un registro por fila destino, con un BatchID común, en la misma transacción.
//
// Llamadas exitosas idénticas no se deduplican: cada una es un evento distinto.
func (uc *ConversionUseCase) Execute(ctx context.Context, req entity.ConversionRequest, performedBy string) (*ExecuteResult, error) {
	if performedBy == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := uc.snapshot(ctx, req.DepotID)
	if err != nil {
		return nil, err
	}
	res := domconversion.Validate(req, snap)
	if !res.Valid() {
		return nil, &domconversion.ValidationFailedError{Result: res}
	}

	shares, err := domconversion.Allocate(req.SourceQuantity, req.Targets)
	if err != nil {
		return nil, err
	}
	deltas := domconversion.NetDeltas(req)
	lockOrder := make([]string, 0, len(deltas))
	for _, d := range deltas {
		lockOrder = append(lockOrder, d.VariantID)
	}

	batchID := uc.newID()
	now := uc.now()
	source, _ := snap.Variant(req.SourceVariantID)
	records := make([]*entity.ConversionRecord, 0, len(req.Targets))
	for i, t := range req.Targets {
		target, _ := snap.Variant(t.TargetVariantID)
		records = append(records, &entity.ConversionRecord{
			ID:                     uc.newID(),
			BatchID:                batchID,
			DepotID:                req.DepotID,
			SourceVariantID:        source.VariantID,
			SourceVariantName:      source.Name,
			SourceQuantityConsumed: shares[i],
			TargetVariantID:        target.VariantID,
			TargetVariantName:      target.Name,
			TargetQuantityProduced: t.TargetQuantity,
			PerformedBy:            performedBy,
			PerformedAt:            now,
			Notes:                  req.Notes,
			CreatedAt:              now,
		})
	}

	// Desde aquí no hay cancelación: la transacción termina completa o se revierte completa.
	txCtx := context.WithoutCancel(ctx)
	err = uc.txRunner.Run(txCtx, func(ledger repository.StockLedger, history repository.ConversionHistoryRepository) error {
		if err := ledger.LockVariants(txCtx, req.DepotID, lockOrder); err != nil {
			return err
		}
		for _, d := range deltas {
			if d.Amount.IsZero() {
				continue
			}
			v, _ := snap.Variant(d.VariantID)
			if _, err := ledger.ApplyDelta(txCtx, req.DepotID, d.VariantID, d.Amount, v.Version); err != nil {
				if isLedgerRace(err) {
					return fmt.Errorf("%w: variante %s: %w", domain.ErrConflict, d.VariantID, err)
				}
				return err
			}
		}
		return history.Append(txCtx, records)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			uc.log.Warn().Err(err).
				Str("depot_id", req.DepotID).
				Str("source_variant_id", req.SourceVariantID).
				Msg("conversión en conflicto, el cliente debe reintentar")
		} else {
			uc.log.Error().Err(err).Str("depot_id", req.DepotID).Msg("conversión fallida")
		}
		return nil, err
	}

	if uc.cache != nil {
		uc.invalidations.Add(1)
		if err := uc.cache.Invalidate(ctx, req.SourceVariantID); err != nil {
			uc.log.Warn().Err(err).Str("source_variant_id", req.SourceVariantID).Msg("invalidar caché de sugerencias")
		}
	}

	uc.log.Info().
		Str("batch_id", batchID).
		Str("depot_id", req.DepotID).
		Str("source_variant_id", req.SourceVariantID).
		Str("source_quantity", req.SourceQuantity.String()).
		Int("targets", len(records)).
		Str("performed_by", performedBy).
		Msg("conversión ejecutada")

	return &ExecuteResult{BatchID: batchID, Records: records, Warnings: res.Warnings}, nil
}

// isLedgerRace errores del ledger que indican que el stock cambió desde el snapshot.
func isLedgerRace(err error) bool {
	return errors.Is(err, domain.ErrStaleVersion) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrUnknownVariant)
}

// Suggest devuelve destinos y ratios probables para la variante origen según el historial.
// Sin historial devuelve lista vacía.
func (uc *ConversionUseCase) Suggest(ctx context.Context, sourceVariantID string) ([]entity.ConversionSuggestion, error) {
	if sourceVariantID == "" {
		return nil, domain.ErrInvalidInput
	}
	if uc.cache != nil {
		cached, ok, err := uc.cache.Get(ctx, sourceVariantID)
		if err != nil {
			uc.log.Warn().Err(err).Str("source_variant_id", sourceVariantID).Msg("leer caché de sugerencias")
		} else if ok {
			return cached, nil
		}
	}

	gen := uc.invalidations.Load()
	aggregates, err := uc.history.SummarizeBySource(ctx, sourceVariantID)
	if err != nil {
		return nil, err
	}
	suggestions := domconversion.Suggest(aggregates, uc.cfg.SuggestionLimit)

	if uc.cache != nil && uc.invalidations.Load() == gen {
		if err := uc.cache.Set(ctx, sourceVariantID, suggestions); err != nil {
			uc.log.Warn().Err(err).Str("source_variant_id", sourceVariantID).Msg("guardar caché de sugerencias")
		}
	}
	return suggestions, nil
}

// QueryHistory consulta paginada del historial (más recientes primero).
func (uc *ConversionUseCase) QueryHistory(ctx context.Context, filter repository.HistoryFilter) ([]*entity.ConversionRecord, int, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, 0, domain.ErrInvalidInput
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > uc.cfg.HistoryMaxLimit {
		filter.Limit = uc.cfg.HistoryMaxLimit
	}
	return uc.history.Query(ctx, filter)
}

// GetBatch registros de un lote, en el orden de las filas destino.
func (uc *ConversionUseCase) GetBatch(ctx context.Context, depotID, batchID string) ([]*entity.ConversionRecord, error) {
	if depotID == "" || batchID == "" {
		return nil, domain.ErrInvalidInput
	}
	records, err := uc.history.ListByBatch(ctx, depotID, batchID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	return records, nil
}

// BatchVoucher genera el comprobante PDF de un lote.
func (uc *ConversionUseCase) BatchVoucher(ctx context.Context, depotID, batchID string) ([]byte, error) {
	if uc.voucher == nil {
		return nil, fmt.Errorf("generador de comprobantes no configurado")
	}
	depot, err := uc.depots.GetByID(ctx, depotID)
	if err != nil {
		return nil, err
	}
	if depot == nil {
		return nil, domain.ErrNotFound
	}
	records, err := uc.GetBatch(ctx, depotID, batchID)
	if err != nil {
		return nil, err
	}
	return uc.voucher.GenerateBatchVoucher(ctx, depot, records)
}

func (uc *ConversionUseCase) ensureDepot(ctx context.Context, depotID string) error {
	depot, err := uc.depots.GetByID(ctx, depotID)
	if err != nil {
		return err
	}
	if depot == nil {
		return domain.ErrNotFound
	}
	return nil
}

func (uc *ConversionUseCase) snapshot(ctx context.Context, depotID string) (domconversion.Snapshot, error) {
	if depotID == "" {
		return domconversion.NewSnapshot("", nil), nil
	}
	variants, err := uc.ledger.Snapshot(ctx, depotID)
	if err != nil {
		return domconversion.Snapshot{}, fmt.Errorf("snapshot del ledger: %w", err)
	}
	return domconversion.NewSnapshot(depotID, variants), nil
}
