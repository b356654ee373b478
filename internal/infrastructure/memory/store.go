// Package memory implementa los puertos de stock, catálogo, historial y depósitos en memoria.
// Se usa con STORAGE_DRIVER=memory (demos, desarrollo local) y en los tests del motor de conversión.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/depot-stock-api/internal/domain"
	domconversion "github.com/jhoicas/depot-stock-api/internal/domain/conversion"
	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
	"github.com/jhoicas/depot-stock-api/internal/domain/repository"
)

type variantKey struct {
	depotID   string
	variantID string
}

type storedRecord struct {
	seq    int64
	record entity.ConversionRecord
}

// Store almacén transaccional en memoria. Las transacciones se serializan (un solo escritor);
// los lectores solo ven estado confirmado.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex

	depots   map[string]entity.Depot
	variants map[variantKey]entity.DepotVariant
	records  []storedRecord
	seq      int64

	now func() time.Time
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		depots:   map[string]entity.Depot{},
		variants: map[variantKey]entity.DepotVariant{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PutDepot registra (o reemplaza) un depósito.
func (s *Store) PutDepot(d entity.Depot) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	s.depots[d.ID] = d
}

// PutVariant registra (o reemplaza) una variante con su stock inicial. Version 0 se normaliza a 1.
// Espera a que termine cualquier transacción en curso.
func (s *Store) PutVariant(v entity.DepotVariant) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.Version <= 0 {
		v.Version = 1
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = s.now()
	}
	s.variants[variantKey{v.DepotID, v.VariantID}] = v
}

// ── Depósitos y catálogo ─────────────────────────────────────────────────────────

// GetByID devuelve nil, nil si el depósito no existe (mismo contrato que postgres).
func (s *Store) GetByID(_ context.Context, id string) (*entity.Depot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.depots[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// ListVariants variantes del depósito ordenadas por nombre.
func (s *Store) ListVariants(_ context.Context, depotID, productID string) ([]*entity.DepotVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.DepotVariant, 0)
	for k, v := range s.variants {
		if k.depotID != depotID || (productID != "" && v.ProductID != productID) {
			continue
		}
		cp := v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].VariantID < out[j].VariantID
	})
	return out, nil
}

// ── Ledger fuera de transacción ──────────────────────────────────────────────────

func (s *Store) GetQuantity(_ context.Context, depotID, variantID string) (decimal.Decimal, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variants[variantKey{depotID, variantID}]
	if !ok {
		return decimal.Zero, 0, domain.ErrUnknownVariant
	}
	return v.ClosingQty, v.Version, nil
}

// ApplyDelta fuera de una transacción abre una propia.
func (s *Store) ApplyDelta(ctx context.Context, depotID, variantID string, delta decimal.Decimal, expectedVersion int64) (int64, error) {
	var version int64
	err := s.Run(ctx, func(ledger repository.StockLedger, _ repository.ConversionHistoryRepository) error {
		var err error
		version, err = ledger.ApplyDelta(ctx, depotID, variantID, delta, expectedVersion)
		return err
	})
	return version, err
}

// LockVariants fuera de transacción solo comprueba que las filas existan.
func (s *Store) LockVariants(_ context.Context, depotID string, variantIDs []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range variantIDs {
		if _, ok := s.variants[variantKey{depotID, id}]; !ok {
			return domain.ErrUnknownVariant
		}
	}
	return nil
}

func (s *Store) Snapshot(_ context.Context, depotID string) ([]*entity.DepotVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.DepotVariant, 0)
	for k, v := range s.variants {
		if k.depotID != depotID {
			continue
		}
		cp := v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariantID < out[j].VariantID })
	return out, nil
}

// ── Historial ────────────────────────────────────────────────────────────────────

func (s *Store) Append(ctx context.Context, records []*entity.ConversionRecord) error {
	return s.Run(ctx, func(_ repository.StockLedger, history repository.ConversionHistoryRepository) error {
		return history.Append(ctx, records)
	})
}

// Query filtra por depósito, variante (origen o destino) y rango de PerformedAt; más recientes primero.
func (s *Store) Query(_ context.Context, f repository.HistoryFilter) ([]*entity.ConversionRecord, int, error) {
	s.mu.RLock()
	matched := make([]storedRecord, 0)
	for _, r := range s.records {
		rec := r.record
		if f.DepotID != "" && rec.DepotID != f.DepotID {
			continue
		}
		if f.VariantID != "" && rec.SourceVariantID != f.VariantID && rec.TargetVariantID != f.VariantID {
			continue
		}
		if f.From != nil && rec.PerformedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && rec.PerformedAt.After(*f.To) {
			continue
		}
		matched = append(matched, r)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.record.PerformedAt.Equal(b.record.PerformedAt) {
			return a.record.PerformedAt.After(b.record.PerformedAt)
		}
		return a.seq > b.seq
	})

	total := len(matched)
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= total {
		return []*entity.ConversionRecord{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	out := make([]*entity.ConversionRecord, 0, end-start)
	for _, r := range matched[start:end] {
		cp := r.record
		out = append(out, &cp)
	}
	return out, total, nil
}

// ListByBatch registros del lote en el orden en que se agregaron.
func (s *Store) ListByBatch(_ context.Context, depotID, batchID string) ([]*entity.ConversionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.ConversionRecord, 0)
	for _, r := range s.records {
		if r.record.DepotID == depotID && r.record.BatchID == batchID {
			cp := r.record
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) SummarizeBySource(_ context.Context, sourceVariantID string) ([]entity.ConversionAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*entity.ConversionRecord
	for _, r := range s.records {
		if r.record.SourceVariantID == sourceVariantID {
			cp := r.record
			matched = append(matched, &cp)
		}
	}
	return domconversion.Aggregate(matched), nil
}

// ── Transacciones ────────────────────────────────────────────────────────────────

// Run ejecuta fn con un ledger y un historial atados a una transacción.
// Los cambios se publican juntos al terminar fn sin error; si fn falla se descartan.
func (s *Store) Run(ctx context.Context, fn func(ledger repository.StockLedger, history repository.ConversionHistoryRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx := &memTx{store: s, staged: map[variantKey]entity.DepotVariant{}}
	if err := fn(tx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range tx.staged {
		s.variants[k] = v
	}
	for _, r := range tx.appended {
		s.seq++
		s.records = append(s.records, storedRecord{seq: s.seq, record: r})
	}
	return nil
}

// memTx estado de una transacción: variantes modificadas y registros pendientes.
type memTx struct {
	store    *Store
	staged   map[variantKey]entity.DepotVariant
	appended []entity.ConversionRecord
}

func (t *memTx) current(k variantKey) (entity.DepotVariant, bool) {
	if v, ok := t.staged[k]; ok {
		return v, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	v, ok := t.store.variants[k]
	return v, ok
}

func (t *memTx) GetQuantity(_ context.Context, depotID, variantID string) (decimal.Decimal, int64, error) {
	v, ok := t.current(variantKey{depotID, variantID})
	if !ok {
		return decimal.Zero, 0, domain.ErrUnknownVariant
	}
	return v.ClosingQty, v.Version, nil
}

func (t *memTx) ApplyDelta(_ context.Context, depotID, variantID string, delta decimal.Decimal, expectedVersion int64) (int64, error) {
	k := variantKey{depotID, variantID}
	v, ok := t.current(k)
	if !ok {
		return 0, domain.ErrUnknownVariant
	}
	if v.Version != expectedVersion {
		return 0, domain.ErrStaleVersion
	}
	next := v.ClosingQty.Add(delta)
	if next.IsNegative() {
		return 0, domain.ErrInsufficientStock
	}
	v.ClosingQty = next
	v.Version++
	v.UpdatedAt = t.store.now()
	t.staged[k] = v
	return v.Version, nil
}

// LockVariants el escritor único ya tiene el lock; solo valida existencia.
func (t *memTx) LockVariants(_ context.Context, depotID string, variantIDs []string) error {
	for _, id := range variantIDs {
		if _, ok := t.current(variantKey{depotID, id}); !ok {
			return domain.ErrUnknownVariant
		}
	}
	return nil
}

func (t *memTx) Snapshot(ctx context.Context, depotID string) ([]*entity.DepotVariant, error) {
	committed, err := t.store.Snapshot(ctx, depotID)
	if err != nil {
		return nil, err
	}
	for i, v := range committed {
		if staged, ok := t.staged[variantKey{depotID, v.VariantID}]; ok {
			cp := staged
			committed[i] = &cp
		}
	}
	return committed, nil
}

func (t *memTx) Append(_ context.Context, records []*entity.ConversionRecord) error {
	for _, r := range records {
		if r == nil {
			return domain.ErrInvalidInput
		}
		t.appended = append(t.appended, *r)
	}
	return nil
}

// Lecturas del historial dentro de la transacción: solo estado confirmado.
func (t *memTx) Query(ctx context.Context, f repository.HistoryFilter) ([]*entity.ConversionRecord, int, error) {
	return t.store.Query(ctx, f)
}

func (t *memTx) ListByBatch(ctx context.Context, depotID, batchID string) ([]*entity.ConversionRecord, error) {
	return t.store.ListByBatch(ctx, depotID, batchID)
}

func (t *memTx) SummarizeBySource(ctx context.Context, sourceVariantID string) ([]entity.ConversionAggregate, error) {
	return t.store.SummarizeBySource(ctx, sourceVariantID)
}
