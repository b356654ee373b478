package conversion_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appconversion "github.com/jhoicas/depot-stock-api/internal/application/conversion"
	"github.com/jhoicas/depot-stock-api/internal/domain"
	domconversion "github.com/jhoicas/depot-stock-api/internal/domain/conversion"
	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
	"github.com/jhoicas/depot-stock-api/internal/domain/repository"
	"github.com/jhoicas/depot-stock-api/internal/infrastructure/memory"
)

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func target(id, q string) entity.TargetAllocation {
	return entity.TargetAllocation{TargetVariantID: id, TargetQuantity: qty(q)}
}

func request(source, q string, targets ...entity.TargetAllocation) entity.ConversionRequest {
	return entity.ConversionRequest{DepotID: "D", SourceVariantID: source, SourceQuantity: qty(q), Targets: targets}
}

// depósito D: A=100, B=0, C=0 (mismo producto).
func seededStore() *memory.Store {
	s := memory.NewStore()
	s.PutDepot(entity.Depot{ID: "D", Name: "Depósito Norte"})
	for _, v := range []entity.DepotVariant{
		{DepotID: "D", VariantID: "A", ProductID: "milk", Name: "Leche 1L", ClosingQty: qty("100")},
		{DepotID: "D", VariantID: "B", ProductID: "milk", Name: "Leche 500ml", ClosingQty: qty("0")},
		{DepotID: "D", VariantID: "C", ProductID: "milk", Name: "Leche 250ml", ClosingQty: qty("0")},
	} {
		s.PutVariant(v)
	}
	return s
}

func newUseCase(s *memory.Store, tx appconversion.TxRunner, ledger repository.StockLedger, cache appconversion.SuggestionCache) *appconversion.ConversionUseCase {
	if tx == nil {
		tx = s
	}
	if ledger == nil {
		ledger = s
	}
	return appconversion.NewConversionUseCase(appconversion.Deps{
		TxRunner: tx,
		Ledger:   ledger,
		Catalog:  s,
		History:  s,
		Depots:   s,
		Cache:    cache,
	}, appconversion.Config{})
}

func quantities(t *testing.T, s *memory.Store) map[string]decimal.Decimal {
	t.Helper()
	vs, err := s.Snapshot(context.Background(), "D")
	require.NoError(t, err)
	out := map[string]decimal.Decimal{}
	for _, v := range vs {
		out[v.VariantID] = v.ClosingQty
	}
	return out
}

func assertQty(t *testing.T, s *memory.Store, variantID, want string) {
	t.Helper()
	got, _, err := s.GetQuantity(context.Background(), "D", variantID)
	require.NoError(t, err)
	assert.True(t, got.Equal(qty(want)), "%s: esperado %s, obtenido %s", variantID, want, got)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

// ── Escenarios ───────────────────────────────────────────────────────────────────

func TestExecute_DivideOrigenEntreDestinos(t *testing.T) {
	s := seededStore()
	uc := newUseCase(s, nil, nil, nil)

	out, err := uc.Execute(context.Background(), request("A", "30", target("B", "18"), target("C", "12")), "user-1")
	require.NoError(t, err)

	assertQty(t, s, "A", "70")
	assertQty(t, s, "B", "18")
	assertQty(t, s, "C", "12")

	require.Len(t, out.Records, 2)
	assert.NotEmpty(t, out.BatchID)
	assert.True(t, out.Records[0].SourceQuantityConsumed.Equal(qty("18")))
	assert.True(t, out.Records[1].SourceQuantityConsumed.Equal(qty("12")))
	for _, r := range out.Records {
		assert.Equal(t, out.BatchID, r.BatchID)
		assert.Equal(t, "user-1", r.PerformedBy)
		assert.Equal(t, "Leche 1L", r.SourceVariantName)
	}

	batch, err := uc.GetBatch(context.Background(), "D", out.BatchID)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "B", batch[0].TargetVariantID)
	assert.Equal(t, "C", batch[1].TargetVariantID)
}

func TestExecute_StockInsuficienteNoTocaElLedger(t *testing.T) {
	s := seededStore()
	uc := newUseCase(s, nil, nil, nil)
	before := quantities(t, s)

	_, err := uc.Execute(context.Background(), request("A", "150", target("B", "150")), "user-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	var vErr *domconversion.ValidationFailedError
	require.True(t, errors.As(err, &vErr))
	assert.True(t, vErr.Result.HasCode(domconversion.CodeInsufficientStock))

	assert.Equal(t, before, quantities(t, s))
	items, total, err := s.Query(context.Background(), repository.HistoryFilter{DepotID: "D", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestExecute_DestinoRepetidoSeAcredita(t *testing.T) {
	s := seededStore()
	uc := newUseCase(s, nil, nil, nil)
	req := request("A", "15", target("B", "10"), target("B", "5"))

	res, err := uc.Validate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Valid())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domconversion.CodeDuplicateTarget, res.Warnings[0].Code)

	out, err := uc.Execute(context.Background(), req, "user-1")
	require.NoError(t, err)
	assert.Len(t, out.Warnings, 1)
	assert.Len(t, out.Records, 2)
	assertQty(t, s, "A", "85")
	assertQty(t, s, "B", "15")
}

func TestExecute_ConservaElOrigenConFracciones(t *testing.T) {
	s := seededStore()
	uc := newUseCase(s, nil, nil, nil)

	out, err := uc.Execute(context.Background(), request("A", "10", target("B", "1"), target("C", "2")), "user-1")
	require.NoError(t, err)

	sum := decimal.Zero
	for _, r := range out.Records {
		assert.False(t, r.SourceQuantityConsumed.IsNegative())
		sum = sum.Add(r.SourceQuantityConsumed)
	}
	assert.True(t, sum.Equal(qty("10")))
	assertQty(t, s, "A", "90")
}

func TestExecute_RechazaCantidadesQueElLedgerNoRepresenta(t *testing.T) {
	cases := map[string]entity.ConversionRequest{
		"más de 6 decimales en origen":  request("A", "1.0000005", target("B", "1.0000001"), target("C", "2")),
		"más de 6 decimales en destino": request("A", "1", target("B", "1.0000001")),
		"origen fuera de rango":         request("A", "1000000000000", target("B", "1")),
		"destino fuera de rango":        request("A", "1", target("B", "1000000000000")),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			s := seededStore()
			uc := newUseCase(s, nil, nil, nil)
			before := quantities(t, s)

			_, err := uc.Execute(context.Background(), req, "user-1")
			var vErr *domconversion.ValidationFailedError
			require.True(t, errors.As(err, &vErr))
			assert.True(t, vErr.Result.HasCode(domconversion.CodeInvalidQuantity))
			assert.Equal(t, before, quantities(t, s))
		})
	}
}

func TestExecute_ConSeisDecimalesRegistrosYLedgerCoinciden(t *testing.T) {
	s := seededStore()
	uc := newUseCase(s, nil, nil, nil)

	out, err := uc.Execute(context.Background(), request("A", "1.000001", target("B", "1.000001"), target("C", "2")), "user-1")
	require.NoError(t, err)

	sum := decimal.Zero
	for _, r := range out.Records {
		assert.GreaterOrEqual(t, r.SourceQuantityConsumed.Exponent(), -domconversion.QuantityScale)
		sum = sum.Add(r.SourceQuantityConsumed)
	}
	assert.True(t, sum.Equal(qty("1.000001")))
	assertQty(t, s, "A", "98.999999")
}

func TestExecute_SinUsuarioNoAutorizado(t *testing.T) {
	s := seededStore()
	uc := newUseCase(s, nil, nil, nil)
	_, err := uc.Execute(context.Background(), request("A", "1", target("B", "1")), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestExecute_ContextoCanceladoAntesDeEmpezar(t *testing.T) {
	s := seededStore()
	uc := newUseCase(s, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Execute(ctx, request("A", "1", target("B", "1")), "user-1")
	assert.ErrorIs(t, err, context.Canceled)
	assertQty(t, s, "A", "100")
}

// ── Atomicidad ───────────────────────────────────────────────────────────────────

// failingLedger falla en el N-ésimo ApplyDelta (1-based).
type failingLedger struct {
	repository.StockLedger
	failAt int
	calls  int
}

func (l *failingLedger) ApplyDelta(ctx context.Context, depotID, variantID string, delta decimal.Decimal, expectedVersion int64) (int64, error) {
	l.calls++
	if l.calls == l.failAt {
		return 0, errors.New("disco lleno")
	}
	return l.StockLedger.ApplyDelta(ctx, depotID, variantID, delta, expectedVersion)
}

type failingHistory struct {
	repository.ConversionHistoryRepository
}

func (failingHistory) Append(context.Context, []*entity.ConversionRecord) error {
	return errors.New("historial no disponible")
}

// faultyTx envuelve el Run del store sustituyendo ledger o historial.
type faultyTx struct {
	store       *memory.Store
	failDeltaAt int
	failHistory bool
}

func (f faultyTx) Run(ctx context.Context, fn func(repository.StockLedger, repository.ConversionHistoryRepository) error) error {
	return f.store.Run(ctx, func(l repository.StockLedger, h repository.ConversionHistoryRepository) error {
		if f.failDeltaAt > 0 {
			l = &failingLedger{StockLedger: l, failAt: f.failDeltaAt}
		}
		if f.failHistory {
			h = failingHistory{h}
		}
		return fn(l, h)
	})
}

func TestExecute_FalloAMitadRevierteTodo(t *testing.T) {
	cases := []struct {
		name string
		tx   func(*memory.Store) faultyTx
	}{
		{"falla el segundo delta", func(s *memory.Store) faultyTx { return faultyTx{store: s, failDeltaAt: 2} }},
		{"falla el último delta", func(s *memory.Store) faultyTx { return faultyTx{store: s, failDeltaAt: 3} }},
		{"falla el historial", func(s *memory.Store) faultyTx { return faultyTx{store: s, failHistory: true} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := seededStore()
			uc := newUseCase(s, tc.tx(s), nil, nil)
			before := quantities(t, s)

			_, err := uc.Execute(context.Background(), request("A", "30", target("B", "18"), target("C", "12")), "user-1")
			require.Error(t, err)
			assert.NotErrorIs(t, err, domain.ErrConflict)

			assert.Equal(t, before, quantities(t, s))
			_, total, err := s.Query(context.Background(), repository.HistoryFilter{DepotID: "D", Page: 1, Limit: 10})
			require.NoError(t, err)
			assert.Zero(t, total)

			_, version, err := s.GetQuantity(context.Background(), "D", "A")
			require.NoError(t, err)
			assert.Equal(t, int64(1), version)
		})
	}
}

// ── Concurrencia ─────────────────────────────────────────────────────────────────

// barrierLedger hace que ambos llamadores lean el snapshot antes de que cualquiera escriba.
type barrierLedger struct {
	repository.StockLedger
	wg *sync.WaitGroup
}

func (l barrierLedger) Snapshot(ctx context.Context, depotID string) ([]*entity.DepotVariant, error) {
	out, err := l.StockLedger.Snapshot(ctx, depotID)
	l.wg.Done()
	l.wg.Wait()
	return out, err
}

func TestExecute_ConcurrentesSobreElMismoOrigen(t *testing.T) {
	s := seededStore()
	var barrier sync.WaitGroup
	barrier.Add(2)
	uc := newUseCase(s, nil, barrierLedger{StockLedger: s, wg: &barrier}, nil)

	// A=100: cada una por separado es válida, juntas no.
	req := request("A", "60", target("B", "60"))
	errs := make([]error, 2)
	var done sync.WaitGroup
	for i := 0; i < 2; i++ {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			_, errs[i] = uc.Execute(context.Background(), req, "user-1")
		}(i)
	}
	done.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assertQty(t, s, "A", "40")
	assertQty(t, s, "B", "60")

	_, total, err := s.Query(context.Background(), repository.HistoryFilter{DepotID: "D", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestExecute_ConcurrentesNuncaDejanStockNegativo(t *testing.T) {
	s := seededStore()
	uc := newUseCase(s, nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = uc.Execute(context.Background(), request("A", "7", target("B", "3"), target("C", "4")), "user-1")
		}()
	}
	wg.Wait()

	q := quantities(t, s)
	assert.False(t, q["A"].IsNegative())
	// lo consumido de A es exactamente lo producido en B y C
	assert.True(t, qty("100").Sub(q["A"]).Equal(q["B"].Add(q["C"])))

	_, total, err := s.Query(context.Background(), repository.HistoryFilter{DepotID: "D", Page: 1, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 0, total%2)
	consumed := qty("100").Sub(q["A"])
	assert.True(t, consumed.Equal(decimal.NewFromInt(int64(total/2)*7)))
}

// ── Sugerencias ──────────────────────────────────────────────────────────────────

type MockSuggestionCache struct {
	mock.Mock
}

func (m *MockSuggestionCache) Get(ctx context.Context, id string) ([]entity.ConversionSuggestion, bool, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).([]entity.ConversionSuggestion)
	return out, args.Bool(1), args.Error(2)
}

func (m *MockSuggestionCache) Set(ctx context.Context, id string, s []entity.ConversionSuggestion) error {
	return m.Called(ctx, id, s).Error(0)
}

func (m *MockSuggestionCache) Invalidate(ctx context.Context, ids ...string) error {
	return m.Called(ctx, ids).Error(0)
}

func TestSuggest_RatioPonderadoDesdeElHistorial(t *testing.T) {
	s := seededStore()
	s.PutVariant(entity.DepotVariant{DepotID: "D", VariantID: "A", ProductID: "milk", Name: "Leche 1L", ClosingQty: qty("1000")})
	uc := newUseCase(s, nil, nil, nil)
	ctx := context.Background()

	_, err := uc.Execute(ctx, request("A", "10", target("B", "5")), "user-1")
	require.NoError(t, err)
	_, err = uc.Execute(ctx, request("A", "100", target("B", "40")), "user-1")
	require.NoError(t, err)

	out, err := uc.Suggest(ctx, "A")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].TargetVariantID)
	assert.Equal(t, 2, out[0].SampleCount)
	assert.Equal(t, "0.409091", out[0].SuggestedRatio.String())
}

func TestSuggest_SinHistorialListaVacia(t *testing.T) {
	uc := newUseCase(seededStore(), nil, nil, nil)
	out, err := uc.Suggest(context.Background(), "A")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestSuggest_UsaCacheSiHayHit(t *testing.T) {
	cache := new(MockSuggestionCache)
	cached := []entity.ConversionSuggestion{{TargetVariantID: "B", SuggestedRatio: qty("2"), SampleCount: 3}}
	cache.On("Get", mock.Anything, "A").Return(cached, true, nil)

	uc := newUseCase(seededStore(), nil, nil, cache)
	out, err := uc.Suggest(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, cached, out)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestSuggest_FalloDeCacheNoRompe(t *testing.T) {
	cache := new(MockSuggestionCache)
	cache.On("Get", mock.Anything, "A").Return(nil, false, errors.New("redis caído"))
	cache.On("Set", mock.Anything, "A", mock.Anything).Return(errors.New("redis caído"))

	uc := newUseCase(seededStore(), nil, nil, cache)
	out, err := uc.Suggest(context.Background(), "A")
	require.NoError(t, err)
	assert.Empty(t, out)
	cache.AssertExpectations(t)
}

func TestExecute_InvalidaCacheDelOrigen(t *testing.T) {
	cache := new(MockSuggestionCache)
	cache.On("Invalidate", mock.Anything, []string{"A"}).Return(nil)

	s := seededStore()
	uc := newUseCase(s, nil, nil, cache)
	_, err := uc.Execute(context.Background(), request("A", "2", target("B", "4")), "user-1")
	require.NoError(t, err)
	cache.AssertExpectations(t)
}

// afterSummary ejecuta hook justo después de leer el historial, como un Execute concurrente.
type afterSummary struct {
	*memory.Store
	hook func()
}

func (h afterSummary) SummarizeBySource(ctx context.Context, sourceVariantID string) ([]entity.ConversionAggregate, error) {
	out, err := h.Store.SummarizeBySource(ctx, sourceVariantID)
	h.hook()
	return out, err
}

func TestSuggest_NoGuardaSiSeInvalidoDuranteLaLectura(t *testing.T) {
	cache := new(MockSuggestionCache)
	cache.On("Get", mock.Anything, "A").Return(nil, false, nil)
	cache.On("Invalidate", mock.Anything, []string{"A"}).Return(nil)

	s := seededStore()
	var uc *appconversion.ConversionUseCase
	history := afterSummary{Store: s, hook: func() {
		_, err := uc.Execute(context.Background(), request("A", "2", target("B", "4")), "user-1")
		require.NoError(t, err)
	}}
	uc = appconversion.NewConversionUseCase(appconversion.Deps{
		TxRunner: s, Ledger: s, Catalog: s, History: history, Depots: s, Cache: cache,
	}, appconversion.Config{})

	out, err := uc.Suggest(context.Background(), "A")
	require.NoError(t, err)
	assert.Empty(t, out)
	cache.AssertCalled(t, "Invalidate", mock.Anything, []string{"A"})
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

// ── Consultas ────────────────────────────────────────────────────────────────────

func TestQueryHistory_RangoInvertidoEsInvalido(t *testing.T) {
	uc := newUseCase(seededStore(), nil, nil, nil)
	from := mustTime(t, "2026-05-02T00:00:00Z")
	to := mustTime(t, "2026-05-01T00:00:00Z")
	_, _, err := uc.QueryHistory(context.Background(), repository.HistoryFilter{DepotID: "D", From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetBatch_Inexistente(t *testing.T) {
	uc := newUseCase(seededStore(), nil, nil, nil)
	_, err := uc.GetBatch(context.Background(), "D", "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListVariants_DepositoInexistente(t *testing.T) {
	uc := newUseCase(seededStore(), nil, nil, nil)
	_, err := uc.ListVariants(context.Background(), "X", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	vs, err := uc.ListVariants(context.Background(), "D", "milk")
	require.NoError(t, err)
	assert.Len(t, vs, 3)
}
