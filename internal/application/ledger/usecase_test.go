package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medstock/internal/application/dto"
	"github.com/jhoicas/medstock/internal/application/ledger"
	"github.com/jhoicas/medstock/internal/application/reporting"
	"github.com/jhoicas/medstock/internal/domain"
	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/internal/domain/repository"
	"github.com/jhoicas/medstock/internal/infrastructure/memory"
	"github.com/jhoicas/medstock/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var testNow = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

type countingRecorder struct {
	mu         sync.Mutex
	received   int64
	dispatched int64
	failures   map[string]int
}

func (r *countingRecorder) ObserveReceive(q int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received += q
}

func (r *countingRecorder) ObserveDispatch(q int64, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched += q
}

func (r *countingRecorder) ObserveFailure(op string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op]++
}

type fixture struct {
	store    *memory.Store
	uc       *ledger.LedgerUseCase
	reports  *reporting.ReportUseCase
	recorder *countingRecorder
}

func newFixture() *fixture {
	store := memory.NewStore()
	clock := func() time.Time { return testNow }
	rec := &countingRecorder{failures: map[string]int{}}
	return &fixture{
		store:    store,
		uc:       ledger.NewLedgerUseCase(store, logger.Nop(), ledger.WithClock(clock), ledger.WithRecorder(rec)),
		reports:  reporting.NewReportUseCase(store, store, clock),
		recorder: rec,
	}
}

func (f *fixture) receive(t *testing.T, sku, lot, expiry string, qty int64) *dto.ReceiveResponse {
	t.Helper()
	out, err := f.uc.Receive(context.Background(), dto.ReceiveRequest{SKU: sku, LotNumber: lot, ExpiryDate: expiry, Quantity: qty})
	require.NoError(t, err)
	return out
}

func (f *fixture) stock(t *testing.T, itemID string) int64 {
	t.Helper()
	n, err := f.reports.CurrentStock(context.Background(), itemID)
	require.NoError(t, err)
	return n
}

func (f *fixture) transactions(t *testing.T) []dto.TransactionResponse {
	t.Helper()
	list, err := f.reports.RecentTransactions(context.Background(), reporting.MaxTransactionsLimit)
	require.NoError(t, err)
	return list
}

// ──────────────────────────────────────────────────────────────────────────────
// RegisterItem
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterItem_UpsertBySKUKeepsStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	minLevel := int64(10)

	created, err := f.uc.RegisterItem(ctx, dto.RegisterItemRequest{Name: "Amoxicilina", SKU: "AMOX-500", MinLevel: &minLevel})
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultUnit, created.Unit)
	assert.Nil(t, created.Category)

	f.receive(t, "AMOX-500", "L1", "2026-01-01", 4)

	newMin := int64(2)
	updated, err := f.uc.RegisterItem(ctx, dto.RegisterItemRequest{Name: "Amoxicilina 500mg", SKU: "AMOX-500", Category: "antibióticos", Unit: "caja", MinLevel: &newMin})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID, "el SKU identifica al ítem")
	assert.Equal(t, "Amoxicilina 500mg", updated.Name)
	assert.Equal(t, int64(2), updated.MinLevel)
	assert.Equal(t, int64(4), f.stock(t, created.ID))
}

func TestRegisterItem_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	neg := int64(-1)

	for _, in := range []dto.RegisterItemRequest{
		{SKU: "X"},
		{Name: "X"},
		{Name: "X", SKU: "  "},
		{Name: "X", SKU: "X", MinLevel: &neg},
	} {
		_, err := f.uc.RegisterItem(ctx, in)
		var ve *domain.ValidationError
		assert.ErrorAs(t, err, &ve, "%+v", in)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Receive
// ──────────────────────────────────────────────────────────────────────────────

func TestReceive_CreatesItemAndAccumulatesLot(t *testing.T) {
	f := newFixture()

	first := f.receive(t, "GAUZE", "G1", "2025-03-01", 5)
	assert.True(t, first.ItemCreated)
	assert.Equal(t, int64(5), first.LotQuantity)

	second := f.receive(t, "GAUZE", "G1", "2025-04-01", 3)
	assert.False(t, second.ItemCreated)
	assert.Equal(t, first.LotID, second.LotID, "mismo lote")
	assert.Equal(t, int64(8), second.LotQuantity)

	summaries, err := f.store.Summaries(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "GAUZE", summaries[0].Name, "el ítem implícito se nombra con su SKU")
	assert.Equal(t, 1, summaries[0].LotCount)
	require.NotNil(t, summaries[0].EarliestExpiry)
	assert.Equal(t, "2025-04-01", summaries[0].EarliestExpiry.Format(entity.DateLayout), "la última recepción fija la caducidad")

	txs := f.transactions(t)
	require.Len(t, txs, 2)
	for _, tx := range txs {
		assert.Equal(t, entity.TxTypeReceive, tx.Type)
		assert.Positive(t, tx.QuantityChange)
	}
	assert.Equal(t, int64(8), f.recorder.received)
}

func TestReceive_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cases := []dto.ReceiveRequest{
		{LotNumber: "L1", ExpiryDate: "2025-01-01", Quantity: 1},
		{SKU: "X", ExpiryDate: "2025-01-01", Quantity: 1},
		{SKU: "X", LotNumber: "L1", Quantity: 1},
		{SKU: "X", LotNumber: "L1", ExpiryDate: "2025-02-30", Quantity: 1},
		{SKU: "X", LotNumber: "L1", ExpiryDate: "2025-01-01", Quantity: 0},
		{SKU: "X", LotNumber: "L1", ExpiryDate: "2025-01-01", Quantity: -3},
	}
	for _, in := range cases {
		_, err := f.uc.Receive(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%+v", in)
	}
	assert.Empty(t, f.transactions(t), "una validación fallida no toca el almacén")
}

func TestReceive_CommitFailureRollsBack(t *testing.T) {
	f := newFixture()
	f.receive(t, "SALINE", "S1", "2026-01-01", 10)

	f.store.FailNextCommit(errors.New("disk full"))
	_, err := f.uc.Receive(context.Background(), dto.ReceiveRequest{SKU: "SALINE", LotNumber: "S1", ExpiryDate: "2026-01-01", Quantity: 5})
	var se *domain.StorageError
	require.ErrorAs(t, err, &se)

	list, err := f.reports.ListItems(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, int64(10), list.Items[0].CurrentStock)
	assert.Len(t, f.transactions(t), 1)
	assert.Equal(t, 1, f.recorder.failures["receive"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Dispatch
// ──────────────────────────────────────────────────────────────────────────────

func TestDispatch_FEFOAcrossLots(t *testing.T) {
	f := newFixture()
	f.receive(t, "AMOX-500", "L2", "2025-06-01", 5)
	recv := f.receive(t, "AMOX-500", "L1", "2025-01-01", 5)

	out, err := f.uc.Dispatch(context.Background(), dto.DispatchRequest{SKU: "AMOX-500", Quantity: 7, Reason: "sala 3"})
	require.NoError(t, err)
	require.Len(t, out.Allocations, 2)
	assert.Equal(t, dto.AllocationDTO{LotID: recv.LotID, LotNumber: "L1", ExpiryDate: "2025-01-01", Quantity: 5}, out.Allocations[0])
	assert.Equal(t, "L2", out.Allocations[1].LotNumber)
	assert.Equal(t, int64(2), out.Allocations[1].Quantity)

	assert.Equal(t, int64(3), f.stock(t, recv.ItemID))

	summaries, err := f.store.Summaries(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].LotCount, "el lote vaciado se elimina")

	var dispatches []dto.TransactionResponse
	for _, tx := range f.transactions(t) {
		if tx.Type == entity.TxTypeDispatch {
			dispatches = append(dispatches, tx)
		}
	}
	require.Len(t, dispatches, 2)
	changes := []int64{dispatches[0].QuantityChange, dispatches[1].QuantityChange}
	assert.Equal(t, []int64{-2, -5}, changes, "mismo instante: la última fila insertada va primero")
	for _, tx := range dispatches {
		require.NotNil(t, tx.Note)
		assert.Equal(t, "sala 3", *tx.Note)
		if tx.QuantityChange == -5 {
			assert.Nil(t, tx.LotID, "la referencia al lote eliminado se degrada a NULL")
			require.NotNil(t, tx.ItemID)
		}
	}
}

func TestDispatch_CommitFailureRollsBack(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.receive(t, "AMOX-500", "L1", "2025-01-01", 5)
	recv := f.receive(t, "AMOX-500", "L2", "2025-06-01", 5)
	before := f.transactions(t)

	f.store.FailNextCommit(errors.New("conexión perdida"))
	out, err := f.uc.Dispatch(ctx, dto.DispatchRequest{SKU: "AMOX-500", Quantity: 7})
	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Nil(t, out)

	// Ni los decrementos, ni las filas DISPATCH, ni el barrido del lote vaciado sobreviven.
	assert.Equal(t, int64(10), f.stock(t, recv.ItemID))
	lots, err := f.store.ListLots(ctx, recv.ItemID)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, int64(5), lots[0].Quantity)
	assert.Equal(t, int64(5), lots[1].Quantity)
	assert.Equal(t, before, f.transactions(t))
	assert.Equal(t, int64(0), f.recorder.dispatched)
	assert.Equal(t, 1, f.recorder.failures["dispatch"])

	// Los bloqueos se liberaron: el reintento asigna normalmente.
	retry, err := f.uc.Dispatch(ctx, dto.DispatchRequest{SKU: "AMOX-500", Quantity: 7})
	require.NoError(t, err)
	require.Len(t, retry.Allocations, 2)
	assert.Equal(t, int64(3), f.stock(t, recv.ItemID))
	assert.Len(t, f.transactions(t), 4)
}

func TestDispatch_TieBreakByLotNumber(t *testing.T) {
	f := newFixture()
	f.receive(t, "SYR-5", "B", "2025-05-01", 2)
	f.receive(t, "SYR-5", "A", "2025-05-01", 2)

	out, err := f.uc.Dispatch(context.Background(), dto.DispatchRequest{SKU: "SYR-5", Quantity: 1})
	require.NoError(t, err)
	require.Len(t, out.Allocations, 1)
	assert.Equal(t, "A", out.Allocations[0].LotNumber)
}

func TestDispatch_InsufficientStockChangesNothing(t *testing.T) {
	f := newFixture()
	recv := f.receive(t, "GAUZE", "G1", "2025-02-01", 3)
	f.receive(t, "GAUZE", "G2", "2025-03-01", 5)
	before := f.transactions(t)

	_, err := f.uc.Dispatch(context.Background(), dto.DispatchRequest{SKU: "GAUZE", Quantity: 10})
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(10), ise.Requested)
	assert.Equal(t, int64(8), ise.Available)

	assert.Equal(t, int64(8), f.stock(t, recv.ItemID))
	assert.Equal(t, before, f.transactions(t))
	assert.Equal(t, int64(0), f.recorder.dispatched)
}

func TestDispatch_UnknownSKU(t *testing.T) {
	f := newFixture()
	_, err := f.uc.Dispatch(context.Background(), dto.DispatchRequest{SKU: "NOPE", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatch_KnownItemWithoutLots(t *testing.T) {
	f := newFixture()
	_, err := f.uc.RegisterItem(context.Background(), dto.RegisterItemRequest{Name: "Guantes", SKU: "GLOVE"})
	require.NoError(t, err)

	_, err = f.uc.Dispatch(context.Background(), dto.DispatchRequest{SKU: "GLOVE", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestDispatch_Validation(t *testing.T) {
	f := newFixture()
	_, err := f.uc.Dispatch(context.Background(), dto.DispatchRequest{Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.uc.Dispatch(context.Background(), dto.DispatchRequest{SKU: "X", Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDispatch_ConcurrentNeverOverAllocates(t *testing.T) {
	f := newFixture()
	f.receive(t, "SALINE", "S1", "2025-03-01", 6)
	recv := f.receive(t, "SALINE", "S2", "2025-04-01", 6)

	const workers = 12
	var wg sync.WaitGroup
	var mu sync.Mutex
	var dispatched int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.uc.Dispatch(context.Background(), dto.DispatchRequest{SKU: "SALINE", Quantity: 2})
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, a := range out.Allocations {
				dispatched += a.Quantity
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, dispatched, int64(12))
	assert.Equal(t, int64(12)-dispatched, f.stock(t, recv.ItemID))

	var sum int64
	for _, tx := range f.transactions(t) {
		sum += tx.QuantityChange
	}
	assert.Equal(t, f.stock(t, recv.ItemID), sum, "el libro cuadra con el stock")
}

func TestDispatch_SkipsLockedLots(t *testing.T) {
	f := newFixture()
	f.receive(t, "SYR-5", "A", "2025-02-01", 5)
	f.receive(t, "SYR-5", "B", "2025-08-01", 5)

	// Otra unidad atómica retiene el lote A hasta que se libera.
	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- f.store.Run(context.Background(), func(itemRepo repository.ItemRepository, lotRepo repository.LotRepository, _ repository.TransactionRepository) error {
			item, err := itemRepo.GetBySKU(context.Background(), "SYR-5")
			if err != nil {
				return err
			}
			lots, err := lotRepo.LockAvailable(context.Background(), item.ID)
			if err != nil {
				return err
			}
			if len(lots) == 0 {
				return errors.New("sin lotes")
			}
			close(locked)
			<-release
			return errors.New("rollback")
		})
	}()
	<-locked

	out, err := f.uc.Dispatch(context.Background(), dto.DispatchRequest{SKU: "SYR-5", Quantity: 3})
	close(release)
	require.Error(t, <-done)

	// Con todos los lotes retenidos el despacho no espera: no hay stock visible.
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Nil(t, out)
}
