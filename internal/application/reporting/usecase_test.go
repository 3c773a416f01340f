package reporting_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medstock/internal/application/dto"
	"github.com/jhoicas/medstock/internal/application/ledger"
	"github.com/jhoicas/medstock/internal/application/reporting"
	"github.com/jhoicas/medstock/internal/domain"
	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/internal/infrastructure/memory"
	"github.com/jhoicas/medstock/pkg/logger"
)

var testNow = time.Date(2025, 1, 1, 15, 30, 0, 0, time.UTC)

func clock() time.Time { return testNow }

// seedInventory carga un inventario con un caso por regla de alerta:
//
//	AMOX   min 10, stock 3            -> LOW
//	GLOVE  min 1, sin lotes           -> OUT + sin lotes
//	GAUZE  stock 5, caduca 2025-01-20 -> caducidad próxima
//	SALINE stock 50, caduca 2026      -> sin alerta
//	SYR    stock 2, caduca 2025-01-31 -> en el límite del horizonte de 30 días
func seedInventory(t *testing.T) (*memory.Store, *reporting.ReportUseCase) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	uc := ledger.NewLedgerUseCase(store, logger.Nop(), ledger.WithClock(clock))

	register := func(name, sku string, minLevel int64) {
		_, err := uc.RegisterItem(ctx, dto.RegisterItemRequest{Name: name, SKU: sku, MinLevel: &minLevel})
		require.NoError(t, err)
	}
	receive := func(sku, lot, expiry string, qty int64) {
		_, err := uc.Receive(ctx, dto.ReceiveRequest{SKU: sku, LotNumber: lot, ExpiryDate: expiry, Quantity: qty})
		require.NoError(t, err)
	}

	register("Amoxicilina", "AMOX", 10)
	register("Guantes", "GLOVE", 1)
	register("Gasa", "GAUZE", 0)
	register("Solución salina", "SALINE", 5)
	register("Jeringa", "SYR", 0)
	receive("AMOX", "A1", "2026-01-01", 3)
	receive("GAUZE", "G1", "2025-01-20", 5)
	receive("SALINE", "S1", "2026-06-01", 50)
	receive("SYR", "Y1", "2025-01-31", 2)

	return store, reporting.NewReportUseCase(store, store, clock)
}

func TestAlerts_InclusionRules(t *testing.T) {
	_, uc := seedInventory(t)

	out, err := uc.Alerts(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 30, out.HorizonDays)
	require.Equal(t, 4, out.Total)

	bySKU := make(map[string]dto.AlertResponse)
	for _, a := range out.Alerts {
		bySKU[a.SKU] = a
	}
	assert.NotContains(t, bySKU, "SALINE")

	amox := bySKU["AMOX"]
	assert.Equal(t, entity.StockStatusLow, amox.Status)
	assert.True(t, amox.LowStock)
	assert.False(t, amox.ExpiringSoon)

	glove := bySKU["GLOVE"]
	assert.Equal(t, entity.StockStatusOut, glove.Status)
	assert.True(t, glove.NoLots)
	assert.Nil(t, glove.EarliestExpiry)

	gauze := bySKU["GAUZE"]
	assert.Equal(t, entity.StockStatusOK, gauze.Status)
	assert.True(t, gauze.ExpiringSoon)
	require.NotNil(t, gauze.EarliestExpiry)
	assert.Equal(t, "2025-01-20", *gauze.EarliestExpiry)

	assert.True(t, bySKU["SYR"].ExpiringSoon, "el horizonte es inclusivo")
}

func TestAlerts_ZeroDaysOnlyToday(t *testing.T) {
	_, uc := seedInventory(t)

	out, err := uc.Alerts(context.Background(), 0)
	require.NoError(t, err)
	skus := make([]string, 0, out.Total)
	for _, a := range out.Alerts {
		skus = append(skus, a.SKU)
	}
	assert.ElementsMatch(t, []string{"AMOX", "GLOVE"}, skus)
}

func TestAlerts_NegativeDays(t *testing.T) {
	_, uc := seedInventory(t)

	_, err := uc.Alerts(context.Background(), -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.Stats(context.Background(), -5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStats(t *testing.T) {
	_, uc := seedInventory(t)

	st, err := uc.Stats(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, &dto.StatsResponse{TotalItems: 5, UnitsInStock: 60, LowStock: 2, ExpiringSoon: 2}, st)
}

func TestStats_EmptyStore(t *testing.T) {
	store := memory.NewStore()
	uc := reporting.NewReportUseCase(store, store, clock)

	st, err := uc.Stats(context.Background(), reporting.DefaultHorizonDays)
	require.NoError(t, err)
	assert.Equal(t, &dto.StatsResponse{}, st)

	alerts, err := uc.Alerts(context.Background(), reporting.DefaultHorizonDays)
	require.NoError(t, err)
	assert.NotNil(t, alerts.Alerts)
	assert.Empty(t, alerts.Alerts)
}

func TestListItems_SearchIsCaseInsensitive(t *testing.T) {
	_, uc := seedInventory(t)

	all, err := uc.ListItems(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 5, all.Total)
	assert.Equal(t, "Amoxicilina", all.Items[0].Name, "orden por nombre")

	found, err := uc.ListItems(context.Background(), "amox")
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)
	assert.Equal(t, int64(3), found.Items[0].CurrentStock)

	none, err := uc.ListItems(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Zero(t, none.Total)
}

func TestCurrentStock_UnknownItemIsZero(t *testing.T) {
	_, uc := seedInventory(t)

	n, err := uc.CurrentStock(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecentTransactions_NewestFirstAndClamped(t *testing.T) {
	_, uc := seedInventory(t)

	list, err := uc.RecentTransactions(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].SKU)
	assert.Equal(t, "SYR", *list[0].SKU)
	require.NotNil(t, list[0].LotNumber)
	assert.Equal(t, "Y1", *list[0].LotNumber)

	all, err := uc.RecentTransactions(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-3, reporting.DefaultTransactionsLimit},
		{0, reporting.DefaultTransactionsLimit},
		{1, 1},
		{100, 100},
		{500, reporting.MaxTransactionsLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reporting.ClampLimit(tt.in), "limit %d", tt.in)
	}
}

func TestHorizon_UsesCalendarDay(t *testing.T) {
	uc := reporting.NewReportUseCase(memory.NewStore(), memory.NewStore(), clock)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), uc.Horizon(30))
}

type failingReports struct{}

func (failingReports) Summaries(context.Context) ([]entity.ItemSummary, error) {
	return nil, errors.New("conexión perdida")
}

func (failingReports) RecentTransactions(context.Context, int) ([]entity.TransactionDetail, error) {
	return nil, errors.New("conexión perdida")
}

func (failingReports) Ping(context.Context) error { return errors.New("conexión perdida") }

func TestStats_StorageFailure(t *testing.T) {
	store := memory.NewStore()
	uc := reporting.NewReportUseCase(store, failingReports{}, clock)

	_, err := uc.Stats(context.Background(), 30)
	assert.ErrorIs(t, err, domain.ErrStorage)
	_, err = uc.RecentTransactions(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Error(t, uc.Ping(context.Background()))
}

type countingStockView struct {
	calls int
}

func (v *countingStockView) CurrentStock(context.Context, string) (int64, error) {
	v.calls++
	return 0, nil
}

func (v *countingStockView) ListItems(context.Context, string) ([]entity.ItemStock, error) {
	v.calls++
	return nil, nil
}

func (v *countingStockView) ListLots(context.Context, string) ([]*entity.Lot, error) {
	v.calls++
	return nil, nil
}

func TestCurrentStock_MalformedIDIsValidationError(t *testing.T) {
	view := &countingStockView{}
	uc := reporting.NewReportUseCase(view, failingReports{}, clock)

	for _, id := range []string{"abc", "", "123", "not-a-uuid-at-all-0000000000000000"} {
		_, err := uc.CurrentStock(context.Background(), id)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve, "id %q", id)
		assert.Equal(t, "id", ve.Field)
		assert.NotErrorIs(t, err, domain.ErrStorage)

		_, err = uc.ItemLots(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "id %q", id)
	}
	assert.Zero(t, view.calls, "la validación ocurre antes de tocar el almacén")
}

func TestCurrentStock_AcceptsUppercaseID(t *testing.T) {
	view := &countingStockView{}
	uc := reporting.NewReportUseCase(view, failingReports{}, clock)

	_, err := uc.CurrentStock(context.Background(), "6BA7B810-9DAD-11D1-80B4-00C04FD430C8")
	require.NoError(t, err)
	assert.Equal(t, 1, view.calls)
}

func TestItemLots_FEFOOrder(t *testing.T) {
	store, uc := seedInventory(t)
	ledgerUC := ledger.NewLedgerUseCase(store, logger.Nop(), ledger.WithClock(clock))
	for _, in := range []dto.ReceiveRequest{
		{SKU: "SALINE", LotNumber: "S3", ExpiryDate: "2025-09-01", Quantity: 4, Location: "bodega 2"},
		{SKU: "SALINE", LotNumber: "S0", ExpiryDate: "2025-09-01", Quantity: 1},
	} {
		_, err := ledgerUC.Receive(context.Background(), in)
		require.NoError(t, err)
	}

	found, err := uc.ListItems(context.Background(), "SALINE")
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)

	out, err := uc.ItemLots(context.Background(), found.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, found.Items[0].ID, out.ItemID)
	require.Len(t, out.Lots, 3)
	numbers := []string{out.Lots[0].LotNumber, out.Lots[1].LotNumber, out.Lots[2].LotNumber}
	assert.Equal(t, []string{"S0", "S3", "S1"}, numbers)
	assert.Equal(t, "2025-09-01", out.Lots[1].ExpiryDate)
	require.NotNil(t, out.Lots[1].Location)
	assert.Equal(t, "bodega 2", *out.Lots[1].Location)
	assert.Nil(t, out.Lots[0].Location)
}

func TestItemLots_UnknownItemIsEmpty(t *testing.T) {
	_, uc := seedInventory(t)

	out, err := uc.ItemLots(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.NotNil(t, out.Lots)
	assert.Empty(t, out.Lots)
}
