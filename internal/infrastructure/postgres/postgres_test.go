package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medstock/internal/application/dto"
	"github.com/jhoicas/medstock/internal/application/ledger"
	"github.com/jhoicas/medstock/internal/application/reporting"
	"github.com/jhoicas/medstock/internal/domain"
	"github.com/jhoicas/medstock/pkg/logger"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db?sslmode=disable", MigrateURL("postgres://u:p@h:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://h/db", MigrateURL("postgresql://h/db"))
	assert.Equal(t, "pgx5://h/db", MigrateURL("pgx5://h/db"))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%amox%`, likePattern("amox"))
	assert.Equal(t, `%50\%\_a\\b%`, likePattern(`50%_a\b`))
}

// openTestDB requiere DATABASE_URL apuntando a una base desechable; si no, se omite.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL no definido")
	}
	m, err := NewMigrator(url)
	require.NoError(t, err)
	require.NoError(t, m.Down())
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestLedger_Postgres_FEFOAndSweep(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	uc := ledger.NewLedgerUseCase(NewTxRunner(pool), logger.Nop())
	report := reporting.NewReportUseCase(NewStockViewRepository(pool), NewReportRepository(pool), nil)

	_, err := uc.Receive(ctx, dto.ReceiveRequest{SKU: "AMOX-500", LotNumber: "L1", ExpiryDate: "2025-01-01", Quantity: 5})
	require.NoError(t, err)
	recv, err := uc.Receive(ctx, dto.ReceiveRequest{SKU: "AMOX-500", LotNumber: "L2", ExpiryDate: "2025-06-01", Quantity: 5})
	require.NoError(t, err)

	out, err := uc.Dispatch(ctx, dto.DispatchRequest{SKU: "AMOX-500", Quantity: 7, Reason: "ward 3"})
	require.NoError(t, err)
	require.Len(t, out.Allocations, 2)
	assert.Equal(t, "L1", out.Allocations[0].LotNumber)
	assert.Equal(t, int64(5), out.Allocations[0].Quantity)
	assert.Equal(t, int64(2), out.Allocations[1].Quantity)

	lots, err := NewStockViewRepository(pool).ListLots(ctx, recv.ItemID)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "L2", lots[0].LotNumber)
	assert.Equal(t, int64(3), lots[0].Quantity)

	stock, err := report.CurrentStock(ctx, recv.ItemID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stock)

	txs, err := report.RecentTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, txs, 4)
	// Las dos filas del despacho comparten created_at; la última insertada va primero.
	assert.Equal(t, int64(-2), txs[0].QuantityChange)
	assert.Equal(t, int64(-5), txs[1].QuantityChange)
}

func TestLedger_Postgres_InsufficientStockRollsBack(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	uc := ledger.NewLedgerUseCase(NewTxRunner(pool), logger.Nop())

	recv, err := uc.Receive(ctx, dto.ReceiveRequest{SKU: "GAUZE", LotNumber: "G1", ExpiryDate: "2030-01-01", Quantity: 8})
	require.NoError(t, err)

	_, err = uc.Dispatch(ctx, dto.DispatchRequest{SKU: "GAUZE", Quantity: 10})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	lots, err := NewStockViewRepository(pool).ListLots(ctx, recv.ItemID)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, int64(8), lots[0].Quantity)
}

func TestLedger_Postgres_ConcurrentDispatchNeverOverAllocates(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	uc := ledger.NewLedgerUseCase(NewTxRunner(pool), logger.Nop())

	recv, err := uc.Receive(ctx, dto.ReceiveRequest{SKU: "SYR-5", LotNumber: "S1", ExpiryDate: "2030-01-01", Quantity: 10})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var dispatched int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := uc.Dispatch(ctx, dto.DispatchRequest{SKU: "SYR-5", Quantity: 3}); err == nil {
				mu.Lock()
				dispatched += 3
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stock, err := NewStockViewRepository(pool).CurrentStock(ctx, recv.ItemID)
	require.NoError(t, err)
	assert.LessOrEqual(t, dispatched, int64(10))
	assert.Equal(t, int64(10)-dispatched, stock)
}

func TestReport_Postgres_MalformedItemIDIsValidation(t *testing.T) {
	pool := openTestDB(t)
	report := reporting.NewReportUseCase(NewStockViewRepository(pool), NewReportRepository(pool), nil)

	_, err := report.CurrentStock(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotErrorIs(t, err, domain.ErrStorage)

	_, err = report.ItemLots(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
