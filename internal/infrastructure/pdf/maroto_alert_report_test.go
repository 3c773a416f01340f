package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medstock/internal/application/reporting"
	"github.com/jhoicas/medstock/internal/domain/entity"
)

func alertFixture(status string, stock, min int64, expiry *time.Time, expiring bool) reporting.Alert {
	return reporting.Alert{
		ItemSummary: entity.ItemSummary{
			ItemStock: entity.ItemStock{
				Item:         entity.Item{ID: "1", Name: "Amoxicilina 500mg", SKU: "AMOX-500", MinLevel: min},
				CurrentStock: stock,
			},
			EarliestExpiry: expiry,
		},
		Status:       status,
		NoLots:       expiry == nil,
		ExpiringSoon: expiring,
	}
}

func TestRenderAlerts_ProducesPDF(t *testing.T) {
	exp := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	alerts := []reporting.Alert{
		alertFixture(entity.StockStatusLow, 3, 10, &exp, true),
		alertFixture(entity.StockStatusOut, 0, 5, nil, false),
	}
	out, err := NewMarotoAlertReport("medstock").RenderAlerts(context.Background(), alerts, 30, time.Now())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderAlerts_Empty(t *testing.T) {
	out, err := NewMarotoAlertReport("medstock").RenderAlerts(context.Background(), nil, 30, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestReasons(t *testing.T) {
	exp := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "bajo mínimo, por caducar", Reasons(alertFixture(entity.StockStatusLow, 3, 10, &exp, true)))
	assert.Equal(t, "sin stock", Reasons(alertFixture(entity.StockStatusOut, 0, 5, nil, false)))
	assert.Equal(t, "sin lotes", Reasons(alertFixture(entity.StockStatusOK, 0, 0, nil, false)))
}
