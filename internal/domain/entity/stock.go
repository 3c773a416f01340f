package entity

import "time"

// Estados de stock para alertas.
const (
	StockStatusOut = "OUT"
	StockStatusLow = "LOW"
	StockStatusOK  = "OK"
)

// ItemStock vista derivada: ítem con su stock actual (suma de lotes, 0 si no tiene).
type ItemStock struct {
	Item
	CurrentStock int64
}

// ItemSummary proyección por ítem usada por alertas y estadísticas.
type ItemSummary struct {
	ItemStock
	LotCount       int
	EarliestExpiry *time.Time // nil si el ítem no tiene lotes
}

// Status clasifica el stock: OUT si <= 0, LOW si está bajo el mínimo, OK en otro caso.
func (s ItemStock) Status() string {
	switch {
	case s.CurrentStock <= 0:
		return StockStatusOut
	case s.CurrentStock < s.MinLevel:
		return StockStatusLow
	default:
		return StockStatusOK
	}
}

// IsLow indica stock por debajo del nivel mínimo.
func (s ItemStock) IsLow() bool {
	return s.CurrentStock < s.MinLevel
}

// ExpiresBy indica si el lote más próximo a caducar lo hace en o antes de day.
func (s ItemSummary) ExpiresBy(day time.Time) bool {
	return s.EarliestExpiry != nil && !s.EarliestExpiry.After(day)
}

// NeedsAttention regla de inclusión en alertas: stock bajo, sin lotes, o caducidad dentro del horizonte.
func (s ItemSummary) NeedsAttention(horizon time.Time) bool {
	return s.IsLow() || s.EarliestExpiry == nil || s.ExpiresBy(horizon)
}

// Stats agregados del inventario.
type Stats struct {
	TotalItems   int64
	UnitsInStock int64
	LowStock     int64
	ExpiringSoon int64
}
