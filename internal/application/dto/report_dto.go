package dto

import "time"

// TransactionResponse transacción enriquecida (GET /api/transactions).
type TransactionResponse struct {
	ID             string    `json:"id"`
	ItemID         *string   `json:"item_id"`
	LotID          *string   `json:"lot_id"`
	SKU            *string   `json:"sku"`
	LotNumber      *string   `json:"lot_number"`
	ExpiryDate     *string   `json:"expiry_date"`
	Location       *string   `json:"location"`
	QuantityChange int64     `json:"qty_change"`
	Type           string    `json:"type"`
	Note           *string   `json:"note"`
	CreatedAt      time.Time `json:"created_at"`
}

// AlertResponse registro de alerta por ítem.
type AlertResponse struct {
	ItemID         string  `json:"item_id"`
	Name           string  `json:"name"`
	SKU            string  `json:"sku"`
	CurrentStock   int64   `json:"current_stock"`
	MinLevel       int64   `json:"min_level"`
	EarliestExpiry *string `json:"earliest_expiry"`
	Status         string  `json:"status"` // OUT | LOW | OK
	LowStock       bool    `json:"low_stock"`
	NoLots         bool    `json:"no_lots"`
	ExpiringSoon   bool    `json:"expiring_soon"`
}

// AlertListResponse alertas para un horizonte de días.
type AlertListResponse struct {
	HorizonDays int             `json:"horizon_days"`
	Total       int             `json:"total"`
	Alerts      []AlertResponse `json:"alerts"`
}

// StatsResponse agregados del inventario.
type StatsResponse struct {
	TotalItems   int64 `json:"total_items"`
	UnitsInStock int64 `json:"units_in_stock"`
	LowStock     int64 `json:"low_stock"`
	ExpiringSoon int64 `json:"expiring_soon"`
}
