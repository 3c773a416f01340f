package dto

import "time"

// RegisterItemRequest entrada para registrar (o re-registrar por SKU) un ítem.
type RegisterItemRequest struct {
	Name     string `json:"name" validate:"required"`
	SKU      string `json:"sku" validate:"required"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
	MinLevel *int64 `json:"min_level" validate:"omitempty,min=0"`
}

// ItemResponse salida de un ítem.
type ItemResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Category  *string   `json:"category"`
	Unit      string    `json:"unit"`
	MinLevel  int64     `json:"min_level"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemStockResponse ítem con su stock actual (GET /api/items).
type ItemStockResponse struct {
	ItemResponse
	CurrentStock int64 `json:"current_stock"`
}

// ItemListResponse listado de ítems con stock.
type ItemListResponse struct {
	Items []ItemStockResponse `json:"items"`
	Total int                 `json:"total"`
}

// StockResponse stock actual de un ítem.
type StockResponse struct {
	ItemID       string `json:"item_id"`
	CurrentStock int64  `json:"current_stock"`
}

// LotResponse lote con su saldo actual.
type LotResponse struct {
	ID         string    `json:"id"`
	LotNumber  string    `json:"lot_number"`
	ExpiryDate string    `json:"expiry_date"` // YYYY-MM-DD
	Quantity   int64     `json:"quantity"`
	Location   *string   `json:"location"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LotListResponse lotes de un ítem en orden FEFO.
type LotListResponse struct {
	ItemID string        `json:"item_id"`
	Lots   []LotResponse `json:"lots"`
}
