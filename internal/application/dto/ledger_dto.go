package dto

// ReceiveRequest body para POST /api/stock/receive.
type ReceiveRequest struct {
	SKU        string `json:"sku" validate:"required"`
	LotNumber  string `json:"lot_number" validate:"required"`
	ExpiryDate string `json:"expiry_date" validate:"required"` // YYYY-MM-DD
	Quantity   int64  `json:"quantity" validate:"gt=0"`
	Location   string `json:"location,omitempty"`
}

// DispatchRequest body para POST /api/stock/dispatch.
type DispatchRequest struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
	Reason   string `json:"reason,omitempty"`
}

// ReceiveResponse confirmación de una recepción.
type ReceiveResponse struct {
	Success     bool   `json:"success"`
	ItemID      string `json:"item_id"`
	LotID       string `json:"lot_id"`
	LotQuantity int64  `json:"lot_quantity"`
	ItemCreated bool   `json:"item_created"`
}

// AllocationDTO porción de un despacho tomada de un lote.
type AllocationDTO struct {
	LotID      string `json:"lot_id"`
	LotNumber  string `json:"lot_number"`
	ExpiryDate string `json:"expiry_date"`
	Quantity   int64  `json:"quantity"`
}

// DispatchResponse confirmación de un despacho con la asignación FEFO aplicada.
type DispatchResponse struct {
	Success     bool            `json:"success"`
	Allocations []AllocationDTO `json:"allocations"`
}
