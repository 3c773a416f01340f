package entity

import "time"

// Tipos de transacción del libro de inventario.
const (
	TxTypeReceive  = "RECEIVE"  // entrada (cantidad positiva)
	TxTypeDispatch = "DISPATCH" // salida FEFO (cantidad negativa)
	TxTypeAdjust   = "ADJUST"   // reservado para correcciones manuales
)

// Transaction registro inmutable de un movimiento de stock. ItemID y LotID quedan vacíos
// si la entidad referenciada se eliminó después (la referencia se degrada a NULL).
type Transaction struct {
	ID             string
	ItemID         string
	LotID          string
	QuantityChange int64
	Type           string
	Note           string
	CreatedAt      time.Time
}

// IsValidTxType valida el tipo contra la enumeración del esquema.
func IsValidTxType(t string) bool {
	switch t {
	case TxTypeReceive, TxTypeDispatch, TxTypeAdjust:
		return true
	}
	return false
}

// TransactionDetail transacción enriquecida con SKU y datos del lote cuando aún resuelven.
type TransactionDetail struct {
	Transaction
	SKU        string
	LotNumber  string
	ExpiryDate *time.Time
	Location   string
}
