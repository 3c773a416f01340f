package entity

import "time"

// DateLayout formato de fechas de caducidad (fecha de calendario).
const DateLayout = "2006-01-02"

// Lot lote fechado de un ítem. Quantity nunca es negativa; (ItemID, LotNumber) es único.
type Lot struct {
	ID         string
	ItemID     string
	LotNumber  string
	ExpiryDate time.Time // medianoche UTC
	Quantity   int64
	Location   string // vacío si no se conoce
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Replenish aplica una recepción sobre un lote existente: suma cantidad, la caducidad
// pasa a ser la de la última recepción y la ubicación solo se completa si estaba vacía.
func (l *Lot) Replenish(quantity int64, expiry time.Time, location string, now time.Time) {
	l.Quantity += quantity
	l.ExpiryDate = expiry
	if l.Location == "" {
		l.Location = location
	}
	l.UpdatedAt = now
}

// Day trunca t a su fecha de calendario en UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
