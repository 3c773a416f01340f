package entity

import "time"

// DefaultUnit unidad de medida cuando no se indica otra.
const DefaultUnit = "unit"

// Item representa un producto médico rastreable. El SKU es único (coincidencia exacta, sensible a mayúsculas).
// El stock no se guarda aquí: es la suma de las cantidades de sus lotes.
type Item struct {
	ID        string
	Name      string
	SKU       string
	Category  string // vacío si no aplica
	Unit      string
	MinLevel  int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMinimalItem construye el ítem que Receive crea implícitamente para un SKU desconocido.
func NewMinimalItem(id, sku string, now time.Time) *Item {
	return &Item{
		ID:        id,
		Name:      sku,
		SKU:       sku,
		Unit:      DefaultUnit,
		MinLevel:  0,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
