package repository

import (
	"context"

	"github.com/jhoicas/medstock/internal/domain/entity"
)

// ItemRepository define el puerto de persistencia para Item (DIP).
type ItemRepository interface {
	// GetBySKU devuelve nil, nil si el SKU no existe.
	GetBySKU(ctx context.Context, sku string) (*entity.Item, error)
	// UpsertBySKU inserta o, si el SKU existe, sobrescribe nombre/categoría/unidad/mínimo. No toca stock.
	UpsertBySKU(ctx context.Context, item *entity.Item) (*entity.Item, error)
	// FindOrCreate devuelve el ítem del SKU de minimal refrescando su updated_at, o inserta minimal si no existe.
	// Deja la fila del ítem bloqueada hasta el fin de la transacción.
	FindOrCreate(ctx context.Context, minimal *entity.Item) (*entity.Item, error)
}
