package repository

import (
	"context"

	"github.com/jhoicas/medstock/internal/domain/entity"
)

// StockViewRepository lecturas de la vista derivada de stock. Solo lectura, sin bloqueos.
type StockViewRepository interface {
	// CurrentStock suma de cantidades de los lotes del ítem (0 si no tiene).
	CurrentStock(ctx context.Context, itemID string) (int64, error)
	// ListItems ítems con su stock, filtrados por nombre o SKU (subcadena sin distinguir mayúsculas), ordenados por nombre.
	ListItems(ctx context.Context, search string) ([]entity.ItemStock, error)
	// ListLots lotes del ítem en orden FEFO (caducidad, luego número de lote).
	ListLots(ctx context.Context, itemID string) ([]*entity.Lot, error)
}
