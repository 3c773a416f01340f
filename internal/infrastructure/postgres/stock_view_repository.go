package postgres

import (
	"context"
	"strings"

	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/internal/domain/repository"
)

var _ repository.StockViewRepository = (*StockViewRepo)(nil)

// StockViewRepo lecturas de stock derivado (vista item_stock). Sin bloqueos.
type StockViewRepo struct {
	q Querier
}

// NewStockViewRepository construye el adaptador.
func NewStockViewRepository(q Querier) *StockViewRepo {
	return &StockViewRepo{q: q}
}

// CurrentStock suma de los lotes del ítem; 0 si no tiene lotes o no existe.
func (r *StockViewRepo) CurrentStock(ctx context.Context, itemID string) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0)::bigint FROM lots WHERE item_id = $1`, itemID).Scan(&total)
	if err != nil {
		return 0, storageErr("current stock", err)
	}
	return total, nil
}

// ListLots lotes del ítem en orden FEFO, sin bloquear.
func (r *StockViewRepo) ListLots(ctx context.Context, itemID string) ([]*entity.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots WHERE item_id = $1
		ORDER BY expiry_date ASC, lot_number ASC`
	return queryLots(ctx, r.q, "list lots", query, itemID)
}

// ListItems ítems con su stock, ordenados por nombre. search filtra por nombre o SKU (ILIKE).
func (r *StockViewRepo) ListItems(ctx context.Context, search string) ([]entity.ItemStock, error) {
	query := `
		SELECT i.id, i.name, i.sku, i.category, i.unit, i.min_level, i.active, i.created_at, i.updated_at,
		       s.current_stock
		FROM items i
		JOIN item_stock s ON s.item_id = i.id`
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		query += ` WHERE i.name ILIKE $1 ESCAPE '\' OR i.sku ILIKE $1 ESCAPE '\'`
		args = append(args, likePattern(search))
	}
	query += ` ORDER BY i.name ASC, i.sku ASC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list items", err)
	}
	defer rows.Close()
	out := make([]entity.ItemStock, 0)
	for rows.Next() {
		var s entity.ItemStock
		var category *string
		if err := rows.Scan(&s.ID, &s.Name, &s.SKU, &category, &s.Unit, &s.MinLevel, &s.Active,
			&s.CreatedAt, &s.UpdatedAt, &s.CurrentStock); err != nil {
			return nil, storageErr("list items: scan", err)
		}
		s.Category = deref(category)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list items", err)
	}
	return out, nil
}
