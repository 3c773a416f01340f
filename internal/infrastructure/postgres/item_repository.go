package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

const itemColumns = `id, name, sku, category, unit, min_level, active, created_at, updated_at`

// ItemRepo implementación de ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// GetBySKU obtiene un ítem por SKU exacto. nil, nil si no existe.
func (r *ItemRepo) GetBySKU(ctx context.Context, sku string) (*entity.Item, error) {
	it, err := scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE sku = $1`, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get item by sku", err)
	}
	return it, nil
}

// UpsertBySKU inserta o sobrescribe nombre/categoría/unidad/mínimo del ítem con ese SKU.
func (r *ItemRepo) UpsertBySKU(ctx context.Context, item *entity.Item) (*entity.Item, error) {
	query := `
		INSERT INTO items (id, name, sku, category, unit, min_level, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $7)
		ON CONFLICT (sku) DO UPDATE SET
			name       = EXCLUDED.name,
			category   = EXCLUDED.category,
			unit       = EXCLUDED.unit,
			min_level  = EXCLUDED.min_level,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + itemColumns
	it, err := scanItem(r.q.QueryRow(ctx, query,
		item.ID, item.Name, item.SKU, nullIfEmpty(item.Category), item.Unit, item.MinLevel, item.UpdatedAt,
	))
	if err != nil {
		return nil, storageErr("upsert item", err)
	}
	return it, nil
}

// FindOrCreate inserta el ítem mínimo o, si el SKU existe, solo refresca updated_at.
// En ambos casos la fila queda bloqueada hasta el fin de la transacción.
func (r *ItemRepo) FindOrCreate(ctx context.Context, minimal *entity.Item) (*entity.Item, error) {
	query := `
		INSERT INTO items (id, name, sku, category, unit, min_level, active, created_at, updated_at)
		VALUES ($1, $2, $3, NULL, $4, 0, TRUE, $5, $5)
		ON CONFLICT (sku) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING ` + itemColumns
	it, err := scanItem(r.q.QueryRow(ctx, query,
		minimal.ID, minimal.Name, minimal.SKU, minimal.Unit, minimal.UpdatedAt,
	))
	if err != nil {
		return nil, storageErr("find or create item", err)
	}
	return it, nil
}

func scanItem(row pgx.Row) (*entity.Item, error) {
	var it entity.Item
	var category *string
	if err := row.Scan(&it.ID, &it.Name, &it.SKU, &category, &it.Unit, &it.MinLevel, &it.Active, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	it.Category = deref(category)
	return &it, nil
}
