package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

const lotColumns = `id, item_id, lot_number, expiry_date, quantity, location, created_at, updated_at`

// LotRepo implementación de LotRepository sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

// UpsertReceipt inserta el lote o suma la cantidad al existente; la caducidad se sobrescribe
// y la ubicación solo se completa si estaba vacía.
func (r *LotRepo) UpsertReceipt(ctx context.Context, lot *entity.Lot) (*entity.Lot, error) {
	query := `
		INSERT INTO lots (id, item_id, lot_number, expiry_date, quantity, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (item_id, lot_number) DO UPDATE SET
			quantity    = lots.quantity + EXCLUDED.quantity,
			expiry_date = EXCLUDED.expiry_date,
			location    = COALESCE(NULLIF(lots.location, ''), EXCLUDED.location),
			updated_at  = EXCLUDED.updated_at
		RETURNING ` + lotColumns
	saved, err := scanLot(r.q.QueryRow(ctx, query,
		lot.ID, lot.ItemID, lot.LotNumber, lot.ExpiryDate, lot.Quantity, nullIfEmpty(lot.Location), lot.UpdatedAt,
	))
	if err != nil {
		return nil, storageErr("upsert lot", err)
	}
	return saved, nil
}

// LockAvailable SELECT ... FOR UPDATE SKIP LOCKED de los lotes con stock, primero el que caduca antes.
// Los lotes bloqueados por otra transacción no aparecen: no se espera por ellos.
func (r *LotRepo) LockAvailable(ctx context.Context, itemID string) ([]*entity.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE item_id = $1 AND quantity > 0
		ORDER BY expiry_date ASC, lot_number ASC
		FOR UPDATE SKIP LOCKED`
	return queryLots(ctx, r.q, "lock available lots", query, itemID)
}

// DecrementIfUnchanged resta take solo si la cantidad sigue siendo expected.
func (r *LotRepo) DecrementIfUnchanged(ctx context.Context, lotID string, expected, take int64) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE lots SET quantity = quantity - $3, updated_at = now()
		WHERE id = $1 AND quantity = $2 AND quantity >= $3`,
		lotID, expected, take,
	)
	if err != nil {
		return false, storageErr("decrement lot", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// DeleteEmpty elimina, de los lotes indicados, los que quedaron en 0.
func (r *LotRepo) DeleteEmpty(ctx context.Context, lotIDs []string) (int64, error) {
	if len(lotIDs) == 0 {
		return 0, nil
	}
	cmd, err := r.q.Exec(ctx, `DELETE FROM lots WHERE id = ANY($1::uuid[]) AND quantity = 0`, lotIDs)
	if err != nil {
		return 0, storageErr("delete empty lots", err)
	}
	return cmd.RowsAffected(), nil
}

func queryLots(ctx context.Context, q Querier, op, query string, args ...any) ([]*entity.Lot, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()
	var list []*entity.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, storageErr(fmt.Sprintf("%s: scan", op), err)
		}
		list = append(list, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return list, nil
}

func scanLot(row pgx.Row) (*entity.Lot, error) {
	var l entity.Lot
	var location *string
	if err := row.Scan(&l.ID, &l.ItemID, &l.LotNumber, &l.ExpiryDate, &l.Quantity, &location, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Location = deref(location)
	l.ExpiryDate = entity.Day(l.ExpiryDate)
	return &l, nil
}
