package postgres

import (
	"context"

	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo registro append-only de movimientos sobre PostgreSQL.
type TransactionRepo struct {
	q Querier
}

// NewTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

// Append persiste una transacción. Nunca se actualiza ni se borra.
func (r *TransactionRepo) Append(ctx context.Context, tx *entity.Transaction) error {
	query := `
		INSERT INTO transactions (id, item_id, lot_id, qty_change, type, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		tx.ID, nullIfEmpty(tx.ItemID), nullIfEmpty(tx.LotID), tx.QuantityChange, tx.Type, nullIfEmpty(tx.Note), tx.CreatedAt,
	)
	return storageErr("insert transaction", err)
}
