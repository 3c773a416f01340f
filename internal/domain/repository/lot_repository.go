package repository

import (
	"context"

	"github.com/jhoicas/medstock/internal/domain/entity"
)

// LotRepository define el puerto de persistencia para lotes. Se usa dentro de transacciones.
type LotRepository interface {
	// UpsertReceipt inserta el lote o reabastece el existente (ItemID, LotNumber) y devuelve el resultado.
	UpsertReceipt(ctx context.Context, lot *entity.Lot) (*entity.Lot, error)
	// LockAvailable bloquea los lotes con cantidad > 0 del ítem, ordenados por caducidad ascendente (FEFO).
	// Los lotes bloqueados por otra transacción en curso se omiten (SKIP LOCKED), nunca se espera por ellos.
	LockAvailable(ctx context.Context, itemID string) ([]*entity.Lot, error)
	// DecrementIfUnchanged resta take solo si la cantidad sigue siendo expected. false si cambió.
	DecrementIfUnchanged(ctx context.Context, lotID string, expected, take int64) (bool, error)
	// DeleteEmpty elimina, de los lotes indicados, los que tengan cantidad 0.
	DeleteEmpty(ctx context.Context, lotIDs []string) (int64, error)
}
