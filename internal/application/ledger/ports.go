package ledger

import (
	"context"

	"github.com/jhoicas/medstock/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción del almacén, pasando repositorios atados a esa tx.
// Commit si fn retorna nil; Rollback en cualquier otro caso (incluido un error de commit).
type TxRunner interface {
	Run(ctx context.Context, fn func(
		itemRepo repository.ItemRepository,
		lotRepo repository.LotRepository,
		txRepo repository.TransactionRepository,
	) error) error
}

// Recorder recibe los resultados de las operaciones del libro (métricas).
type Recorder interface {
	ObserveReceive(quantity int64)
	ObserveDispatch(quantity int64, lotsTouched int)
	ObserveFailure(op string, err error)
}

type noopRecorder struct{}

func (noopRecorder) ObserveReceive(int64)         {}
func (noopRecorder) ObserveDispatch(int64, int)   {}
func (noopRecorder) ObserveFailure(string, error) {}
