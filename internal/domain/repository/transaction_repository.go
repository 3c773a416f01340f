package repository

import (
	"context"

	"github.com/jhoicas/medstock/internal/domain/entity"
)

// TransactionRepository registro append-only de movimientos.
type TransactionRepository interface {
	Append(ctx context.Context, tx *entity.Transaction) error
}
