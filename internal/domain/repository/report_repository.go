package repository

import (
	"context"

	"github.com/jhoicas/medstock/internal/domain/entity"
)

// ReportRepository consultas de solo lectura para alertas, estadísticas y actividad reciente.
type ReportRepository interface {
	// Summaries stock y caducidad más próxima de cada ítem, ordenados por nombre.
	Summaries(ctx context.Context) ([]entity.ItemSummary, error)
	// RecentTransactions transacciones más recientes primero, con LEFT JOIN a ítem y lote.
	RecentTransactions(ctx context.Context, limit int) ([]entity.TransactionDetail, error)
	Ping(ctx context.Context) error
}
