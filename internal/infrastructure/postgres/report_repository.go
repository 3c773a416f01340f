package postgres

import (
	"context"
	"time"

	"github.com/jhoicas/medstock/internal/domain/entity"
	"github.com/jhoicas/medstock/internal/domain/repository"
)

var _ repository.ReportRepository = (*ReportRepo)(nil)

// pinger lo implementa *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// ReportRepo consultas agregadas para alertas, estadísticas y últimos movimientos.
type ReportRepo struct {
	q Querier
}

// NewReportRepository construye el adaptador.
func NewReportRepository(q Querier) *ReportRepo {
	return &ReportRepo{q: q}
}

// Summaries stock, número de lotes y caducidad más próxima de cada ítem.
func (r *ReportRepo) Summaries(ctx context.Context) ([]entity.ItemSummary, error) {
	query := `
		SELECT i.id, i.name, i.sku, i.category, i.unit, i.min_level, i.active, i.created_at, i.updated_at,
		       COALESCE(SUM(l.quantity), 0)::bigint AS current_stock,
		       COUNT(l.id)                          AS lot_count,
		       MIN(l.expiry_date)                   AS earliest_expiry
		FROM items i
		LEFT JOIN lots l ON l.item_id = i.id
		GROUP BY i.id
		ORDER BY i.name ASC, i.sku ASC`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, storageErr("item summaries", err)
	}
	defer rows.Close()
	out := make([]entity.ItemSummary, 0)
	for rows.Next() {
		var s entity.ItemSummary
		var category *string
		var lotCount int64
		if err := rows.Scan(&s.ID, &s.Name, &s.SKU, &category, &s.Unit, &s.MinLevel, &s.Active,
			&s.CreatedAt, &s.UpdatedAt, &s.CurrentStock, &lotCount, &s.EarliestExpiry); err != nil {
			return nil, storageErr("item summaries: scan", err)
		}
		s.Category = deref(category)
		s.LotCount = int(lotCount)
		if s.EarliestExpiry != nil {
			d := entity.Day(*s.EarliestExpiry)
			s.EarliestExpiry = &d
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("item summaries", err)
	}
	return out, nil
}

// RecentTransactions últimos movimientos con SKU y datos del lote si aún existen.
func (r *ReportRepo) RecentTransactions(ctx context.Context, limit int) ([]entity.TransactionDetail, error) {
	query := `
		SELECT t.id, t.item_id, t.lot_id, t.qty_change, t.type, t.note, t.created_at,
		       i.sku, l.lot_number, l.expiry_date, l.location
		FROM transactions t
		LEFT JOIN items i ON i.id = t.item_id
		LEFT JOIN lots  l ON l.id = t.lot_id
		ORDER BY t.created_at DESC, t.seq DESC
		LIMIT $1`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, storageErr("recent transactions", err)
	}
	defer rows.Close()
	out := make([]entity.TransactionDetail, 0, limit)
	for rows.Next() {
		var d entity.TransactionDetail
		var itemID, lotID, note, sku, lotNumber, location *string
		var expiry *time.Time
		if err := rows.Scan(&d.ID, &itemID, &lotID, &d.QuantityChange, &d.Type, &note, &d.CreatedAt,
			&sku, &lotNumber, &expiry, &location); err != nil {
			return nil, storageErr("recent transactions: scan", err)
		}
		d.ItemID = deref(itemID)
		d.LotID = deref(lotID)
		d.Note = deref(note)
		d.SKU = deref(sku)
		d.LotNumber = deref(lotNumber)
		d.Location = deref(location)
		if expiry != nil {
			day := entity.Day(*expiry)
			d.ExpiryDate = &day
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("recent transactions", err)
	}
	return out, nil
}

// Ping verifica la conexión si el Querier lo permite.
func (r *ReportRepo) Ping(ctx context.Context) error {
	if p, ok := r.q.(pinger); ok {
		return storageErr("ping", p.Ping(ctx))
	}
	var one int
	return storageErr("ping", r.q.QueryRow(ctx, `SELECT 1`).Scan(&one))
}
